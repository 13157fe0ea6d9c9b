// Package web provides the HTTP server and handlers for the audit dashboard.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/gradeguard/internal/config"
	"github.com/JonMunkholm/gradeguard/internal/core"
	"github.com/JonMunkholm/gradeguard/internal/web/middleware"
)

// Server is the HTTP server for the audit dashboard.
type Server struct {
	store      *core.Store
	dispatcher *core.Dispatcher
	cfg        *config.Config
	router     *chi.Mux
	server     *http.Server

	// done is closed by Shutdown so long-lived streams end before the
	// server waits for connections to go idle.
	done <-chan struct{}
	stop context.CancelFunc
}

// NewServer creates a new Server instance.
func NewServer(store *core.Store, dispatcher *core.Dispatcher, cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		router:     chi.NewRouter(),
		done:       ctx.Done(),
		stop:       cancel,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute)
		go limiter.Run(ctx)
		s.router.Use(limiter.Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	// Actions get a stricter budget than reads.
	actionLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(s.cfg.Rate.UploadLimit)
		go limiter.Run(ctx)
		actionLimit = limiter.Handler
	}

	s.router.Get("/healthz", s.handleHealth)

	// Streaming routes run without the request timeout.
	s.router.Get("/api/events", s.handleEvents)

	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

		// Pages
		r.Get("/", s.handleDashboard)

		r.Route("/api", func(r chi.Router) {
			// Reads
			r.Get("/records", s.handleRecords)
			r.Get("/summary", s.handleSummary)
			r.Get("/actions", s.handleActions)
			r.Get("/export", s.handleExport)

			// Manual refresh
			r.Post("/sync", s.handleSync)

			// Actions
			r.Group(func(r chi.Router) {
				r.Use(actionLimit)
				r.Post("/simulate", s.handleSimulate)
				r.Post("/resolve/{id}", s.handleResolve)
				r.Post("/upload", s.handleUpload)
			})
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // zero keeps SSE streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// The dashboard ships its styles and live-reload script inline.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
