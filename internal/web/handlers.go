package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/gradeguard/internal/core"
	"github.com/JonMunkholm/gradeguard/internal/web/templates"
)

// handleDashboard renders the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(s.dashboardView()).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status   string          `json:"status"`
	Version  uint64          `json:"version"`
	SyncedAt *time.Time      `json:"synced_at,omitempty"`
	Records  int             `json:"records"`
	Notice   string          `json:"notice,omitempty"`
	Gate     core.GateStatus `json:"gate"`
}

// handleHealth reports liveness plus the freshness of the cached queue.
// The dashboard stays up while the backend is down, so a failed sync
// reports "degraded" with status 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	resp := healthResponse{
		Status:  "ok",
		Version: snap.Version,
		Records: snap.Len(),
		Gate:    s.dispatcher.Gate().Status(),
	}
	if !snap.SyncedAt.IsZero() {
		resp.SyncedAt = &snap.SyncedAt
	}
	if err := s.store.Notice(); err != nil {
		resp.Status = "degraded"
		resp.Notice = core.FormatUserError(err)
	}
	writeJSON(w, http.StatusOK, resp)
}
