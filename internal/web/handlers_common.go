package web

// handlers_common.go holds helpers shared by the page and action handlers.

import (
	"net/http"

	"github.com/JonMunkholm/gradeguard/internal/core"
	"github.com/JonMunkholm/gradeguard/internal/web/templates"
)

// dashboardView collects everything the dashboard renders from the current
// snapshot, the last sync failure and the dispatcher state.
func (s *Server) dashboardView() templates.DashboardView {
	v := templates.DashboardView{
		Snapshot:    s.store.Snapshot(),
		Busy:        s.dispatcher.State() == core.StateBusy,
		History:     s.dispatcher.History(),
		MaxUploadMB: s.cfg.Upload.MaxFileSize >> 20,
	}
	if err := s.store.Notice(); err != nil {
		v.Notice = core.FormatUserError(err)
	}
	return v
}

// respondUpdated answers a successful mutation. HTMX requests get the
// refreshed dashboard body, browser form posts are redirected back to the
// dashboard, and API clients get body as JSON.
func (s *Server) respondUpdated(w http.ResponseWriter, r *http.Request, status int, body any) {
	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.DashboardContent(s.dashboardView()).Render(r.Context(), w)
	case wantsRedirect(r):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		writeJSON(w, status, body)
	}
}
