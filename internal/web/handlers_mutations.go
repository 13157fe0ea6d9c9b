package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gradeguard/internal/core"
	"github.com/JonMunkholm/gradeguard/internal/logging"
)

// syncResponse is the body of POST /api/sync.
type syncResponse struct {
	Version  uint64    `json:"version"`
	SyncedAt time.Time `json:"synced_at"`
	Records  int       `json:"records"`
}

// handleSync re-reads the audit queue from the backend.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Backend.SyncTimeout)
	defer cancel()

	snap, err := s.store.Sync(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondUpdated(w, r, http.StatusOK, syncResponse{
		Version:  snap.Version,
		SyncedAt: snap.SyncedAt,
		Records:  snap.Len(),
	})
}

// actionResponse is the body returned for a dispatched action.
type actionResponse struct {
	ActionID   string          `json:"action_id"`
	Kind       core.ActionKind `json:"kind"`
	RecordID   core.RecordID   `json:"record_id,omitempty"`
	State      string          `json:"state"`
	Version    uint64          `json:"version,omitempty"`
	SyncError  string          `json:"sync_error,omitempty"`
	DurationMS int64           `json:"duration_ms,omitempty"`
}

// handleSimulate triggers a global audit run.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	p, err := s.dispatcher.Simulate(r.Context())
	s.finishAction(w, r, p, err)
}

// handleResolve marks one record as reviewed.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := core.RecordID(chi.URLParam(r, "id"))
	p, err := s.dispatcher.Resolve(r.Context(), id)
	s.finishAction(w, r, p, err)
}

// finishAction reports a dispatched action. With ?wait=false the client gets
// 202 and the action ID immediately; otherwise the handler waits for the
// action and its re-sync. A client that disconnects while waiting does not
// abort the action.
func (s *Server) finishAction(w http.ResponseWriter, r *http.Request, p *core.Pending, err error) {
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	log := logging.WithFields(r.Context(), "action_id", p.ID(), "kind", p.Kind())
	log.Info("action accepted")

	if r.URL.Query().Get("wait") == "false" {
		writeJSON(w, http.StatusAccepted, actionResponse{
			ActionID: p.ID(),
			Kind:     p.Kind(),
			State:    p.State().String(),
		})
		return
	}

	outcome, err := p.Wait(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := actionResponse{
		ActionID:   outcome.ActionID,
		Kind:       outcome.Kind,
		RecordID:   outcome.RecordID,
		State:      core.StateIdle.String(),
		Version:    outcome.Snapshot.Version,
		DurationMS: outcome.Duration().Milliseconds(),
	}
	if outcome.SyncErr != nil {
		log.Warn("re-sync after action failed", "error", outcome.SyncErr)
		resp.SyncError = core.FormatUserError(outcome.SyncErr)
	}
	s.respondUpdated(w, r, http.StatusOK, resp)
}
