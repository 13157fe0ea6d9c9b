package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/gradeguard/internal/logging"
)

// keepaliveInterval keeps idle SSE connections open through proxies.
const keepaliveInterval = 25 * time.Second

// snapshotEvent is the data of one "snapshot" server-sent event.
type snapshotEvent struct {
	Version  uint64    `json:"version"`
	SyncedAt time.Time `json:"synced_at"`
	Total    int       `json:"total"`
	State    string    `json:"state"`
}

// handleEvents streams a "snapshot" event whenever a newer snapshot is
// published. The current snapshot is sent first. Slow clients only ever see
// the latest snapshot. The stream ends when the client disconnects or the
// server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	updates, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	log := logging.FromContext(r.Context())
	if err := rc.Flush(); err != nil {
		log.Warn("sse: streaming not supported", "error", err)
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			data, _ := json.Marshal(snapshotEvent{
				Version:  snap.Version,
				SyncedAt: snap.SyncedAt,
				Total:    snap.Len(),
				State:    s.dispatcher.State().String(),
			})
			fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, data)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			// Client disconnected
			return

		case <-s.done:
			// Server shutting down
			return
		}
	}
}
