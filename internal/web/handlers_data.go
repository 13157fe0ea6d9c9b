package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/gradeguard/internal/core"
	"github.com/JonMunkholm/gradeguard/internal/export"
	"github.com/JonMunkholm/gradeguard/internal/logging"
)

// recordView is one audit record with its presentation contract.
type recordView struct {
	core.AuditRecord
	Classification core.Classification `json:"classification"`
}

// recordsResponse is the body of GET /api/records.
type recordsResponse struct {
	Version  uint64       `json:"version"`
	SyncedAt time.Time    `json:"synced_at"`
	Notice   string       `json:"notice,omitempty"`
	Records  []recordView `json:"records"`
}

// handleRecords returns the cached audit queue in backend order.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	resp := recordsResponse{
		Version:  snap.Version,
		SyncedAt: snap.SyncedAt,
		Records:  make([]recordView, len(snap.Records)),
	}
	for i, rec := range snap.Records {
		// Unknown statuses still get their fallback classification.
		c, _ := core.Classify(rec.Status)
		resp.Records[i] = recordView{AuditRecord: rec, Classification: c}
	}
	if err := s.store.Notice(); err != nil {
		resp.Notice = core.FormatUserError(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// summaryResponse is the body of GET /api/summary.
type summaryResponse struct {
	Version      uint64              `json:"version"`
	Total        int                 `json:"total"`
	CleanTotal   int                 `json:"clean_total"`
	Counts       map[core.Status]int `json:"counts"`
	Chart        []core.HealthSlice  `json:"chart"`
	Distribution []core.TypeBucket   `json:"distribution"`
}

// handleSummary returns the health and distribution aggregates.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, summaryResponse{
		Version:      snap.Version,
		Total:        snap.Health.Total,
		CleanTotal:   snap.Health.CleanTotal(),
		Counts:       snap.Health.Counts,
		Chart:        snap.Health.ChartInput(),
		Distribution: snap.Distribution,
	})
}

// handleActions returns the recent action history, newest first.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	entries := s.dispatcher.History()
	if entries == nil {
		entries = []core.ActionEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleExport downloads the cached queue as CSV or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, core.NewUserError(err))
		return
	}

	snap := s.store.Snapshot()

	// Buffer so a failed export can still be reported as an error response.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, snap.Records); err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("audit-queue-%s.%s", time.Now().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}
