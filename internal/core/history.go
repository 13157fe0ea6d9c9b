package core

import (
	"sync"
	"time"
)

// DefaultHistorySize is the number of outcomes kept for the activity panel.
const DefaultHistorySize = 50

// ActionEntry is one finished action as shown in the activity panel.
type ActionEntry struct {
	ID         string     `json:"id"`
	Kind       ActionKind `json:"kind"`
	RecordID   RecordID   `json:"recordId,omitempty"`
	IPAddress  string     `json:"ipAddress,omitempty"`
	OK         bool       `json:"ok"`
	Error      string     `json:"error,omitempty"`
	SyncError  string     `json:"syncError,omitempty"`
	Version    uint64     `json:"version"`
	StartedAt  time.Time  `json:"startedAt"`
	DurationMS int64      `json:"durationMs"`
}

func newActionEntry(o Outcome, ip string) ActionEntry {
	e := ActionEntry{
		ID:         o.ActionID,
		Kind:       o.Kind,
		RecordID:   o.RecordID,
		IPAddress:  ip,
		OK:         o.ActionErr == nil,
		Version:    o.Snapshot.Version,
		StartedAt:  o.Started,
		DurationMS: o.Duration().Milliseconds(),
	}
	if o.ActionErr != nil {
		e.Error = FormatUserError(o.ActionErr)
	}
	if o.SyncErr != nil {
		e.SyncError = FormatUserError(o.SyncErr)
	}
	return e
}

// ActionHistory is a bounded in-memory log of action outcomes. It is not
// durable; a restart starts with an empty history.
type ActionHistory struct {
	mu      sync.Mutex
	entries []ActionEntry // ring buffer
	next    int
	full    bool
}

// NewActionHistory creates a history holding at most size entries.
func NewActionHistory(size int) *ActionHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &ActionHistory{entries: make([]ActionEntry, size)}
}

// Add records an entry, evicting the oldest when full.
func (h *ActionHistory) Add(e ActionEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// List returns the entries, newest first.
func (h *ActionHistory) List() []ActionEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.entries)
	}
	out := make([]ActionEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}
