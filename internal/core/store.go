package core

// store.go implements the client-owned Record Store.
//
// The store holds one immutable Snapshot behind an atomic pointer. Sync
// fetches the whole audit queue and swaps the pointer; there is no patching
// or merging. A failed fetch leaves the previous snapshot in place and is
// kept as a non-fatal notice until the next successful sync.
//
// Concurrent Sync calls share a single backend fetch. Every new snapshot is
// fanned out to subscribers (the SSE stream) without blocking on slow readers.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// RecordFetcher loads the full audit queue from the backend.
type RecordFetcher interface {
	AuditQueue(ctx context.Context) ([]AuditRecord, error)
}

// Snapshot is one consistent view of the audit queue together with the
// summaries derived from it. Snapshots are never mutated after creation.
type Snapshot struct {
	Records      []AuditRecord `json:"records"`
	Version      uint64        `json:"version"`
	SyncedAt     time.Time     `json:"synced_at"`
	Health       HealthSummary `json:"health"`
	Distribution []TypeBucket  `json:"distribution"`
}

// Find returns the record with the given id.
func (s Snapshot) Find(id RecordID) (AuditRecord, bool) {
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return AuditRecord{}, false
}

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Records)
}

// newSnapshot builds a snapshot and its summaries.
func newSnapshot(records []AuditRecord, version uint64, at time.Time) Snapshot {
	if records == nil {
		records = []AuditRecord{}
	}
	return Snapshot{
		Records:      records,
		Version:      version,
		SyncedAt:     at,
		Health:       Health(records),
		Distribution: Distribution(records),
	}
}

// Store is the in-memory cache of the audit queue.
type Store struct {
	fetcher RecordFetcher
	current atomic.Pointer[Snapshot]
	group   singleflight.Group
	now     func() time.Time

	syncTimeout time.Duration
	started     atomic.Uint64 // fetch sequence, incremented when a fetch begins

	mu        sync.Mutex
	applied   uint64 // sequence of the newest fetch whose result was applied
	notice    error
	listeners map[int]chan Snapshot
	nextID    int
}

// DefaultSyncTimeout bounds one backend fetch.
const DefaultSyncTimeout = 10 * time.Second

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSyncTimeout sets the bound on one backend fetch.
func WithSyncTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.syncTimeout = d
		}
	}
}

// NewStore creates a store with an empty version-0 snapshot.
func NewStore(fetcher RecordFetcher, opts ...StoreOption) *Store {
	s := &Store{
		fetcher:     fetcher,
		now:         time.Now,
		syncTimeout: DefaultSyncTimeout,
		listeners:   make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := newSnapshot(nil, 0, time.Time{})
	s.current.Store(&empty)
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Notice returns the error of the last sync, or nil if it succeeded.
func (s *Store) Notice() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// Sync replaces the snapshot with a fresh copy of the backend queue.
// On failure the previous snapshot is kept and returned with the error.
//
// Callers arriving while a fetch is in flight share its result. The shared
// fetch runs detached from any one caller and is bounded by the store's own
// sync timeout, so a caller that gives up only stops its own wait.
func (s *Store) Sync(ctx context.Context) (Snapshot, error) {
	ch := s.group.DoChan("sync", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
		defer cancel()
		return s.doSync(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			slog.Debug("store: sync shared with concurrent caller")
		}
		return res.Val.(Snapshot), res.Err
	case <-ctx.Done():
		return s.Snapshot(), fmt.Errorf("sync: %w", ctx.Err())
	}
}

// SyncFresh is Sync for callers that just changed backend state: it never
// joins a fetch that started before the call.
func (s *Store) SyncFresh(ctx context.Context) (Snapshot, error) {
	s.group.Forget("sync")
	return s.Sync(ctx)
}

func (s *Store) doSync(ctx context.Context) (Snapshot, error) {
	seq := s.started.Add(1)
	start := s.now()

	records, err := s.fetcher.AuditQueue(ctx)
	if err == nil {
		err = checkUnique(records)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A fetch that started before the last applied one carries older data.
	if seq < s.applied {
		slog.Debug("store: discarding stale fetch", "seq", seq, "applied", s.applied)
		return s.Snapshot(), err
	}
	s.applied = seq

	if err != nil {
		s.notice = err
		prev := s.Snapshot()
		slog.Warn("store: sync failed, keeping previous snapshot",
			"error", err,
			"version", prev.Version,
			"records", prev.Len(),
		)
		return prev, err
	}

	prev := s.current.Load()
	next := newSnapshot(records, prev.Version+1, s.now())
	s.current.Store(&next)
	s.notice = nil

	slog.Debug("store: snapshot replaced",
		"version", next.Version,
		"records", next.Len(),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	s.broadcastLocked(next)
	return next, nil
}

// checkUnique enforces id uniqueness within one snapshot.
func checkUnique(records []AuditRecord) error {
	seen := make(map[RecordID]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			return &TransportError{Op: "sync", Err: fmt.Errorf("%w: duplicate record id %q", ErrInvalidSnapshot, r.ID)}
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// Subscribe returns a channel that receives every new snapshot, and a
// function that unsubscribes and closes the channel. The current snapshot is
// delivered immediately. Slow subscribers miss intermediate snapshots rather
// than blocking the store.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	ch <- s.Snapshot()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// broadcastLocked delivers snap to every listener, replacing any
// undelivered older snapshot in its buffer. s.mu must be held.
func (s *Store) broadcastLocked(snap Snapshot) {
	for _, ch := range s.listeners {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
