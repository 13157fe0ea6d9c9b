package core

// dispatcher.go runs the dashboard's mutating actions.
//
// Every action follows the same protocol:
//
//  1. take the busy gate (rejected with ErrBusy if another action runs)
//  2. call the backend under a bounded timeout
//  3. re-sync the store, whether or not the call succeeded
//  4. release the gate
//
// The call runs detached from the request that started it, so a client that
// disconnects cannot leave the gate half-released. Callers get a *Pending
// handle and may Wait on it or poll Done.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// State is the dispatcher's two-state machine.
type State int

const (
	StateIdle State = iota
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateBusy:
		return "busy"
	default:
		return "idle"
	}
}

// ActionKind names a dispatcher action.
type ActionKind string

const (
	ActionSimulate ActionKind = "simulate"
	ActionResolve  ActionKind = "resolve"
	ActionUpload   ActionKind = "upload"
)

// Backend is the set of mutating backend calls the dispatcher issues.
type Backend interface {
	SimulateExam(ctx context.Context) error
	Resolve(ctx context.Context, id RecordID) error
	UploadSheet(ctx context.Context, req UploadRequest) error
}

// DispatcherConfig bounds the dispatcher's backend calls.
type DispatcherConfig struct {
	ActionTimeout time.Duration // simulate and resolve (default: 15s)
	UploadTimeout time.Duration // upload (default: 60s)
	SyncTimeout   time.Duration // post-action re-sync (default: 10s)
	MaxConcurrent int           // gate capacity (default: 1)
	HistorySize   int           // retained outcomes (default: 50)
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 15 * time.Second
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = 60 * time.Second
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 10 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrentActions
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	return c
}

// Outcome is the result of one finished action. The action error and the
// re-sync error are reported separately: a failed call is still followed by
// a sync, and a successful call may be followed by a failed one.
type Outcome struct {
	ActionID  string
	Kind      ActionKind
	RecordID  RecordID
	ActionErr error
	SyncErr   error
	Snapshot  Snapshot
	Started   time.Time
	Finished  time.Time
}

// Duration returns how long the action kept the dispatcher busy.
func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Pending is the handle of an accepted action.
type Pending struct {
	id      string
	kind    ActionKind
	done    chan struct{}
	outcome Outcome
}

// ID returns the action ID, also sent to the backend as X-Request-ID.
func (p *Pending) ID() string { return p.id }

// Kind returns the action kind.
func (p *Pending) Kind() ActionKind { return p.kind }

// Done is closed once the action and its re-sync have finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// State reports busy until the action has finished.
func (p *Pending) State() State {
	select {
	case <-p.done:
		return StateIdle
	default:
		return StateBusy
	}
}

// Wait blocks until the action finishes or ctx is done. Cancelling ctx only
// stops waiting; the action itself keeps running to completion. The returned
// error is the action error; a re-sync failure is reported in Outcome.SyncErr.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, p.outcome.ActionErr
	case <-ctx.Done():
		return Outcome{ActionID: p.id, Kind: p.kind}, ctx.Err()
	}
}

// Dispatcher serializes mutating actions against the backend.
type Dispatcher struct {
	backend Backend
	store   *Store
	gate    *ActionGate
	history *ActionHistory
	cfg     DispatcherConfig
	now     func() time.Time
}

// NewDispatcher creates a dispatcher that re-syncs store after every action.
func NewDispatcher(backend Backend, store *Store, cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		backend: backend,
		store:   store,
		gate:    NewActionGate(cfg.MaxConcurrent),
		history: NewActionHistory(cfg.HistorySize),
		cfg:     cfg,
		now:     time.Now,
	}
}

// State reports whether an action is in flight.
func (d *Dispatcher) State() State {
	if d.gate.Busy() {
		return StateBusy
	}
	return StateIdle
}

// Gate exposes the busy gate for health reporting and shutdown draining.
func (d *Dispatcher) Gate() *ActionGate { return d.gate }

// History returns recent outcomes, newest first.
func (d *Dispatcher) History() []ActionEntry { return d.history.List() }

// Simulate asks the backend to generate a simulated exam record.
func (d *Dispatcher) Simulate(ctx context.Context) (*Pending, error) {
	return d.start(ctx, ActionSimulate, "", d.cfg.ActionTimeout, func(ctx context.Context) error {
		return d.backend.SimulateExam(ctx)
	})
}

// Resolve marks a discrepancy as reviewed. Only records present in the
// current snapshot with an actionable status can be resolved.
func (d *Dispatcher) Resolve(ctx context.Context, id RecordID) (*Pending, error) {
	rec, ok := d.store.Snapshot().Find(id)
	if !ok {
		return nil, fmt.Errorf("resolve %s: %w", id, ErrRecordNotFound)
	}
	if !rec.Resolvable() {
		return nil, fmt.Errorf("resolve %s (status %q): %w", id, rec.Status, ErrNotResolvable)
	}
	return d.start(ctx, ActionResolve, id, d.cfg.ActionTimeout, func(ctx context.Context) error {
		return d.backend.Resolve(ctx, id)
	})
}

// Upload submits an answer script. The request is validated first; an
// invalid request returns a *ValidationError without entering busy.
func (d *Dispatcher) Upload(ctx context.Context, req UploadRequest) (*Pending, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalized()
	return d.start(ctx, ActionUpload, "", d.cfg.UploadTimeout, func(ctx context.Context) error {
		return d.backend.UploadSheet(ctx, req)
	})
}

func (d *Dispatcher) start(ctx context.Context, kind ActionKind, recordID RecordID, timeout time.Duration, call func(context.Context) error) (*Pending, error) {
	if !d.gate.TryAcquire() {
		slog.Info("dispatcher: action rejected", "kind", kind, "record_id", recordID, "state", StateBusy.String())
		return nil, fmt.Errorf("%s: %w", kind, ErrBusy)
	}

	p := &Pending{
		id:   uuid.NewString(),
		kind: kind,
		done: make(chan struct{}),
	}

	base := ContextWithActionID(context.WithoutCancel(ctx), p.id)
	go d.run(base, p, recordID, timeout, call)
	return p, nil
}

func (d *Dispatcher) run(ctx context.Context, p *Pending, recordID RecordID, timeout time.Duration, call func(context.Context) error) {
	log := slog.With("action_id", p.id, "kind", p.kind)
	if recordID != "" {
		log = log.With("record_id", recordID)
	}

	out := Outcome{ActionID: p.id, Kind: p.kind, RecordID: recordID, Started: d.now()}
	defer func() {
		d.gate.Release()
		p.outcome = out
		d.history.Add(newActionEntry(out, ClientIPFromContext(ctx)))
		close(p.done)
	}()

	log.Info("dispatcher: action started")

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	out.ActionErr = safeCall(callCtx, p.kind, call)
	cancel()
	if out.ActionErr != nil {
		if errors.Is(out.ActionErr, context.DeadlineExceeded) && !IsTransport(out.ActionErr) {
			out.ActionErr = &TransportError{Op: string(p.kind), Err: out.ActionErr}
		}
		log.Warn("dispatcher: action failed", "error", out.ActionErr)
	}

	syncCtx, cancelSync := context.WithTimeout(ctx, d.cfg.SyncTimeout)
	out.Snapshot, out.SyncErr = d.store.SyncFresh(syncCtx)
	cancelSync()

	out.Finished = d.now()
	log.Info("dispatcher: action finished",
		"ok", out.ActionErr == nil,
		"sync_ok", out.SyncErr == nil,
		"version", out.Snapshot.Version,
		"duration_ms", out.Duration().Milliseconds(),
	)
}

// safeCall runs call and turns a panic into an error, so the re-sync and
// gate release in run still happen.
func safeCall(ctx context.Context, kind ActionKind, call func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatcher: action panicked", "kind", kind, "panic", r, "action_id", ActionIDFromContext(ctx))
			err = fmt.Errorf("%s: panic: %v", kind, r)
		}
	}()
	return call(ctx)
}
