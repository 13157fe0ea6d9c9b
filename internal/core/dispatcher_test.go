package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestDispatcher(fb *fakeBackend) (*Dispatcher, *Store) {
	store := NewStore(fb)
	d := NewDispatcher(fb, store, DispatcherConfig{
		ActionTimeout: time.Second,
		UploadTimeout: time.Second,
		SyncTimeout:   time.Second,
		HistorySize:   3,
	})
	return d, store
}

func waitOutcome(t *testing.T, p *Pending) (Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := p.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) && out.Finished.IsZero() {
		t.Fatal("action did not finish")
	}
	return out, err
}

func TestDispatcher_ResolveMarksRecordResolved(t *testing.T) {
	fb := &fakeBackend{}
	fb.set([]AuditRecord{
		{ID: "1", SheetType: SheetOMR, Status: StatusCriticalMismatch},
		{ID: "2", SheetType: SheetOMR, Status: StatusClean},
	}, nil)
	d, store := newTestDispatcher(fb)
	if _, err := store.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	p, err := d.Resolve(context.Background(), "1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	out, err := waitOutcome(t, p)
	if err != nil {
		t.Fatalf("outcome error = %v", err)
	}
	if p.State() != StateIdle || d.State() != StateIdle {
		t.Error("dispatcher should be idle after the action completes")
	}

	rec, ok := out.Snapshot.Find("1")
	if !ok {
		t.Fatal("record missing from post-action snapshot")
	}
	if rec.Status != StatusResolved || rec.Resolvable() {
		t.Errorf("record = %+v, want RESOLVED without resolve action", rec)
	}
	if store.Snapshot().Version != out.Snapshot.Version {
		t.Error("outcome snapshot is not the store's current snapshot")
	}
	if got := fb.lastID.Load(); got != p.ID() {
		t.Errorf("backend saw action id %v, want %s", got, p.ID())
	}
}

func TestDispatcher_ResolveRejectedLocally(t *testing.T) {
	fb := &fakeBackend{}
	fb.set([]AuditRecord{{ID: "1", Status: StatusClean}, {ID: "2", Status: "BOGUS"}}, nil)
	d, store := newTestDispatcher(fb)
	if _, err := store.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	tests := []struct {
		id   RecordID
		want error
	}{
		{"missing", ErrRecordNotFound},
		{"1", ErrNotResolvable},
		{"2", ErrNotResolvable},
	}
	for _, tt := range tests {
		if _, err := d.Resolve(context.Background(), tt.id); !errors.Is(err, tt.want) {
			t.Errorf("Resolve(%s) error = %v, want %v", tt.id, err, tt.want)
		}
	}
	if fb.resolves.Load() != 0 {
		t.Error("rejected resolve reached the backend")
	}
}

func TestDispatcher_RejectsWhileBusy(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{})}
	d, _ := newTestDispatcher(fb)

	first, err := d.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if first.State() != StateBusy || d.State() != StateBusy {
		t.Fatal("dispatcher should be busy while the call is in flight")
	}

	if _, err := d.Simulate(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Simulate() error = %v, want ErrBusy", err)
	}
	req := UploadRequest{SheetType: SheetDescriptive, ManualTotal: score("1"), Script: file("a.png")}
	if _, err := d.Upload(context.Background(), req); !errors.Is(err, ErrBusy) {
		t.Errorf("Upload() while busy error = %v, want ErrBusy", err)
	}

	close(fb.block)
	if _, err := waitOutcome(t, first); err != nil {
		t.Fatalf("first action error = %v", err)
	}
	if n := fb.simulates.Load(); n != 1 {
		t.Errorf("simulate calls = %d, want 1 (rejected actions must not be queued)", n)
	}
	if n := fb.uploads.Load(); n != 0 {
		t.Errorf("upload calls = %d, want 0", n)
	}

	p, err := d.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate() after idle error = %v", err)
	}
	waitOutcome(t, p)
}

func TestDispatcher_SyncsEvenWhenActionFails(t *testing.T) {
	fb := &fakeBackend{callErr: &TransportError{Op: "simulate", StatusCode: 500}}
	fb.set(records([2]string{"OMR", "CLEAN"}), nil)
	d, store := newTestDispatcher(fb)

	p, err := d.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	out, err := waitOutcome(t, p)
	if !IsTransport(err) {
		t.Fatalf("outcome error = %v, want TransportError", err)
	}
	if out.SyncErr != nil {
		t.Errorf("SyncErr = %v, want nil", out.SyncErr)
	}
	if fb.fetches.Load() != 1 || store.Snapshot().Version != 1 {
		t.Error("store was not re-synced after failed action")
	}
	if d.State() != StateIdle {
		t.Error("dispatcher must return to idle after a failed action")
	}
}

func TestDispatcher_SyncFailureReportedSeparately(t *testing.T) {
	fb := &fakeBackend{}
	fb.set(nil, &TransportError{Op: "sync", Err: errors.New("connection refused")})
	d, _ := newTestDispatcher(fb)

	p, err := d.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	out, err := waitOutcome(t, p)
	if err != nil {
		t.Errorf("action error = %v, want nil", err)
	}
	if !IsTransport(out.SyncErr) {
		t.Errorf("SyncErr = %v, want TransportError", out.SyncErr)
	}
}

func TestDispatcher_UploadValidationNeverBusy(t *testing.T) {
	fb := &fakeBackend{}
	d, _ := newTestDispatcher(fb)

	p, err := d.Upload(context.Background(), UploadRequest{SheetType: SheetOMR, ManualTotal: score("3"), Script: file("a.png")})
	if p != nil {
		t.Error("invalid upload returned a pending action")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has(FieldAnswerKey) {
		t.Fatalf("Upload() error = %v, want ValidationError for %s", err, FieldAnswerKey)
	}
	if d.State() != StateIdle {
		t.Error("validation failure must not enter busy")
	}
	if fb.uploads.Load() != 0 || fb.fetches.Load() != 0 {
		t.Error("validation failure touched the network")
	}
}

func TestDispatcher_UploadAddsRecord(t *testing.T) {
	fb := &fakeBackend{}
	d, _ := newTestDispatcher(fb)

	p, err := d.Upload(context.Background(), UploadRequest{
		SheetID:     " S-1 ",
		SheetType:   "omr",
		ManualTotal: score("12"),
		Script:      file("a.png"),
		AnswerKey:   file("key.pdf"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	out, err := waitOutcome(t, p)
	if err != nil {
		t.Fatalf("outcome error = %v", err)
	}
	rec, ok := out.Snapshot.Find("S-1")
	if !ok {
		t.Fatalf("uploaded record missing: %+v", out.Snapshot.Records)
	}
	if rec.SheetType != SheetOMR {
		t.Errorf("SheetType = %q, want normalized %q", rec.SheetType, SheetOMR)
	}
}

func TestDispatcher_CallerCancelDoesNotAbortAction(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{})}
	d, _ := newTestDispatcher(fb)

	ctx, cancel := context.WithCancel(context.Background())
	p, err := d.Simulate(ctx)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	cancel()

	if _, err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() with cancelled ctx = %v, want context.Canceled", err)
	}
	close(fb.block)

	out, err := waitOutcome(t, p)
	if err != nil {
		t.Fatalf("action error = %v", err)
	}
	if out.Snapshot.Len() != 1 {
		t.Errorf("simulated record missing after caller cancel")
	}
}

func TestDispatcher_ActionTimeout(t *testing.T) {
	fb := &fakeBackend{block: make(chan struct{})}
	defer close(fb.block)
	store := NewStore(fb)
	d := NewDispatcher(fb, store, DispatcherConfig{ActionTimeout: 20 * time.Millisecond, SyncTimeout: time.Second})

	p, err := d.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	_, err = waitOutcome(t, p)
	if !errors.Is(err, context.DeadlineExceeded) || !IsTransport(err) {
		t.Errorf("outcome error = %v, want TransportError wrapping DeadlineExceeded", err)
	}
	if d.State() != StateIdle {
		t.Error("dispatcher should be idle after timeout")
	}
}

func TestDispatcher_History(t *testing.T) {
	fb := &fakeBackend{}
	d, _ := newTestDispatcher(fb)

	for i := 0; i < 4; i++ {
		p, err := d.Simulate(context.Background())
		if err != nil {
			t.Fatalf("Simulate() #%d error = %v", i, err)
		}
		waitOutcome(t, p)
	}

	h := d.History()
	if len(h) != 3 {
		t.Fatalf("history length = %d, want 3 (bounded)", len(h))
	}
	if h[0].Version < h[1].Version || h[1].Version < h[2].Version {
		t.Errorf("history not newest first: %+v", h)
	}
	for _, e := range h {
		if !e.OK || e.Kind != ActionSimulate {
			t.Errorf("unexpected entry %+v", e)
		}
	}
}

// panickingBackend fails every mutating call with a panic.
type panickingBackend struct {
	*fakeBackend
}

func (panickingBackend) SimulateExam(ctx context.Context) error {
	panic("backend exploded")
}

func TestDispatcher_PanicStillResyncsAndReleases(t *testing.T) {
	fb := &fakeBackend{}
	fb.set(records([2]string{"OMR", "CLEAN"}), nil)
	store := NewStore(fb)
	d := NewDispatcher(panickingBackend{fb}, store, DispatcherConfig{
		ActionTimeout: time.Second,
		SyncTimeout:   time.Second,
	})

	p, err := d.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	out, err := waitOutcome(t, p)
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("outcome error = %v, want panic error", err)
	}
	if out.SyncErr != nil {
		t.Errorf("SyncErr = %v, want nil", out.SyncErr)
	}
	if fb.fetches.Load() != 1 || out.Snapshot.Version != 1 {
		t.Errorf("fetches = %d version = %d, want re-sync after panic", fb.fetches.Load(), out.Snapshot.Version)
	}
	if d.State() != StateIdle {
		t.Error("dispatcher must return to idle after a panic")
	}
	if h := d.History(); len(h) != 1 {
		t.Errorf("history has %d entries, want 1", len(h))
	}
}
