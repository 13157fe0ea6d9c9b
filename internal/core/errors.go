package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the dispatcher and store.
var (
	// ErrBusy is returned when an action is triggered while another one is
	// still in flight. The action is rejected, never queued.
	ErrBusy = errors.New("dispatcher busy: another action is in progress")

	// ErrRecordNotFound is returned when an action names a record that is not
	// in the current snapshot.
	ErrRecordNotFound = errors.New("record not found")

	// ErrNotResolvable is returned when resolve targets a record whose status
	// does not expose a resolve action.
	ErrNotResolvable = errors.New("record is not resolvable")

	// ErrInvalidSnapshot is returned when the backend's collection violates
	// the snapshot invariants (e.g. duplicate ids).
	ErrInvalidSnapshot = errors.New("invalid audit queue")
)

// TransportError reports a failed backend call: the backend was unreachable,
// the call timed out, or it answered with a non-success status.
type TransportError struct {
	Op         string // "sync", "simulate", "resolve", "upload"
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("backend %s: status %d %s: %v", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
		}
		return fmt.Sprintf("backend %s: status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
