package core

// classify.go maps the backend's lifecycle status onto its display contract.
//
// The set of statuses is closed. Classify switches over it exhaustively and
// returns ErrUnknownStatus for anything else, so a new backend status shows up
// as an explicit error badge instead of quietly rendering as something known.

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state reported by the backend for an audit record.
// The raw string is preserved on decode so unrecognised values stay visible.
type Status string

const (
	StatusClean            Status = "CLEAN"
	StatusCriticalMismatch Status = "CRITICAL_MISMATCH"
	StatusGhostError       Status = "GHOST_ERROR"
	StatusResolved         Status = "RESOLVED"
)

// ErrUnknownStatus is returned by Classify for values outside the known set.
var ErrUnknownStatus = errors.New("unknown status")

// Statuses lists the known statuses in chart order.
func Statuses() []Status {
	return []Status{StatusClean, StatusCriticalMismatch, StatusGhostError, StatusResolved}
}

// Severity is the visual weight of a status.
type Severity string

const (
	SeveritySuccess  Severity = "success"
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityNeutral  Severity = "neutral"
	SeverityError    Severity = "error" // rendering error, unknown status
)

// Classification is the presentation contract for one status.
type Classification struct {
	Status     Status   `json:"status"`
	Label      string   `json:"label"`
	Severity   Severity `json:"severity"`
	Actionable bool     `json:"actionable"`
}

// Classify returns the presentation contract for s.
func Classify(s Status) (Classification, error) {
	switch s {
	case StatusClean:
		return Classification{Status: s, Label: "Verified", Severity: SeveritySuccess}, nil
	case StatusCriticalMismatch:
		return Classification{Status: s, Label: "Math Error", Severity: SeverityCritical, Actionable: true}, nil
	case StatusGhostError:
		return Classification{Status: s, Label: "Ghost Page", Severity: SeverityWarning, Actionable: true}, nil
	case StatusResolved:
		return Classification{Status: s, Label: "Resolved", Severity: SeverityNeutral}, nil
	default:
		return Classification{Status: s, Label: "Unknown status", Severity: SeverityError},
			fmt.Errorf("%w: %q", ErrUnknownStatus, string(s))
	}
}

// Known reports whether s is one of the four lifecycle statuses.
func (s Status) Known() bool {
	_, err := Classify(s)
	return err == nil
}

// IsError reports whether s counts as an open error for the distribution
// summary. Unknown statuses count as errors.
func (s Status) IsError() bool {
	return s != StatusClean && s != StatusResolved
}
