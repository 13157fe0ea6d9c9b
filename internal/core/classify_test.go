package core

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status     Status
		label      string
		severity   Severity
		actionable bool
	}{
		{StatusClean, "Verified", SeveritySuccess, false},
		{StatusCriticalMismatch, "Math Error", SeverityCritical, true},
		{StatusGhostError, "Ghost Page", SeverityWarning, true},
		{StatusResolved, "Resolved", SeverityNeutral, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c, err := Classify(tt.status)
			if err != nil {
				t.Fatalf("Classify(%q) error = %v", tt.status, err)
			}
			if c.Label != tt.label {
				t.Errorf("Label = %q, want %q", c.Label, tt.label)
			}
			if c.Severity != tt.severity {
				t.Errorf("Severity = %q, want %q", c.Severity, tt.severity)
			}
			if c.Actionable != tt.actionable {
				t.Errorf("Actionable = %v, want %v", c.Actionable, tt.actionable)
			}
		})
	}
}

func TestClassify_UnknownStatus(t *testing.T) {
	for _, s := range []Status{"", "PENDING", "clean", "Resolved"} {
		t.Run(string(s), func(t *testing.T) {
			c, err := Classify(s)
			if !errors.Is(err, ErrUnknownStatus) {
				t.Fatalf("Classify(%q) error = %v, want ErrUnknownStatus", s, err)
			}
			if c.Severity != SeverityError {
				t.Errorf("Severity = %q, want %q", c.Severity, SeverityError)
			}
			if c.Actionable {
				t.Error("unknown status must not be actionable")
			}
			if c.Status != s {
				t.Errorf("raw status not preserved: got %q", c.Status)
			}
		})
	}
}

func TestStatus_IsError(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusClean, false},
		{StatusResolved, false},
		{StatusCriticalMismatch, true},
		{StatusGhostError, true},
		{"SOMETHING_NEW", true},
	}
	for _, tt := range tests {
		if got := tt.status.IsError(); got != tt.want {
			t.Errorf("%q.IsError() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAuditRecord_Resolvable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusClean, false},
		{StatusCriticalMismatch, true},
		{StatusGhostError, true},
		{StatusResolved, false},
		{"UNKNOWN_THING", false},
	}
	for _, tt := range tests {
		r := AuditRecord{ID: "1", Status: tt.status}
		if got := r.Resolvable(); got != tt.want {
			t.Errorf("Resolvable() for %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}
