package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RecordID is the backend-assigned identifier of an audit record.
// The backend currently emits integers; strings are accepted as well so the
// dashboard never depends on the identifier's representation.
type RecordID string

// UnmarshalJSON accepts both JSON numbers and JSON strings.
func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

func (id RecordID) String() string { return string(id) }

// SheetType is the answer-format family of a script.
type SheetType string

const (
	SheetDescriptive  SheetType = "DESCRIPTIVE"
	SheetOMR          SheetType = "OMR"
	SheetPartiallyOMR SheetType = "PARTIALLY_OMR"
	SheetTypeUnknown  SheetType = "UNKNOWN" // distribution sentinel, never a valid upload value
)

const partiallyOMRLegacy = "partially omr"

// SheetTypes lists the valid sheet types in display order.
func SheetTypes() []SheetType {
	return []SheetType{SheetDescriptive, SheetOMR, SheetPartiallyOMR}
}

// ParseSheetType normalizes a raw sheet type. The older form spelling
// "Partially OMR" is accepted as PARTIALLY_OMR.
func ParseSheetType(raw string) (SheetType, error) {
	v := strings.TrimSpace(raw)
	switch strings.ToUpper(v) {
	case string(SheetDescriptive):
		return SheetDescriptive, nil
	case string(SheetOMR):
		return SheetOMR, nil
	case string(SheetPartiallyOMR):
		return SheetPartiallyOMR, nil
	}
	if strings.ToLower(v) == partiallyOMRLegacy {
		return SheetPartiallyOMR, nil
	}
	return "", fmt.Errorf("invalid sheet type %q", raw)
}

// RequiresAnswerKey reports whether uploads of this type need a reference file.
func (t SheetType) RequiresAnswerKey() bool {
	switch t {
	case SheetOMR, SheetPartiallyOMR:
		return true
	}
	return false
}

// Label returns the short table label for the type.
func (t SheetType) Label() string {
	switch t {
	case SheetOMR:
		return "OMR"
	case SheetPartiallyOMR:
		return "PARTIAL OMR"
	case SheetDescriptive:
		return "DESC"
	}
	return string(SheetTypeUnknown)
}

// AuditRecord is one submitted answer script as reported by the backend.
type AuditRecord struct {
	ID               RecordID            `json:"id"`
	SecretCode       string              `json:"secret_code"`
	SheetType        SheetType           `json:"sheet_type"`
	CVTotalScore     decimal.NullDecimal `json:"cv_total_score"`
	ManualTotalEntry decimal.NullDecimal `json:"manual_total_entry"`
	Status           Status              `json:"status"`
	FileURL          string              `json:"file_url,omitempty"`
	IsGhostRisk      bool                `json:"is_ghost_risk,omitempty"`
}

// NormalizedSheetType returns the canonical sheet type, or SheetTypeUnknown
// when the backend value is empty or unrecognised.
func (r AuditRecord) NormalizedSheetType() SheetType {
	t, err := ParseSheetType(string(r.SheetType))
	if err != nil {
		return SheetTypeUnknown
	}
	return t
}

// Resolvable reports whether the record exposes a resolve action.
func (r AuditRecord) Resolvable() bool {
	c, err := Classify(r.Status)
	return err == nil && c.Actionable
}

// HasEvidence reports whether the record links to a stored image or document.
func (r AuditRecord) HasEvidence() bool {
	return strings.TrimSpace(r.FileURL) != ""
}

// FormatScore renders a possibly absent score for display.
func FormatScore(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}
