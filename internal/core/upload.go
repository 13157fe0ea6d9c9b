package core

// upload.go defines the outbound upload submission.
//
// The required-field set depends on the sheet format: the script file and the
// human-entered score are always required, the answer key only for OMR and
// PARTIALLY_OMR sheets. The sheet identifier is advisory metadata and never
// blocks a submission.

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Multipart field names understood by the backend.
const (
	FieldScript      = "file"
	FieldSheetType   = "sheet_type"
	FieldManualTotal = "manual_total_entry"
	FieldAnswerKey   = "reference_file"
	FieldSheetID     = "secret_code"

	// FieldAnswerKeyAlt is accepted from clients that name the answer key
	// after the form label. It is sent on as FieldAnswerKey.
	FieldAnswerKeyAlt = "answer_key"
)

// FilePart is one file attached to an upload.
type FilePart struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f *FilePart) empty() bool {
	return f == nil || len(f.Data) == 0
}

// UploadRequest is a validated-before-send submission of one answer script.
type UploadRequest struct {
	SheetID     string           `form:"secret_code"`
	SheetType   SheetType        `form:"sheet_type" validate:"required,sheet_type"`
	ManualTotal *decimal.Decimal `form:"manual_total_entry" validate:"required"`
	Script      *FilePart        `form:"file" validate:"required"`
	AnswerKey   *FilePart        `form:"reference_file"`
}

// Validate checks the request locally. It returns a *ValidationError naming
// every missing or invalid field, or nil when the request may be sent.
func (r UploadRequest) Validate() error {
	if err := uploadValidator().Struct(r); err != nil {
		return toValidationError(err)
	}
	return nil
}

// Normalized returns a copy with the sheet type in canonical form and the
// sheet identifier trimmed. Call after Validate.
func (r UploadRequest) Normalized() UploadRequest {
	if st, err := ParseSheetType(string(r.SheetType)); err == nil {
		r.SheetType = st
	}
	r.SheetID = strings.TrimSpace(r.SheetID)
	if !r.SheetType.RequiresAnswerKey() && r.AnswerKey.empty() {
		r.AnswerKey = nil
	}
	return r
}

// ParseManualTotal parses the human score from a form value. A blank value
// returns nil so the required rule reports it as missing; an unparseable value
// is reported as invalid.
func ParseManualTotal(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &ValidationError{Fields: []FieldError{{
			Field:   FieldManualTotal,
			Rule:    "number",
			Message: ruleMessage("number", ""),
		}}}
	}
	return &d, nil
}
