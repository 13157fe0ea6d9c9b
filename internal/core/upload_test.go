package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func score(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func file(name string) *FilePart {
	return &FilePart{Name: name, ContentType: "image/png", Data: []byte("scan")}
}

// ============================================================================
// UploadRequest.Validate Tests
// ============================================================================

func TestUploadRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        UploadRequest
		wantFields []string // nil means valid
	}{
		{
			name: "descriptive without answer key",
			req:  UploadRequest{SheetType: SheetDescriptive, ManualTotal: score("42"), Script: file("a.png")},
		},
		{
			name: "omr with answer key",
			req:  UploadRequest{SheetType: SheetOMR, ManualTotal: score("10"), Script: file("a.png"), AnswerKey: file("key.pdf")},
		},
		{
			name: "blank sheet id is accepted",
			req:  UploadRequest{SheetID: "   ", SheetType: SheetDescriptive, ManualTotal: score("0"), Script: file("a.png")},
		},
		{
			name: "legacy partially omr spelling",
			req:  UploadRequest{SheetType: "Partially OMR", ManualTotal: score("7.5"), Script: file("a.png"), AnswerKey: file("key.pdf")},
		},
		{
			name:       "omr missing answer key",
			req:        UploadRequest{SheetType: SheetOMR, ManualTotal: score("10"), Script: file("a.png")},
			wantFields: []string{FieldAnswerKey},
		},
		{
			name:       "partially omr with empty answer key",
			req:        UploadRequest{SheetType: SheetPartiallyOMR, ManualTotal: score("10"), Script: file("a.png"), AnswerKey: &FilePart{Name: "key.pdf"}},
			wantFields: []string{FieldAnswerKey},
		},
		{
			name:       "missing script",
			req:        UploadRequest{SheetType: SheetDescriptive, ManualTotal: score("5")},
			wantFields: []string{FieldScript},
		},
		{
			name:       "zero-byte script",
			req:        UploadRequest{SheetType: SheetDescriptive, ManualTotal: score("5"), Script: &FilePart{Name: "a.png"}},
			wantFields: []string{FieldScript},
		},
		{
			name:       "missing score",
			req:        UploadRequest{SheetType: SheetDescriptive, Script: file("a.png")},
			wantFields: []string{FieldManualTotal},
		},
		{
			name:       "negative score",
			req:        UploadRequest{SheetType: SheetDescriptive, ManualTotal: score("-1"), Script: file("a.png")},
			wantFields: []string{FieldManualTotal},
		},
		{
			name:       "invalid sheet type",
			req:        UploadRequest{SheetType: "ESSAY", ManualTotal: score("5"), Script: file("a.png")},
			wantFields: []string{FieldSheetType},
		},
		{
			name:       "everything missing for omr",
			req:        UploadRequest{SheetType: SheetOMR},
			wantFields: []string{FieldManualTotal, FieldScript, FieldAnswerKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			if !reflect.DeepEqual(got, tt.wantFields) {
				t.Errorf("failed fields = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestValidationError_Missing(t *testing.T) {
	err := UploadRequest{SheetType: SheetOMR, ManualTotal: score("-3")}.Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{FieldScript, FieldAnswerKey}
	if got := verr.Missing(); !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
	if !verr.Has(FieldManualTotal) {
		t.Error("expected negative score to be reported")
	}
	if verr.Has(FieldSheetID) {
		t.Error("sheet id must never be reported")
	}
}

// ============================================================================
// Normalization Tests
// ============================================================================

func TestUploadRequest_Normalized(t *testing.T) {
	req := UploadRequest{
		SheetID:     "  S-17 ",
		SheetType:   "partially_omr",
		ManualTotal: score("3"),
		Script:      file("a.png"),
		AnswerKey:   file("key.pdf"),
	}.Normalized()

	if req.SheetType != SheetPartiallyOMR {
		t.Errorf("SheetType = %q, want %q", req.SheetType, SheetPartiallyOMR)
	}
	if req.SheetID != "S-17" {
		t.Errorf("SheetID = %q, want trimmed", req.SheetID)
	}
	if req.AnswerKey == nil {
		t.Error("answer key must be kept for partially omr")
	}

	desc := UploadRequest{SheetType: SheetDescriptive, AnswerKey: &FilePart{}}.Normalized()
	if desc.AnswerKey != nil {
		t.Error("empty answer key should be dropped for descriptive sheets")
	}
}

func TestParseManualTotal(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantNil bool
		wantErr bool
	}{
		{raw: "42", want: "42"},
		{raw: " 17.5 ", want: "17.5"},
		{raw: "", wantNil: true},
		{raw: "   ", wantNil: true},
		{raw: "abc", wantErr: true},
		{raw: "1,5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseManualTotal(tt.raw)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) || !verr.Has(FieldManualTotal) {
					t.Fatalf("ParseManualTotal(%q) error = %v, want manual_total_entry ValidationError", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseManualTotal(%q) unexpected error: %v", tt.raw, err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseManualTotal(%q) = %v, want nil", tt.raw, got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("ParseManualTotal(%q) = %v, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseSheetType(t *testing.T) {
	tests := []struct {
		raw     string
		want    SheetType
		wantErr bool
	}{
		{"DESCRIPTIVE", SheetDescriptive, false},
		{"omr", SheetOMR, false},
		{" PARTIALLY_OMR ", SheetPartiallyOMR, false},
		{"Partially OMR", SheetPartiallyOMR, false},
		{"UNKNOWN", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSheetType(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSheetType(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSheetType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestJoinValidation(t *testing.T) {
	_, parseErr := ParseManualTotal("abc")
	req := UploadRequest{SheetType: SheetOMR}

	err := JoinValidation(parseErr, req.Validate())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("JoinValidation() = %v, want *ValidationError", err)
	}

	want := []string{FieldManualTotal, FieldScript, FieldAnswerKey}
	if len(verr.Fields) != len(want) {
		t.Fatalf("fields = %v, want %v", verr.Fields, want)
	}
	for i, f := range verr.Fields {
		if f.Field != want[i] {
			t.Errorf("field[%d] = %s, want %s", i, f.Field, want[i])
		}
	}
	if verr.Fields[0].Rule != "number" {
		t.Errorf("manual total rule = %s, want the parse failure to win", verr.Fields[0].Rule)
	}

	if err := JoinValidation(nil, nil); err != nil {
		t.Errorf("JoinValidation(nil, nil) = %v, want nil", err)
	}

	plain := errors.New("boom")
	if err := JoinValidation(plain); err != plain {
		t.Errorf("non-validation error should pass through, got %v", err)
	}
}
