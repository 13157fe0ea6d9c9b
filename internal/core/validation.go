package core

// validation.go provides local validation of upload submissions.
//
// Validation happens before any network call. Field rules are declared as
// validator tags on UploadRequest; the rule that depends on another field
// (answer key required for OMR-family sheets) is a struct-level check.
// Failures are collected into a single ValidationError naming every bad
// field by its wire name, so the form can highlight all of them at once.

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one invalid upload field.
type FieldError struct {
	Field   string `json:"field"`   // wire name, e.g. "reference_file"
	Rule    string `json:"rule"`    // failed rule, e.g. "required"
	Message string `json:"message"` // human-readable message
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is returned when an upload is rejected locally.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Missing returns the names of fields that failed a required rule.
func (e *ValidationError) Missing() []string {
	var out []string
	for _, f := range e.Fields {
		if strings.HasPrefix(f.Rule, "required") {
			out = append(out, f.Field)
		}
	}
	return out
}

// fieldOrder fixes the order fields are reported in, matching the form layout.
var fieldOrder = map[string]int{
	FieldSheetID:     0,
	FieldSheetType:   1,
	FieldManualTotal: 2,
	FieldScript:      3,
	FieldAnswerKey:   4,
}

const ruleAnswerKeyForFormat = "required_for_format"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// uploadValidator returns the shared validator with upload rules registered.
func uploadValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()

		// Report fields by their multipart name rather than the Go field name.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if err := v.RegisterValidation("sheet_type", func(fl validator.FieldLevel) bool {
			_, err := ParseSheetType(fl.Field().String())
			return err == nil
		}); err != nil {
			panic(err)
		}

		v.RegisterStructValidation(validateUploadStruct, UploadRequest{})
		validate = v
	})
	return validate
}

// validateUploadStruct holds the cross-field upload rules.
func validateUploadStruct(sl validator.StructLevel) {
	req := sl.Current().Interface().(UploadRequest)

	// A zero-byte script passes the nil check on the field itself.
	if req.Script != nil && len(req.Script.Data) == 0 {
		sl.ReportError(req.Script, FieldScript, "Script", "required", "")
	}

	if req.ManualTotal != nil && req.ManualTotal.IsNegative() {
		sl.ReportError(req.ManualTotal, FieldManualTotal, "ManualTotal", "min", "0")
	}

	st, err := ParseSheetType(string(req.SheetType))
	if err == nil && st.RequiresAnswerKey() && req.AnswerKey.empty() {
		sl.ReportError(req.AnswerKey, FieldAnswerKey, "AnswerKey", ruleAnswerKeyForFormat, string(st))
	}
}

// toValidationError converts validator output into a ValidationError.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: ruleMessage(fe.Tag(), fe.Param()),
		})
	}
	sortFieldErrors(out.Fields)
	return out
}

func sortFieldErrors(fields []FieldError) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fieldOrder[fields[i].Field] < fieldOrder[fields[j].Field]
	})
}

// ruleMessage returns the human-readable text for a failed rule.
func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "required field is missing"
	case ruleAnswerKeyForFormat:
		return fmt.Sprintf("answer key is required for %s sheets", param)
	case "sheet_type":
		return "invalid sheet type (use DESCRIPTIVE, OMR or PARTIALLY_OMR)"
	case "min":
		return "score must not be negative"
	case "number":
		return "invalid number format"
	case "max_size":
		return "file too large"
	default:
		return "invalid value"
	}
}

// JoinValidation merges validation failures from several checks into one
// ValidationError. The first failure reported for a field wins, so a parse
// error is not followed by a "required" error for the same field. A
// non-validation error is returned as is.
func JoinValidation(errs ...error) error {
	var fields []FieldError
	seen := make(map[string]bool)
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		for _, f := range verr.Fields {
			if seen[f.Field] {
				continue
			}
			seen[f.Field] = true
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sortFieldErrors(fields)
	return &ValidationError{Fields: fields}
}
