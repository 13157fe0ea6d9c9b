// Package core provides the business logic for the audit dashboard.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Typed errors are matched first (errors.Is / errors.As); plain
// errors fall back to case-insensitive pattern matching.
//
// # Transport Errors (NET001-NET099)
//
//	NET001 - Backend unreachable: The grading backend could not be reached
//	         Action: Check that the backend is running, then try again
//	NET002 - Backend rejected: The backend returned an error response
//	         Action: Try again; if it persists check the backend logs
//	NET003 - Timeout: The backend did not answer in time
//	         Action: Try again in a few moments
//	NET004 - Bad data: The backend returned an audit queue that could not be read
//	         Action: Check the backend version
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing script: No answer script was attached
//	VAL002 - Missing score: No human-awarded score was entered
//	VAL003 - Missing answer key: OMR-family sheets need an answer key
//	VAL004 - Invalid sheet type
//	VAL005 - Invalid score
//	VAL006 - File too large
//	VAL007 - Unsupported export format
//	VAL000 - Generic validation failure (several fields)
//
// # Action Errors (ACT001-ACT099)
//
//	ACT001 - Busy: Another action is still running
//	ACT002 - Cancelled: The request was cancelled before the action finished
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Not found: The record is not in the current audit queue
//	REC002 - Not resolvable: The record has no open discrepancy
//
// # Status Errors (STS001)
//
//	STS001 - Unknown status: The backend reported a status the dashboard does not know
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// technical error.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnreachable = UserMessage{
		Message: "The grading backend could not be reached",
		Action:  "Check that the backend is running, then try again",
		Code:    "NET001",
	}
	msgRejected = UserMessage{
		Message: "The backend returned an error response",
		Action:  "Try again; if it persists check the backend logs",
		Code:    "NET002",
	}
	msgTimeout = UserMessage{
		Message: "The backend did not answer in time",
		Action:  "Try again in a few moments",
		Code:    "NET003",
	}
	msgBadQueue = UserMessage{
		Message: "The backend returned an audit queue that could not be read",
		Action:  "Check that the backend version matches the dashboard",
		Code:    "NET004",
	}
	msgBusy = UserMessage{
		Message: "Another action is still running",
		Action:  "Wait for it to finish, then try again",
		Code:    "ACT001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "ACT002",
	}
	msgNotFound = UserMessage{
		Message: "Record is not in the current audit queue",
		Action:  "Refresh the queue and try again",
		Code:    "REC001",
	}
	msgNotResolvable = UserMessage{
		Message: "Record has no open discrepancy to resolve",
		Action:  "Refresh the queue to see its current status",
		Code:    "REC002",
	}
	msgUnknownStatus = UserMessage{
		Message: "The backend reported an unknown status",
		Action:  "Check that the backend version matches the dashboard",
		Code:    "STS001",
	}
)

// validationMessages maps a single failing upload field to its message.
var validationMessages = map[string]UserMessage{
	FieldScript: {
		Message: "No answer script was attached",
		Action:  "Select the scanned script to upload",
		Code:    "VAL001",
	},
	FieldManualTotal: {
		Message: "No human-awarded score was entered",
		Action:  "Enter the total marks awarded by the grader",
		Code:    "VAL002",
	},
	FieldAnswerKey: {
		Message: "An answer key is required for OMR sheets",
		Action:  "Attach the answer key or choose the Descriptive format",
		Code:    "VAL003",
	},
	FieldSheetType: {
		Message: "Invalid sheet format",
		Action:  "Choose Descriptive, OMR or Partially OMR",
		Code:    "VAL004",
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages for errors that carry no type. The first match wins.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: msgUnreachable},
	{pattern: "no such host", msg: msgUnreachable},
	{pattern: "connection reset", msg: msgUnreachable},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "file too large", msg: UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Upload a smaller scan",
		Code:    "VAL006",
	}},
	{pattern: "unsupported export format", msg: UserMessage{
		Message: "Unsupported export format",
		Action:  "Choose csv or xlsx",
		Code:    "VAL007",
	}},
	{pattern: "invalid form", msg: UserMessage{
		Message: "The upload form could not be read",
		Action:  "Reload the page and submit again",
		Code:    "VAL000",
	}},
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return mapValidation(verr)
	}

	switch {
	case errors.Is(err, ErrBusy):
		return msgBusy
	case errors.Is(err, ErrRecordNotFound):
		return msgNotFound
	case errors.Is(err, ErrNotResolvable):
		return msgNotResolvable
	case errors.Is(err, ErrUnknownStatus):
		return msgUnknownStatus
	case errors.Is(err, ErrInvalidSnapshot):
		return msgBadQueue
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, context.Canceled):
		return msgCancelled
	}

	var te *TransportError
	if errors.As(err, &te) {
		if te.StatusCode != 0 {
			return msgRejected
		}
		if msg, ok := matchPattern(te.Err); ok {
			return msg
		}
		return msgUnreachable
	}

	if msg, ok := matchPattern(err); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(err error) (UserMessage, bool) {
	if err == nil {
		return UserMessage{}, false
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// mapValidation returns the field-specific message when exactly one field
// failed, and a combined message naming every field otherwise.
func mapValidation(verr *ValidationError) UserMessage {
	if len(verr.Fields) == 1 {
		f := verr.Fields[0]
		if f.Rule == "number" || f.Rule == "min" {
			return UserMessage{
				Message: "Invalid score: " + f.Message,
				Action:  "Enter the total marks as a non-negative number",
				Code:    "VAL005",
			}
		}
		if msg, ok := validationMessages[f.Field]; ok {
			return msg
		}
	}

	names := make([]string, len(verr.Fields))
	for i, f := range verr.Fields {
		names[i] = f.Field
	}
	return UserMessage{
		Message: "Please fix the following fields: " + strings.Join(names, ", "),
		Action:  "Complete the highlighted fields and submit again",
		Code:    "VAL000",
	}
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
