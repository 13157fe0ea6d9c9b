package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler error goes through respondError, which:
//  1. Maps the error to a user message and code via core.MapError
//  2. Picks the HTTP status from the error type (statusFor)
//  3. Logs the technical error with the request ID for correlation
//  4. Renders JSON, an HTMX fragment, or a full HTML page for the client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/gradeguard/internal/core"
	"github.com/JonMunkholm/gradeguard/internal/logging"
	"github.com/JonMunkholm/gradeguard/internal/web/templates"
)

// errFileTooLarge marks an upload body over the configured limit.
var errFileTooLarge = errors.New("file too large")

// errInvalidForm marks an upload body that is not a readable multipart form.
var errInvalidForm = errors.New("invalid form")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidForm):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, core.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotResolvable):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case core.IsTransport(err):
		return http.StatusBadGateway
	}

	var ue *core.UserError
	if errors.As(err, &ue) && strings.HasPrefix(ue.User.Code, "VAL") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error server-side and returns a
// user-friendly response in the format the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)
	if statusCode >= 500 {
		log.Error("request error")
	} else {
		log.Warn("request rejected")
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, err, userMsg, statusCode)
	default:
		respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// respondErrorJSON writes a JSON error response. Validation failures also
// list every failing field.
func respondErrorJSON(w http.ResponseWriter, err error, msg core.UserMessage, statusCode int) {
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	writeJSON(w, statusCode, resp)
}

// respondErrorHTML renders a full error page.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response. API routes
// default to JSON unless the client explicitly asks for HTML, which is what
// a plain browser form post sends.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")

	if strings.Contains(accept, "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	if strings.Contains(accept, "text/html") {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// wantsRedirect reports whether a successful form post should redirect back
// to the dashboard instead of returning data.
func wantsRedirect(r *http.Request) bool {
	return !isHTMX(r) && !wantsJSON(r)
}
