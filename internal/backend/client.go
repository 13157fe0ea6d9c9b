// Package backend is the HTTP client for the grading backend.
//
// The backend exposes four endpoints:
//
//	GET  /audit-queue       full list of audit records
//	POST /simulate-exam     generate a simulated batch (body ignored)
//	POST /resolve/{id}      mark one record RESOLVED (body ignored)
//	POST /upload-sheet      multipart upload of one answer script
//
// Every failure (unreachable backend, timeout, non-2xx answer, undecodable
// queue) is returned as a *core.TransportError.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

// maxQueueBytes caps the audit queue response body.
const maxQueueBytes = 32 << 20

// RequestIDHeader carries the dispatcher action ID to the backend.
const RequestIDHeader = "X-Request-ID"

var tracer = otel.Tracer("gradeguard/backend")

// Client talks to the grading backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL. A nil httpClient uses a client with a
// 30s overall timeout; per-call deadlines come from the context.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string { return c.baseURL }

// AuditQueue fetches every audit record, in backend order.
func (c *Client) AuditQueue(ctx context.Context) ([]core.AuditRecord, error) {
	resp, err := c.do(ctx, "sync", http.MethodGet, "/audit-queue", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var records []core.AuditRecord
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxQueueBytes))
	if err := dec.Decode(&records); err != nil {
		return nil, &core.TransportError{
			Op:  "sync",
			Err: fmt.Errorf("%w: decode audit queue: %v", core.ErrInvalidSnapshot, err),
		}
	}
	if records == nil {
		records = []core.AuditRecord{}
	}
	return records, nil
}

// SimulateExam asks the backend to generate a simulated exam batch.
func (c *Client) SimulateExam(ctx context.Context) error {
	return c.post(ctx, "simulate", "/simulate-exam", nil, "")
}

// Resolve marks the record with the given id as RESOLVED.
func (c *Client) Resolve(ctx context.Context, id core.RecordID) error {
	return c.post(ctx, "resolve", "/resolve/"+url.PathEscape(id.String()), nil, "")
}

// UploadSheet submits one answer script. The request should already have
// passed core validation; the client does not re-check required fields.
func (c *Client) UploadSheet(ctx context.Context, req core.UploadRequest) error {
	body, contentType, err := encodeUpload(req)
	if err != nil {
		return &core.TransportError{Op: "upload", Err: err}
	}
	return c.post(ctx, "upload", "/upload-sheet", body, contentType)
}

// post issues a write call and discards the response body.
func (c *Client) post(ctx context.Context, op, path string, body io.Reader, contentType string) error {
	resp, err := c.do(ctx, op, http.MethodPost, path, body, contentType)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// do sends one request. Non-2xx responses are closed and returned as errors.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	requestID := core.ActionIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx, span := tracer.Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
			attribute.String("gradeguard.request_id", requestID),
		),
	)
	defer span.End()

	fail := func(status int, err error) (*http.Response, error) {
		terr := &core.TransportError{Op: op, StatusCode: status, Err: err}
		span.RecordError(terr)
		span.SetStatus(codes.Error, terr.Error())
		return nil, terr
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		var detailErr error
		if d := strings.TrimSpace(string(detail)); d != "" {
			detailErr = errors.New(d)
		}
		return fail(resp.StatusCode, detailErr)
	}
	return resp, nil
}
