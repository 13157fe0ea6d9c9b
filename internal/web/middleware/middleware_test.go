package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

// ============================================================================
// TrustedRealIP Tests
// ============================================================================

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		wantIP     string
	}{
		{
			name:       "untrusted peer keeps its address",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.7:5000",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			wantIP:     "203.0.113.7",
		},
		{
			name:       "trusted proxy X-Real-IP",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:5000",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			wantIP:     "1.2.3.4",
		},
		{
			name:       "trusted proxy first X-Forwarded-For",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:5000",
			headers:    map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"},
			wantIP:     "5.6.7.8",
		},
		{
			name:       "garbage header ignored",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:5000",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			wantIP:     "127.0.0.1",
		},
		{
			name:       "no trusted proxies",
			remoteAddr: "127.0.0.1:5000",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			wantIP:     "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIP, gotCtxIP string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIP = ClientIP(r)
				gotCtxIP = core.ClientIPFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if gotIP != tt.wantIP {
				t.Errorf("ClientIP = %q, want %q", gotIP, tt.wantIP)
			}
			if gotCtxIP != tt.wantIP {
				t.Errorf("context client IP = %q, want %q", gotCtxIP, tt.wantIP)
			}
		})
	}
}

func TestParseTrusted_SkipsInvalid(t *testing.T) {
	nets := parseTrusted([]string{"10.0.0.0/8", "nonsense", " ", "::1"})
	if len(nets) != 2 {
		t.Fatalf("parseTrusted() returned %d networks, want 2", len(nets))
	}
}

// ============================================================================
// RateLimiter Tests
// ============================================================================

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.1.1.1") {
		t.Error("fourth request within the minute should be rejected")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other IPs have their own budget")
	}

	now = now.Add(20 * time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Error("one token should refill after 20s")
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("1.1.1.1")
	now = now.Add(time.Minute)
	rl.Allow("2.2.2.2")
	now = now.Add(150 * time.Second)
	rl.evictIdle()

	if _, ok := rl.visitors["1.1.1.1"]; ok {
		t.Error("idle visitor should be evicted")
	}
	if _, ok := rl.visitors["2.2.2.2"]; !ok {
		t.Error("recent visitor should be kept")
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(1)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "RATE001" {
		t.Errorf("code = %q, want RATE001", body["code"])
	}
}

// ============================================================================
// Logger Tests
// ============================================================================

func TestLogger_RecordsStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	line := buf.String()
	for _, want := range []string{`"status":404`, `"bytes":7`, `"path":"/nope"`, `"level":"WARN"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}
