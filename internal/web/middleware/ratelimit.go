package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

// ErrRateLimited is reported to clients that exceed their request budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter is a per-IP token bucket limiter.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per IP, refilled evenly, with a
// burst of the full minute's budget.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idleTTL:  3 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed, consuming a token.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Run evicts idle visitors every minute until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// Handler rejects requests over budget with 429 and RATE001.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.Allow(ClientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}

		msg := core.MapError(ErrRateLimited)
		retry := time.Duration(float64(time.Second) / float64(rl.limit))
		if retry < time.Second {
			retry = time.Second
		}

		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   msg.Message,
			"message": msg.Message,
			"action":  msg.Action,
			"code":    msg.Code,
		})
	})
}
