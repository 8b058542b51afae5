package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
)

func newTestRateLimiter(t *testing.T, r rate.Limit, burst, maxClients int) *RateLimiter {
	t.Helper()
	rl, err := NewRateLimiter(r, burst, maxClients, testLogger())
	if err != nil {
		t.Fatalf("NewRateLimiter: %v", err)
	}
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiterMiddleware_TooManyRequests(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Every(time.Second), 1, 0)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	// First request should pass
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", rec1.Code)
	}

	before := testutil.ToFloat64(monitoring.RateLimitExceeded.WithLabelValues("http"))

	// Second immediate request should be rate limited
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 Too Many Requests, got %d", rec2.Code)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
	if got := testutil.ToFloat64(monitoring.RateLimitExceeded.WithLabelValues("http")) - before; got != 1 {
		t.Errorf("expected one rate limit metric increment, got %v", got)
	}

	// Other clients keep their own budget
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "5.6.7.8:1234"
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, other)
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected 200 for a different client, got %d", rec3.Code)
	}
}

func TestRateLimiterEvictsLeastRecentClient(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Every(time.Minute), 1, 2)

	first := rl.limiter("1.1.1.1")
	rl.limiter("2.2.2.2")
	if rl.limiter("1.1.1.1") != first {
		t.Fatal("expected the same limiter for a returning client")
	}
	rl.limiter("3.3.3.3") // 2.2.2.2 is now the least recently seen

	if !rl.clients.Contains("1.1.1.1") || !rl.clients.Contains("3.3.3.3") {
		t.Error("expected recently seen clients to remain")
	}
	if rl.clients.Contains("2.2.2.2") {
		t.Error("least recently seen client was not evicted")
	}
	if n := rl.clients.Len(); n != 2 {
		t.Errorf("expected 2 tracked clients, got %d", n)
	}
}

// Rotating the session id must not buy a fresh budget.
func TestRateLimiterKeysOnIPNotSession(t *testing.T) {
	rl := newTestRateLimiter(t, rate.Every(time.Minute), 1, 0)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for _, session := range []string{"tab-1", "tab-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/compare", nil)
		req.RemoteAddr = "9.9.9.9:4000"
		req.Header.Set(sessionHeader, session)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("expected 200 then 429, got %v", codes)
	}
}

func TestRateLimiterStopIdempotent(t *testing.T) {
	rl, err := NewRateLimiter(rate.Every(time.Second), 1, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	rl.limiter("1.1.1.1")
	rl.Stop()
	rl.Stop()
	if rl.clients.Len() != 0 {
		t.Error("Stop should drop tracked clients")
	}
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:80", "203.0.113.7"},
		{"bad forwarded falls back to real ip", map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "198.51.100.2"}, "10.0.0.1:80", "198.51.100.2"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getIP(req); got != tt.want {
				t.Errorf("getIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
