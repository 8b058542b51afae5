package server

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
	"github.com/NERVsystems/ecoroutemcp/pkg/tracing"
)

const (
	sessionHeader      = "X-Session-ID"
	sessionQueryParam  = "sessionId"
	requestIDHeader    = "X-Request-ID"
	requestTokenHeader = "X-Request-Token"
	cacheStatusHeader  = "X-Cache"
)

// defaultMaxClients bounds the number of clients the rate limiter tracks.
const defaultMaxClients = 10000

type contextKey struct{}

// requestInfo is what LoggingMiddleware learns about a request before
// handing it on.
type requestInfo struct {
	id      string
	session string
}

// RequestID returns the request ID assigned by LoggingMiddleware.
func RequestID(ctx context.Context) string {
	info, _ := ctx.Value(contextKey{}).(requestInfo)
	return info.id
}

// SessionID returns the dashboard session seen by LoggingMiddleware.
func SessionID(ctx context.Context) string {
	info, _ := ctx.Value(contextKey{}).(requestInfo)
	return info.session
}

// requestSession extracts the dashboard session from the X-Session-ID header
// or, for EventSource clients that cannot set headers, the sessionId query
// parameter.
func requestSession(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	return r.URL.Query().Get(sessionQueryParam)
}

// RateLimiter limits requests per client IP. Idle clients fall out of a
// fixed-size LRU, so a flood of distinct addresses cannot grow it.
type RateLimiter struct {
	clients *lru.Cache[string, *rate.Limiter]
	rate    rate.Limit
	burst   int
	logger  *slog.Logger
}

// NewRateLimiter creates a rate limiter tracking up to maxClients clients.
// maxClients <= 0 selects the default.
func NewRateLimiter(r rate.Limit, burst, maxClients int, logger *slog.Logger) (*RateLimiter, error) {
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	clients, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{clients: clients, rate: r, burst: burst, logger: logger}, nil
}

// limiter returns the limiter for key, creating it on first use.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.clients.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	if prev, ok, _ := rl.clients.PeekOrAdd(key, l); ok {
		return prev
	}
	return l
}

// Stop drops every tracked client.
func (rl *RateLimiter) Stop() {
	rl.clients.Purge()
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		if !rl.limiter(ip).Allow() {
			monitoring.RecordRateLimitExceeded("http")
			rl.logger.Warn("rate limit exceeded",
				"request_id", RequestID(r.Context()),
				"session_id", requestSession(r),
				"remote_addr", ip,
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getIP extracts the client IP from the request
func getIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); net.ParseIP(realIP) != nil {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RequestSizeLimiter returns middleware that limits request body size
func RequestSizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds security headers to responses. The server only
// emits JSON and event streams, so nothing may be framed or loaded from it.
// Compare results are per session and are never stored by caches.
func SecurityHeaders(compareEndpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if isHTTPS(r) {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			if compareEndpoint != "" && r.URL.Path == compareEndpoint {
				h.Set("Cache-Control", "no-store")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isHTTPS reports whether the client reached us over TLS, directly or
// through a terminating proxy.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// LoggingMiddleware assigns a request ID and logs one line per request.
// Compare responses also carry the session, the request token and whether
// the result was superseded or served from cache.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			info := requestInfo{id: r.Header.Get(requestIDHeader), session: requestSession(r)}
			if info.id == "" {
				info.id = uuid.NewString()
			}
			wrapped.Header().Set(requestIDHeader, info.id)
			ctx := context.WithValue(r.Context(), contextKey{}, info)
			tracing.SetAttributes(ctx, attribute.String(tracing.AttrHTTPRequestID, info.id))

			logger.Debug("http request",
				"request_id", info.id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", getIP(r),
				"user_agent", r.UserAgent())

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			attrs := []any{
				"request_id", info.id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start),
				"bytes", wrapped.size,
			}
			if info.session != "" {
				attrs = append(attrs, "session_id", info.session)
			}
			if token := wrapped.Header().Get(requestTokenHeader); token != "" {
				attrs = append(attrs, "request_token", token)
			}
			if c := wrapped.Header().Get(cacheStatusHeader); c != "" {
				attrs = append(attrs, "cache", c)
			}

			switch {
			case wrapped.status >= http.StatusInternalServerError:
				logger.Error("http response", attrs...)
			case wrapped.status == http.StatusConflict:
				logger.Info("http response", append(attrs, "superseded", true)...)
			case wrapped.status >= http.StatusBadRequest:
				logger.Warn("http response", attrs...)
			default:
				logger.Info("http response", attrs...)
			}
		})
	}
}

// statusRecorder records the status and size of a response. It keeps
// http.Flusher and http.Hijacker reachable for the SSE stream.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	size        int64
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.wroteHeader {
		sr.status = code
		sr.wroteHeader = true
		sr.ResponseWriter.WriteHeader(code)
	}
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.wroteHeader {
		sr.WriteHeader(http.StatusOK)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.size += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// TracingMiddleware opens a span per request, tagged with the dashboard
// session so that a session's recalculations can be followed in traces.
func TracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []attribute.KeyValue{
				attribute.String(tracing.AttrHTTPMethod, r.Method),
				attribute.String(tracing.AttrHTTPPath, r.URL.Path),
				attribute.String("http.host", r.Host),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("http.remote_addr", getIP(r)),
			}
			if session := requestSession(r); session != "" {
				attrs = append(attrs, attribute.String(tracing.AttrHTTPSessionID, session))
			}

			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path, trace.WithAttributes(attrs...))
			defer span.End()

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			span.SetAttributes(
				attribute.Int(tracing.AttrHTTPStatusCode, wrapped.status),
				attribute.Int64("http.response.size", wrapped.size),
			)
			switch {
			case wrapped.status == http.StatusConflict:
				// A superseded recalculation is expected, not a failure.
				span.SetAttributes(attribute.Bool(tracing.AttrSuperseded, true))
				span.SetStatus(codes.Ok, "")
			case wrapped.status >= http.StatusBadRequest:
				span.SetStatus(codes.Error, http.StatusText(wrapped.status))
			default:
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}
