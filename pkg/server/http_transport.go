package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
)

// HTTPTransportConfig holds configuration for the HTTP transport
type HTTPTransportConfig struct {
	Addr            string        `json:"addr"`             // HTTP server address (e.g., ":7082")
	BaseURL         string        `json:"base_url"`         // Base URL for service discovery
	AuthType        string        `json:"auth_type"`        // Authentication type: "bearer", "basic", "none"
	AuthToken       string        `json:"auth_token"`       // Bearer token, or "user:password" for basic
	SSEEndpoint     string        `json:"sse_endpoint"`     // SSE endpoint path (default: "/sse")
	MsgEndpoint     string        `json:"msg_endpoint"`     // Message endpoint path (default: "/message")
	CompareEndpoint string        `json:"compare_endpoint"` // Dashboard compare endpoint (default: "/api/compare")
	RateLimit       float64       `json:"rate_limit"`       // Requests per second per IP (0 = disabled)
	RateBurst       int           `json:"rate_burst"`       // Burst size for rate limiter
	MaxRequestSize  int64         `json:"max_request_size"` // Maximum request body size in bytes
	MaxHeaderBytes  int           `json:"max_header_bytes"` // Maximum header size in bytes
	MaxSessions     int           `json:"max_sessions"`     // Compare sessions kept in memory
	SessionTTL      time.Duration `json:"session_ttl"`      // Idle time before a compare session is dropped
	RecalcLatency   time.Duration `json:"recalc_latency"`   // Artificial delay before each recalculation
	TLSCertFile     string        `json:"tls_cert_file"`    // Path to TLS certificate file
	TLSKeyFile      string        `json:"tls_key_file"`     // Path to TLS private key file
	ForceHTTPS      bool          `json:"force_https"`      // Force HTTPS redirect for HTTP requests
}

// DefaultHTTPTransportConfig returns sensible defaults
func DefaultHTTPTransportConfig() HTTPTransportConfig {
	return HTTPTransportConfig{
		Addr:            ":7082",
		AuthType:        core.AuthNone,
		SSEEndpoint:     "/sse",
		MsgEndpoint:     "/message",
		CompareEndpoint: "/api/compare",
		RateLimit:       10,       // 10 requests per second per IP
		RateBurst:       20,       // Allow bursts of 20
		MaxRequestSize:  10 << 20, // 10 MB
		MaxHeaderBytes:  1 << 20,  // 1 MB
		MaxSessions:     1000,
		SessionTTL:      30 * time.Minute,
		RecalcLatency:   0,
	}
}

// HTTPTransport implements HTTP+SSE dual transport for MCP, plus the JSON
// compare endpoint used by the dashboard.
type HTTPTransport struct {
	config        HTTPTransportConfig
	logger        *slog.Logger
	auth          *core.Authenticator
	sseServer     *mcpserver.SSEServer
	compare       *compareHandler
	mux           *http.ServeMux
	httpSrv       *http.Server
	rateLimiter   *RateLimiter
	healthChecker *monitoring.HealthChecker
	sseClients    atomic.Int64
	mu            sync.RWMutex
}

// NewHTTPTransport creates a new HTTP transport instance. It fails when the
// auth configuration is unusable.
func NewHTTPTransport(mcpServer *mcpserver.MCPServer, dash *dashboard.Dashboard, config HTTPTransportConfig, logger *slog.Logger) (*HTTPTransport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := core.NewAuthenticator(config.AuthType, config.AuthToken)
	if err != nil {
		return nil, err
	}
	if auth.Required() {
		if err := core.ValidateAuthToken(config.AuthToken); err != nil {
			logger.Warn("weak authentication token detected", "error", err.Error())
		}
	}

	if config.CompareEndpoint == "" {
		config.CompareEndpoint = "/api/compare"
	}

	sseServer := mcpserver.NewSSEServer(
		mcpServer,
		mcpserver.WithSSEEndpoint(config.SSEEndpoint),
		mcpserver.WithMessageEndpoint(config.MsgEndpoint),
		mcpserver.WithBaseURL(config.BaseURL),
	)

	transport := &HTTPTransport{
		config:    config,
		logger:    logger,
		auth:      auth,
		sseServer: sseServer,
		compare:   newCompareHandler(dash, config, logger),
		mux:       http.NewServeMux(),
	}
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter, err := NewRateLimiter(rate.Limit(config.RateLimit), burst, 0, logger)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		transport.rateLimiter = limiter
	}

	transport.setupRoutes()

	return transport, nil
}

// SetHealthChecker sets the health checker for the HTTP transport
func (t *HTTPTransport) SetHealthChecker(hc *monitoring.HealthChecker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.healthChecker = hc
}

// setupRoutes configures all HTTP routes
func (t *HTTPTransport) setupRoutes() {
	t.mux.HandleFunc("/", t.httpsEnforcement(t.handleServiceDiscovery))

	// Health check endpoints (no auth required)
	t.mux.HandleFunc("/health", t.handleHealth)
	t.mux.HandleFunc("/ready", t.handleReady)
	t.mux.HandleFunc("/live", t.handleLive)

	// Debug endpoints (no auth required)
	t.mux.HandleFunc(t.config.SSEEndpoint+"/debug", t.handleSSEDebug)
	t.mux.HandleFunc(t.config.MsgEndpoint+"/debug", t.handleMessageDebug)

	sse := t.trackSSEClients(t.sseServer.SSEHandler())
	t.mux.Handle(t.config.SSEEndpoint, t.httpsEnforcement(t.authMiddleware(sse).ServeHTTP))
	t.mux.Handle(t.config.SSEEndpoint+"/", t.httpsEnforcement(t.authMiddleware(sse).ServeHTTP))
	t.mux.Handle(t.config.MsgEndpoint, t.httpsEnforcement(t.authMiddleware(t.sseServer.MessageHandler()).ServeHTTP))
	t.mux.Handle(t.config.MsgEndpoint+"/", t.httpsEnforcement(t.authMiddleware(t.sseServer.MessageHandler()).ServeHTTP))

	t.mux.Handle(t.config.CompareEndpoint, t.httpsEnforcement(t.authMiddleware(t.compare).ServeHTTP))
}

// Handler returns the routed handler wrapped in the transport middleware.
func (t *HTTPTransport) Handler() http.Handler {
	handler := http.Handler(t.mux)
	if t.rateLimiter != nil {
		handler = t.rateLimiter.Middleware(handler)
	}
	handler = RequestSizeLimiter(t.maxRequestSize())(handler)
	handler = SecurityHeaders(t.config.CompareEndpoint)(handler)
	handler = LoggingMiddleware(t.logger)(handler)
	handler = TracingMiddleware()(handler) // outermost so every request gets a span
	return handler
}

func (t *HTTPTransport) maxRequestSize() int64 {
	if t.config.MaxRequestSize > 0 {
		return t.config.MaxRequestSize
	}
	return 10 << 20
}

// trackSSEClients keeps the active connection gauge current for the
// long-lived SSE stream.
func (t *HTTPTransport) trackSSEClients(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		monitoring.UpdateActiveConnections("http", "sse", int(t.sseClients.Add(1)))
		defer func() {
			monitoring.UpdateActiveConnections("http", "sse", int(t.sseClients.Add(-1)))
		}()
		next.ServeHTTP(w, r)
	})
}

// httpsEnforcement redirects HTTP requests to HTTPS if ForceHTTPS is enabled
func (t *HTTPTransport) httpsEnforcement(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if t.config.ForceHTTPS && r.TLS == nil {
			httpsURL := "https://" + r.Host + r.RequestURI

			t.logger.Info("redirecting HTTP request to HTTPS",
				"client_ip", r.RemoteAddr,
				"original_url", r.URL.String(),
				"redirect_url", httpsURL)

			http.Redirect(w, r, httpsURL, http.StatusMovedPermanently)
			return
		}

		next(w, r)
	}
}

// authMiddleware authenticates MCP and compare requests
func (t *HTTPTransport) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := t.auth.Authenticate(r)
		if !result.Authorized {
			t.logger.Warn("authentication failed",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
				"auth_type", t.auth.Type(),
				"error", result.Error,
				"auth_duration", result.Duration)
			monitoring.RecordError("http", "auth")

			if t.auth.Type() == core.AuthBasic {
				w.Header().Set("WWW-Authenticate", `Basic realm="ecoroute"`)
			} else {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			t.writeJSONRPCError(w, nil, -32602, "Authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleServiceDiscovery provides service discovery for MCP clients
func (t *HTTPTransport) handleServiceDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	baseURL := t.config.BaseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil || t.config.ForceHTTPS || (t.config.TLSCertFile != "" && t.config.TLSKeyFile != "") {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}

	// Minimal service discovery to avoid information disclosure
	discovery := map[string]interface{}{
		"service":   "mcp-server",
		"transport": "HTTP+SSE",
		"endpoints": map[string]string{
			"sse":     baseURL + t.config.SSEEndpoint,
			"message": baseURL + t.config.MsgEndpoint,
			"compare": baseURL + t.config.CompareEndpoint,
		},
		"capabilities": map[string]interface{}{
			"tools":   true,
			"prompts": true,
		},
		"auth": map[string]interface{}{
			"required": t.auth.Required(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(discovery); err != nil {
		t.logger.Error("failed to encode service discovery response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

// handleHealth provides comprehensive health check endpoint
func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t.mu.RLock()
	hc := t.healthChecker
	t.mu.RUnlock()

	if hc != nil {
		hc.HealthHandler()(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"}); err != nil {
		t.logger.Error("failed to encode health response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleReady provides Kubernetes-style readiness check
func (t *HTTPTransport) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t.mu.RLock()
	hc := t.healthChecker
	t.mu.RUnlock()

	if hc != nil {
		hc.ReadinessHandler()(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":  true,
		"status": "ok",
	}); err != nil {
		t.logger.Error("failed to encode ready response", "error", err)
	}
}

// handleLive provides Kubernetes-style liveness check
func (t *HTTPTransport) handleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t.mu.RLock()
	hc := t.healthChecker
	t.mu.RUnlock()

	if hc != nil {
		hc.LivenessHandler()(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"alive": true}); err != nil {
		t.logger.Error("failed to encode liveness response", "error", err)
	}
}

// handleSSEDebug provides debug information for SSE endpoint
func (t *HTTPTransport) handleSSEDebug(w http.ResponseWriter, r *http.Request) {
	t.writeDebug(w, r, map[string]interface{}{
		"endpoint":    t.config.SSEEndpoint,
		"description": "Server-Sent Events endpoint for MCP communication",
		"usage":       "Connect with Accept: text/event-stream header",
		"transport":   "HTTP+SSE",
		"clients":     t.sseClients.Load(),
	})
}

// handleMessageDebug provides debug information for message endpoint
func (t *HTTPTransport) handleMessageDebug(w http.ResponseWriter, r *http.Request) {
	t.writeDebug(w, r, map[string]interface{}{
		"endpoint":    t.config.MsgEndpoint,
		"description": "JSON-RPC message endpoint for MCP communication",
		"usage":       "POST JSON-RPC messages with sessionId query parameter",
		"transport":   "HTTP+SSE",
	})
}

func (t *HTTPTransport) writeDebug(w http.ResponseWriter, r *http.Request, debug map[string]interface{}) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(debug); err != nil {
		t.logger.Error("failed to encode debug response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSONRPCError writes a JSON-RPC error response
func (t *HTTPTransport) writeJSONRPCError(w http.ResponseWriter, id interface{}, code int, message string) {
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		t.logger.Error("failed to encode JSON-RPC error", "error", err)
	}
}

// Start begins serving HTTP requests
func (t *HTTPTransport) Start() error {
	t.mu.Lock()

	if t.httpSrv != nil {
		t.mu.Unlock()
		return core.NewError(core.ErrInternalError, "HTTP transport already started").
			WithGuidance("The HTTP transport is already running. Stop it before starting again.")
	}

	t.httpSrv = &http.Server{
		Addr:           t.config.Addr,
		Handler:        t.Handler(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: t.config.MaxHeaderBytes,
	}
	srv := t.httpSrv

	tls := t.config.TLSCertFile != "" && t.config.TLSKeyFile != ""
	t.logger.Info("starting HTTP transport",
		"addr", t.config.Addr,
		"sse_endpoint", t.config.SSEEndpoint,
		"message_endpoint", t.config.MsgEndpoint,
		"compare_endpoint", t.config.CompareEndpoint,
		"auth_type", t.auth.Type(),
		"base_url", t.config.BaseURL,
		"rate_limit", t.config.RateLimit,
		"tls_enabled", tls,
		"force_https", t.config.ForceHTTPS)

	if t.config.ForceHTTPS && !tls {
		t.logger.Warn("HTTPS enforcement enabled but no TLS certificates provided - HTTP requests will be redirected")
	}

	t.mu.Unlock() // Release lock before blocking call
	if tls {
		return srv.ListenAndServeTLS(t.config.TLSCertFile, t.config.TLSKeyFile)
	}
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP transport
func (t *HTTPTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rateLimiter != nil {
		t.rateLimiter.Stop()
		t.rateLimiter = nil
	}

	if t.httpSrv == nil {
		return nil
	}

	t.logger.Info("shutting down HTTP transport")

	if err := t.sseServer.Shutdown(ctx); err != nil {
		t.logger.Error("failed to shutdown SSE server", "error", err)
	}

	err := t.httpSrv.Shutdown(ctx)
	t.httpSrv = nil
	return err
}

// GetBaseURL returns the configured base URL
func (t *HTTPTransport) GetBaseURL() string {
	return t.config.BaseURL
}

// GetConfig returns the transport configuration
func (t *HTTPTransport) GetConfig() HTTPTransportConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config
}
