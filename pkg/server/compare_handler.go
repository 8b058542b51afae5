package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
	"github.com/NERVsystems/ecoroutemcp/pkg/tracing"
)

type compareRecalculator = dashboard.Recalculator[dashboard.CompareResult]

// compareHandler serves the dashboard's compare endpoint. Each session gets
// its own recalculator so a slow, older request never overwrites the
// answer to a newer one from the same dashboard.
type compareHandler struct {
	dash    *dashboard.Dashboard
	logger  *slog.Logger
	latency time.Duration

	mu       sync.Mutex
	sessions *expirable.LRU[string, *compareRecalculator]
}

// supersededResponse is returned with 409 when a newer request from the
// same session has started.
type supersededResponse struct {
	Superseded   bool            `json:"superseded"`
	RequestToken dashboard.Token `json:"request_token"`
	LatestToken  dashboard.Token `json:"latest_token,omitempty"`
}

func newCompareHandler(dash *dashboard.Dashboard, config HTTPTransportConfig, logger *slog.Logger) *compareHandler {
	size := config.MaxSessions
	if size <= 0 {
		size = 1000
	}
	return &compareHandler{
		dash:     dash,
		logger:   logger,
		latency:  config.RecalcLatency,
		sessions: expirable.NewLRU[string, *compareRecalculator](size, nil, config.SessionTTL),
	}
}

func (h *compareHandler) session(id string) *compareRecalculator {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rc, ok := h.sessions.Get(id); ok {
		return rc
	}
	rc := dashboard.NewRecalculator[dashboard.CompareResult](h.latency)
	h.sessions.Add(id, rc)
	return rc
}

func (h *compareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.dash == nil {
		http.Error(w, "Compare is not available", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.handleCompare(w, r)
	case http.MethodGet:
		h.handleLatest(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *compareHandler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req dashboard.CompareRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		mcpErr := core.FromDomainError(err)
		if mcpErr.Code == string(core.ErrInternalError) {
			mcpErr = core.NewError(core.ErrInvalidParameter, "invalid request body: "+err.Error()).
				WithGuidance("Send a JSON compare request with origin, destination, traffic_level, weather_conditions and time_constraint_min.")
		}
		h.writeJSON(w, http.StatusBadRequest, mcpErr)
		return
	}

	sessionID := requestSession(r)
	if sessionID == "" {
		// Without a session there is nothing to supersede.
		res, cached, err := h.dash.Compare(req)
		tracing.SetAttributes(r.Context(), tracing.CacheAttributes("compare_results", cached)...)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set(cacheStatusHeader, cacheHeader(cached))
		h.writeJSON(w, http.StatusOK, res)
		return
	}

	var cached bool
	res, token, applied, err := h.session(sessionID).Run(r.Context(),
		func(_ context.Context, tok dashboard.Token) (dashboard.CompareResult, error) {
			out, hit, err := h.dash.Compare(req)
			cached = hit
			out.RequestToken = tok
			return out, err
		})
	tracing.SetAttributes(r.Context(), tracing.RecalculationAttributes(uint64(token), !applied && err == nil)...)

	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set(requestTokenHeader, strconv.FormatUint(uint64(token), 10))

	if !applied {
		monitoring.RecordSuperseded("http")
		h.logger.Debug("compare request superseded",
			"session_id", sessionID,
			"request_token", token)

		resp := supersededResponse{Superseded: true, RequestToken: token}
		if _, latest, ok := h.session(sessionID).Latest(); ok {
			resp.LatestToken = latest
		}
		h.writeJSON(w, http.StatusConflict, resp)
		return
	}

	w.Header().Set(cacheStatusHeader, cacheHeader(cached))
	h.writeJSON(w, http.StatusOK, res)
}

// handleLatest returns the last applied result for a session.
func (h *compareHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	sessionID := requestSession(r)
	if sessionID == "" {
		h.writeJSON(w, http.StatusBadRequest, core.NewError(core.ErrMissingParameter, "session id is required").
			WithField(sessionHeader).
			WithGuidance("Pass the session id in the X-Session-ID header or the sessionId query parameter."))
		return
	}

	h.mu.Lock()
	rc, ok := h.sessions.Peek(sessionID)
	h.mu.Unlock()
	if !ok {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}

	res, token, ok := rc.Latest()
	if !ok {
		http.Error(w, "No result yet", http.StatusNotFound)
		return
	}
	w.Header().Set(requestTokenHeader, strconv.FormatUint(uint64(token), 10))
	h.writeJSON(w, http.StatusOK, res)
}

func (h *compareHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Debug("compare request cancelled", "error", err)
		http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
		return
	}

	tracing.RecordError(r.Context(), err)
	mcpErr := core.FromDomainError(err)
	status := http.StatusBadRequest
	if mcpErr.Code == string(core.ErrInternalError) {
		status = http.StatusInternalServerError
		h.logger.Error("compare failed", "error", err)
		monitoring.RecordError("http", "compare")
	}
	h.writeJSON(w, status, mcpErr)
}

func (h *compareHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode compare response", "error", err)
	}
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
