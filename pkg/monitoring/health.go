package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/NERVsystems/ecoroutemcp/pkg/version"
)

// Component status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// HealthChecker aggregates component self-checks into a service status.
type HealthChecker struct {
	serviceName string
	version     string
	startTime   time.Time
	mu          sync.RWMutex
	components  map[string]*ComponentStatus
	transport   *TransportInfo
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewHealthChecker creates a new health checker instance
func NewHealthChecker(serviceName, version string) *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())

	hc := &HealthChecker{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		components:  make(map[string]*ComponentStatus),
		ctx:         ctx,
		cancel:      cancel,
	}

	go hc.collectSystemMetrics()

	return hc
}

// UpdateComponent records the latest self-check result of a component.
func (h *HealthChecker) UpdateComponent(name, status string, latencyMs int64, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	errStr := ""
	if err != nil {
		errStr = err.Error()
	}

	h.components[name] = &ComponentStatus{
		Name:      name,
		Status:    status,
		Latency:   latencyMs,
		LastError: errStr,
	}
}

// RemoveComponent stops reporting a component.
func (h *HealthChecker) RemoveComponent(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.components, name)
}

// SetTransport attaches transport details to health reports.
func (h *HealthChecker) SetTransport(info TransportInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transport = &info
}

// GetHealth returns the current health status
func (h *HealthChecker) GetHealth() ServiceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	degradedCount := 0
	errorCount := 0

	for _, c := range h.components {
		switch c.Status {
		case StatusError:
			errorCount++
		case StatusDegraded:
			degradedCount++
		}
	}

	// healthy -> degraded -> unhealthy
	if errorCount > 0 {
		if errorCount > len(h.components)/2 {
			status = "unhealthy"
		} else {
			status = "degraded"
		}
	} else if degradedCount > 0 {
		status = "degraded"
	}

	components := make(map[string]ComponentStatus, len(h.components))
	for k, v := range h.components {
		components[k] = *v
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var transport *TransportInfo
	if h.transport != nil {
		t := *h.transport
		transport = &t
	}

	uptime := time.Since(h.startTime)
	return ServiceHealth{
		Service:       h.serviceName,
		Version:       h.version,
		Status:        status,
		Uptime:        uptime,
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		Components:    components,
		Transport:     transport,
		Metrics: map[string]interface{}{
			"goroutines":          runtime.NumGoroutine(),
			"memory_alloc_mb":     m.Alloc / 1024 / 1024,
			"memory_sys_mb":       m.Sys / 1024 / 1024,
			"gc_runs":             m.NumGC,
			"cpu_count":           runtime.NumCPU(),
			"version_info":        version.Info(),
			"total_components":    len(h.components),
			"error_components":    errorCount,
			"degraded_components": degradedCount,
		},
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		w.Header().Set("Content-Type", "application/json")

		switch health.Status {
		case "healthy", "degraded":
			w.WriteHeader(http.StatusOK)
		case "unhealthy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}

		if err := json.NewEncoder(w).Encode(health); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode health response: %v", err), http.StatusInternalServerError)
		}
	}
}

// ReadinessHandler returns a simple readiness check
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		w.Header().Set("Content-Type", "application/json")

		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		response := map[string]interface{}{
			"ready":  health.Status != "unhealthy",
			"status": health.Status,
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode readiness response: %v", err), http.StatusInternalServerError)
		}
	}
}

// LivenessHandler returns a simple liveness check
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).String(),
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode liveness response: %v", err), http.StatusInternalServerError)
		}
	}
}

func (h *HealthChecker) collectSystemMetrics() {
	h.updateSystemMetrics()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.updateSystemMetrics()
		}
	}
}

func (h *HealthChecker) updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	GoRoutines.Set(float64(runtime.NumGoroutine()))
	MemoryUsage.Set(float64(m.Alloc))
	GCRuns.Set(float64(m.NumGC))

	info := version.Info()
	SystemInfo.WithLabelValues(
		info["version"],
		info["go_version"],
		info["commit"],
		info["build_date"],
	).Set(1)
}

// Shutdown gracefully shuts down the health checker
func (h *HealthChecker) Shutdown() {
	h.cancel()
}

// ComponentMonitor runs a self-check periodically and reports it to a
// HealthChecker. A check slower than the degraded threshold marks the
// component degraded.
type ComponentMonitor struct {
	name          string
	healthChecker *HealthChecker
	checkFunc     func(context.Context) error
	interval      time.Duration
	slow          time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewComponentMonitor creates a monitor. slow <= 0 disables the degraded
// threshold.
func NewComponentMonitor(name string, hc *HealthChecker, checkFunc func(context.Context) error, interval, slow time.Duration) *ComponentMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &ComponentMonitor{
		name:          name,
		healthChecker: hc,
		checkFunc:     checkFunc,
		interval:      interval,
		slow:          slow,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins monitoring the component
func (cm *ComponentMonitor) Start() {
	go cm.monitor()
}

// Stop stops monitoring the component
func (cm *ComponentMonitor) Stop() {
	cm.cancel()
}

func (cm *ComponentMonitor) monitor() {
	cm.performCheck()

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-cm.ctx.Done():
			return
		case <-ticker.C:
			cm.performCheck()
		}
	}
}

func (cm *ComponentMonitor) performCheck() {
	start := time.Now()
	err := cm.checkFunc(cm.ctx)
	elapsed := time.Since(start)

	status := StatusOK
	switch {
	case err != nil:
		status = StatusError
		RecordError(cm.name, "self_check")
	case cm.slow > 0 && elapsed > cm.slow:
		status = StatusDegraded
	}

	cm.healthChecker.UpdateComponent(cm.name, status, elapsed.Milliseconds(), err)
}
