package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/ecoroutemcp/pkg/catalog"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
	"github.com/NERVsystems/ecoroutemcp/pkg/ranking"
	"github.com/NERVsystems/ecoroutemcp/pkg/server"
	"github.com/NERVsystems/ecoroutemcp/pkg/tracing"
	ver "github.com/NERVsystems/ecoroutemcp/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool
	catalogPath     string

	// Compare result cache
	cacheSize int
	cacheTTL  time.Duration

	// HTTP transport flags
	enableHTTP    bool
	httpOnly      bool
	httpAddr      string
	httpBaseURL   string
	httpAuthType  string
	httpAuthToken string
	httpRPS       float64
	httpBurst     int
	recalcLatency time.Duration

	// Monitoring flags
	enableMonitoring bool
	monitoringAddr   string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&catalogPath, "catalog", "", "Path to a YAML route catalog (built-in catalog if empty)")

	flag.IntVar(&cacheSize, "cache-size", 256, "Number of compare results to cache (0 disables caching)")
	flag.DurationVar(&cacheTTL, "cache-ttl", 0, "Lifetime of cached compare results (0 keeps them until evicted)")

	flag.BoolVar(&enableHTTP, "enable-http", false, "Enable HTTP+SSE transport (in addition to stdio)")
	flag.BoolVar(&httpOnly, "http-only", false, "Run HTTP transport only, skip stdio (requires --enable-http)")
	flag.StringVar(&httpAddr, "http-addr", ":7082", "HTTP server address")
	flag.StringVar(&httpBaseURL, "http-base-url", "", "Base URL for HTTP transport (auto-detected if empty)")
	flag.StringVar(&httpAuthType, "http-auth-type", "none", "HTTP authentication type: none, bearer, basic")
	flag.StringVar(&httpAuthToken, "http-auth-token", "", "HTTP authentication token (user:password for basic)")
	flag.Float64Var(&httpRPS, "http-rps", 10, "HTTP rate limit per client IP in requests per second (0 disables)")
	flag.IntVar(&httpBurst, "http-burst", 20, "HTTP rate limit burst size")
	flag.DurationVar(&recalcLatency, "recalc-latency", 0, "Artificial delay before each dashboard recalculation")

	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics and health endpoints")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")
}

func main() {
	// Real environment variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	flag.Parse()

	var logLevel slog.Level
	if debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}

	// stdout carries the stdio transport, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		fmt.Println(ver.String())
		return
	}

	if httpOnly && !enableHTTP {
		logger.Error("--http-only requires --enable-http")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()

		if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
			logger.Info("OpenTelemetry tracing enabled", "endpoint", endpoint)
		}
	}

	dash, err := newDashboard(catalogPath, cacheSize, cacheTTL)
	if err != nil {
		logger.Error("failed to load route catalog", "path", catalogPath, "error", err)
		os.Exit(1)
	}

	logger.Info("starting route emissions MCP server",
		"version", ver.BuildVersion,
		"log_level", logLevel.String(),
		"catalog", catalogLabel(catalogPath),
		"cities", len(dash.Catalog().Cities()),
		"routes", len(dash.Catalog().AllRoutes()),
		"cache_size", cacheSize,
		"http_enabled", enableHTTP,
		"monitoring_enabled", enableMonitoring,
		"monitoring_addr", monitoringAddr)

	s, err := server.NewServer(dash)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	var healthChecker *monitoring.HealthChecker
	if enableMonitoring {
		healthChecker = monitoring.NewHealthChecker(monitoring.ServiceName, ver.BuildVersion)
		defer healthChecker.Shutdown()

		engine := monitoring.NewComponentMonitor("engine", healthChecker, func(context.Context) error {
			return selfCheck(dash)
		}, 30*time.Second, 250*time.Millisecond)
		engine.Start()
		defer engine.Stop()

		monitoringServer := &http.Server{
			Addr:              monitoringAddr,
			Handler:           newMonitoringMux(healthChecker),
			ReadHeaderTimeout: 30 * time.Second, // Prevent Slowloris attacks
		}

		go func() {
			logger.Info("starting monitoring server", "addr", monitoringAddr)
			if err := monitoringServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitoring server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := monitoringServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown monitoring server", "error", err)
			}
		}()
	}

	if enableHTTP {
		config := server.DefaultHTTPTransportConfig()
		config.Addr = httpAddr
		config.BaseURL = httpBaseURL
		config.AuthType = httpAuthType
		config.AuthToken = httpAuthToken
		config.RateLimit = httpRPS
		config.RateBurst = httpBurst
		config.RecalcLatency = recalcLatency

		httpTransport, err := server.NewHTTPTransport(s.GetMCPServer(), dash, config, logger)
		if err != nil {
			logger.Error("invalid HTTP transport configuration", "error", err)
			os.Exit(2)
		}
		if healthChecker != nil {
			httpTransport.SetHealthChecker(healthChecker)
			healthChecker.SetTransport(monitoring.TransportInfo{
				Type:     "http+sse",
				HTTPAddr: httpAddr,
			})
		}

		go func() {
			if err := httpTransport.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP transport error", "error", err)
				stop()
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := httpTransport.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown HTTP transport", "error", err)
			}
		}()
	}

	// Transport startup:
	// - stdio only (default): run stdio on the main goroutine
	// - HTTP and stdio: run stdio in the background and wait for a signal
	// - HTTP only: wait for a signal
	switch {
	case !enableHTTP:
		logger.Info("transport_enabled", "type", "stdio", "mode", "blocking")
		if err := s.RunWithContext(ctx); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case httpOnly:
		logger.Info("server_ready", "transports", []string{"http"}, "http_only", true)
		<-ctx.Done()
		logger.Info("shutdown signal received")
	default:
		go func() {
			logger.Info("transport_enabled", "type", "stdio", "mode", "background")
			if err := s.RunWithContext(ctx); err != nil {
				logger.Error("stdio transport error", "error", err)
			}
		}()

		logger.Info("server_ready", "transports", []string{"stdio", "http"})
		<-ctx.Done()
		logger.Info("shutdown signal received")
	}

	logger.Info("server stopped")
}

// newDashboard loads the catalog (the embedded one when path is empty) and
// wraps it in a dashboard with an optional result cache.
func newDashboard(path string, size int, ttl time.Duration) (*dashboard.Dashboard, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if path == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.Load(path)
	}
	if err != nil {
		return nil, err
	}

	var opts []dashboard.Option
	if size > 0 {
		opts = append(opts, dashboard.WithResultCache(size, ttl))
	}
	return dashboard.New(cat, opts...), nil
}

func newMonitoringMux(hc *monitoring.HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", hc.HealthHandler())
	mux.HandleFunc("/ready", hc.ReadinessHandler())
	mux.HandleFunc("/live", hc.LivenessHandler())
	return mux
}

// selfCheck ranks every catalog city pair and fails if the engine rejects
// any of them or a pair yields no viable route under a generous budget.
func selfCheck(d *dashboard.Dashboard) error {
	cat := d.Catalog()
	seen := make(map[[2]string]bool)
	for _, r := range cat.AllRoutes() {
		pair := [2]string{r.Origin, r.Destination}
		if seen[pair] {
			continue
		}
		seen[pair] = true

		res, _, err := d.Compare(dashboard.CompareRequest{
			Origin:         r.Origin,
			Destination:    r.Destination,
			Priority:       ranking.PriorityEmissions,
			TimeConstraint: 24 * 60,
		})
		if err != nil {
			return fmt.Errorf("%s->%s: %w", r.Origin, r.Destination, err)
		}
		if res.SelectedID == nil {
			return fmt.Errorf("%s->%s: no viable route", r.Origin, r.Destination)
		}
	}
	if len(seen) == 0 {
		return errors.New("catalog has no routes")
	}
	return nil
}

func catalogLabel(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
