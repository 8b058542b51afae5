// Package server provides the MCP server for the route emissions engine:
// the stdio run loop, the HTTP+SSE transport and its middleware.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/tools"
	"github.com/NERVsystems/ecoroutemcp/pkg/version"
)

// ServerName is the name of the MCP server
const ServerName = "ecoroute-mcp-server"

// Server encapsulates the MCP server with the emissions and ranking tools.
type Server struct {
	srv          *mcpserver.MCPServer
	dash         *dashboard.Dashboard
	logger       *slog.Logger
	stopCh       chan struct{}
	doneCh       chan struct{}
	running      bool
	mu           sync.Mutex
	once         sync.Once // Ensure we only close stopCh once
	ctxCancel    context.CancelFunc
	ctxGoroutine sync.Once // Ensure we only start one context goroutine
}

// NewServer creates an MCP server with all tools and prompts registered
// against the given dashboard.
func NewServer(dash *dashboard.Dashboard) (*Server, error) {
	if dash == nil {
		return nil, errors.New("server: dashboard is required")
	}

	logger := slog.Default()
	logger.Info("initializing route emissions MCP server",
		"name", ServerName,
		"version", version.BuildVersion)

	srv := mcpserver.NewMCPServer(
		ServerName,
		version.BuildVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	tools.NewRegistry(logger, dash).RegisterAll(srv)

	return &Server{
		srv:    srv,
		dash:   dash,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Run starts the MCP server using stdin/stdout for communication.
// This method blocks until the server is stopped or an error occurs.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	// Run the server in a goroutine
	go func() {
		defer close(s.doneCh)
		err := mcpserver.ServeStdio(s.srv)
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Error("server error", "error", err)
		}

		// Ensure the main Run loop is notified that the
		// server has finished processing.
		s.Shutdown()
	}()

	// Wait for stop signal
	<-s.stopCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	// Wait for server to finish before returning
	<-s.doneCh
	return nil
}

// RunWithContext starts the MCP server and allows for graceful shutdown via context.
// This method blocks until the context is canceled or an error occurs.
func (s *Server) RunWithContext(ctx context.Context) error {
	// Create a goroutine to watch the context for cancellation
	s.ctxGoroutine.Do(func() {
		// Create a derived context that we can cancel
		derived, cancel := context.WithCancel(ctx)
		s.ctxCancel = cancel

		go func() {
			select {
			case <-derived.Done():
				s.Shutdown()
			case <-s.stopCh:
				// Already being shut down
			}
		}()
	})

	return s.Run()
}

// Shutdown initiates a graceful shutdown of the server.
// It does not block and returns immediately.
// Using sync.Once to ensure we don't close an already closed channel.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	// Signal the server to stop using sync.Once to avoid panics
	// on double close of the channel
	s.once.Do(func() {
		close(s.stopCh)
	})

	// Cancel the context if we have one
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
}

// WaitForShutdown blocks until the server has fully shut down.
func (s *Server) WaitForShutdown() {
	<-s.doneCh
}

// GetMCPServer returns the underlying MCP server instance for HTTP transport
func (s *Server) GetMCPServer() *mcpserver.MCPServer {
	return s.srv
}

// Dashboard returns the dashboard the tools compare against.
func (s *Server) Dashboard() *dashboard.Dashboard {
	return s.dash
}
