// Package mcpserver hosts the four domain MCP servers (weather, booking,
// places, trip planner). Each server exposes its domain service's operations
// as typed MCP tools over streamable HTTP, plus a health endpoint.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tripmesh/tripmesh/logging"
)

// Default listen ports.
const (
	DefaultWeatherPort = 5004
	DefaultBookingPort = 5001
	DefaultPlacesPort  = 5002
	DefaultPlannerPort = 5003
)

const version = "1.0.0"

// Server hosts one MCP server over streamable HTTP.
type Server struct {
	name   string
	addr   string
	mcp    *mcp.Server
	logger logging.Logger
}

// Options customizes a Server.
type Options struct {
	Addr   string
	Logger logging.Logger
}

func newServer(name string, defaultPort int, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = fmt.Sprintf(":%d", defaultPort)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Server{
		name:   name,
		addr:   opts.Addr,
		mcp:    mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		logger: opts.Logger,
	}
}

// Name returns the server's MCP implementation name.
func (s *Server) Name() string { return s.name }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// MCP exposes the underlying MCP server, mainly for in-process transports in
// tests.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Handler returns the HTTP handler: the MCP endpoint on /mcp and a health
// probe on /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcpserver.listening", "server", s.name, "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// jsonResult renders v as a JSON text content result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

// errResult renders a domain failure as a tool-level error so the model can
// read and recover from it.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
