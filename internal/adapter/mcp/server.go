// Package mcp exposes the feedback queue and catalogue reads to AI assistants
// over the Model Context Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
)

// FeedbackService is the subset of the feedback queue the tools call.
type FeedbackService interface {
	Create(ctx context.Context, cmd feedback.CreateCommand) (*feedback.Item, error)
	Get(ctx context.Context, id int64) (*feedback.Item, error)
	List(ctx context.Context, filter feedback.ListFilter) ([]feedback.Item, error)
	Pending(ctx context.Context, afterID int64, limit int) ([]feedback.Item, error)
	AwaitingHumanReview(ctx context.Context, afterID int64, limit int) ([]feedback.Item, error)
}

// CatalogReader serves catalogue entities to the tools.
type CatalogReader interface {
	CodingRule(ctx context.Context, id int64) (*codingrule.CodingRule, error)
}

// ServerConfig holds listener and identity settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps are the services behind the tools. Nil deps make their tools
// return an error result.
type ServerDeps struct {
	Feedback FeedbackService
	Catalog  CatalogReader
}

// Server wraps an MCP server and its HTTP listener.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates an MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(
			cfg.Name,
			cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, true),
			mcpserver.WithRecovery(),
			mcpserver.WithInstructions(instructions),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

const instructions = "Use submit_feedback to propose changes to coding rules, rule examples, " +
	"class templates, checklist items and ArchUnit tests. Proposals are reviewed before they are merged; " +
	"use get_feedback to follow one."

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP handler guarded by API key auth.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer))
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	slog.Info("mcp server listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the listener down. It is a no-op before Start.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	slog.Info("mcp server stopping")
	return srv.Shutdown(ctx)
}
