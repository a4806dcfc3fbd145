package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/supplyshock/internal/logging"
	"github.com/nvandessel/supplyshock/internal/ratelimit"
	"github.com/nvandessel/supplyshock/internal/session"
	"github.com/nvandessel/supplyshock/internal/store"
)

// Server wraps the MCP SDK server around one simulation session.
type Server struct {
	server *sdk.Server

	// mu serializes the session_* tools.
	mu   sync.Mutex
	sess *session.Session

	store    store.SessionStore
	audit    *AuditLogger
	limiters ratelimit.ToolLimiters
	logger   *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "supplyshock")
	Version string

	Session *session.Session

	// Store, when set, receives the session after every transition.
	Store store.SessionStore

	// AuditDir holds mcp-audit.jsonl. Empty disables auditing.
	AuditDir string

	// Limiters defaults to ratelimit.NewToolLimiters().
	Limiters ratelimit.ToolLimiters

	Logger *slog.Logger
}

// NewServer creates an MCP server exposing the simulation tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Session == nil {
		return nil, errors.New("mcp server requires a session")
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:   mcpServer,
		sess:     cfg.Session,
		store:    cfg.Store,
		limiters: cfg.Limiters,
		logger:   logging.OrDiscard(cfg.Logger),
	}
	if s.limiters == nil {
		s.limiters = ratelimit.NewToolLimiters()
	}
	if cfg.AuditDir != "" {
		s.audit = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until the client disconnects, ctx is cancelled or
// the process is interrupted.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server running", "session_id", s.sess.ID())
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases the audit log. The session store belongs to the caller.
func (s *Server) Close() error {
	if err := s.audit.Close(); err != nil {
		return fmt.Errorf("closing audit log: %w", err)
	}
	return nil
}
