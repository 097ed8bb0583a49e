// Package traktmcp exposes a Trakt.tv account to MCP clients as a set of
// tools. It can run as a standalone stdio server or be embedded in a host
// MCP server.
package traktmcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gomcpserver "github.com/localrivet/gomcp/server"

	"github.com/localrivet/traktmcp/internal/config"
	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/journal"
	"github.com/localrivet/traktmcp/internal/lifespan"
	"github.com/localrivet/traktmcp/internal/logger"
	"github.com/localrivet/traktmcp/internal/server"
	"github.com/localrivet/traktmcp/internal/telemetry"
	"github.com/localrivet/traktmcp/internal/tools"
	"github.com/localrivet/traktmcp/internal/trakt"
)

// Config represents the configuration for the traktmcp service.
type Config = config.Config

// Invocation is one journaled tool call.
type Invocation = journal.Invocation

// Server represents the traktmcp service.
type Server struct {
	config     *config.Config
	lifespan   *lifespan.Manager
	journal    journal.Journal
	table      *tools.Table
	toolServer *server.MCPToolServer
	logger     *slog.Logger
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. If both are empty, the default path and environment are used.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.

	// Metrics receives tool and upstream observations. Nil disables them.
	Metrics *telemetry.Metrics

	// ClientOptions are appended to the Trakt client options derived from
	// the configuration.
	ClientOptions []trakt.Option
}

// NewServer validates the configuration, starts the shared Trakt client and
// builds the tool table. A configuration failure is returned before any
// transport exists.
func NewServer(ctx context.Context, opts ServerOptions) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	cfg, err := resolveConfig(opts, log)
	if err != nil {
		return nil, err
	}

	creds, err := cfg.Credentials()
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		return nil, err
	}

	s := &Server{config: cfg, logger: log}

	if cfg.Journal.Path != "" {
		log.Info("Opening invocation journal", "path", cfg.Journal.Path)
		j, err := journal.OpenSQLite(cfg.Journal.Path)
		if err != nil {
			return nil, errortypes.ConfigurationError(err, "failed to open invocation journal")
		}
		s.journal = j
		log.Debug("Invocation journal ready", "path", j.Path())
	}

	clientOpts := append([]trakt.Option{
		trakt.WithBaseURL(cfg.Trakt.BaseURL),
		trakt.WithMetrics(opts.Metrics),
		trakt.WithLogger(logger.Component(log, "trakt")),
	}, opts.ClientOptions...)

	s.lifespan = lifespan.New(creds, clientOpts...)
	handle, err := s.lifespan.Start(ctx)
	if err != nil {
		s.release()
		return nil, err
	}

	tableOpts := []tools.Option{
		tools.WithMetrics(opts.Metrics),
		tools.WithLogger(logger.Component(log, "tools")),
	}
	if s.journal != nil {
		tableOpts = append(tableOpts, tools.WithRecorder(s.journal))
	}
	s.table, err = tools.NewTable(handle.Client, tableOpts...)
	if err != nil {
		s.release()
		return nil, err
	}

	s.toolServer = server.NewToolServer(s.table)
	if err := s.toolServer.Initialize(); err != nil {
		log.Error("Failed to initialize MCP tool server", "error", err)
		s.release()
		return nil, err
	}

	log.Info("traktmcp server initialized", "tools", len(s.table.Names()))
	return s, nil
}

func resolveConfig(opts ServerOptions, log *slog.Logger) (*Config, error) {
	switch {
	case opts.Config != nil:
		log.Info("Using provided Config object for server initialization")
		return opts.Config, nil
	case opts.ConfigPath != "":
		log.Info("Loading configuration", "path", opts.ConfigPath)
		return config.LoadWithPath(opts.ConfigPath)
	default:
		return config.Load()
	}
}

// DefaultConfig returns the default configuration for the traktmcp service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// Start serves MCP over stdio until stdin closes or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting traktmcp service")
	return s.toolServer.Start(ctx)
}

// Stop stops the transport and releases the Trakt client and the journal.
// It is safe to call more than once.
func (s *Server) Stop() error {
	s.logger.Info("Stopping traktmcp service")
	err := s.toolServer.Stop()
	if relErr := s.release(); relErr != nil {
		err = errors.Join(err, relErr)
	}
	if err != nil {
		s.logger.Error("Error stopping traktmcp service", "error", err)
		return err
	}
	s.logger.Info("traktmcp service stopped")
	return nil
}

func (s *Server) release() error {
	var errs []error
	if s.lifespan != nil {
		errs = append(errs, s.lifespan.Stop())
	}
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	return errors.Join(errs...)
}

// RegisterTools adds the Trakt tools to a host MCP server. Call it before
// the host starts serving.
func (s *Server) RegisterTools(host gomcpserver.Server) (gomcpserver.Server, error) {
	return s.toolServer.Register(host)
}

// Invoke runs one tool call directly, without an MCP transport. It returns
// the formatted JSON document, or a *errortypes.ToolError whose
// UserMessage is the kind-tagged text an MCP client would see.
func (s *Server) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	result := s.table.Invoke(ctx, name, args)
	if result.Failed() {
		return "", result.Err
	}
	return result.Text, nil
}

// ToolNames returns the registered tool names in registration order.
func (s *Server) ToolNames() []string {
	return s.table.Names()
}

// RecentInvocations returns up to limit journaled calls, newest first.
// It returns nil when the journal is disabled.
func (s *Server) RecentInvocations(ctx context.Context, limit int) ([]Invocation, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(ctx, limit)
}

// Health summarises the last window journaled calls. It returns nil when
// the journal is disabled.
func (s *Server) Health(ctx context.Context, window int) (*journal.HealthReport, error) {
	invocations, err := s.RecentInvocations(ctx, window)
	if err != nil || s.journal == nil {
		return nil, err
	}
	return journal.BuildHealthReport(invocations, trakt.Version, time.Now()), nil
}

// GetConfig returns the configuration the server was built from.
func (s *Server) GetConfig() *Config {
	return s.config
}
