// Package lifespan owns the process-wide Trakt client. The client is built
// once on Start and released once on Stop.
package lifespan

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/localrivet/traktmcp/internal/config"
	"github.com/localrivet/traktmcp/internal/trakt"
)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("lifespan already stopped")

// Handle gives tool handlers access to the shared client.
type Handle struct {
	Client *trakt.Client
}

// Manager constructs and releases the shared client.
type Manager struct {
	mu      sync.Mutex
	creds   config.Credentials
	opts    []trakt.Option
	handle  *Handle
	stopped bool
	logger  *slog.Logger
}

// New returns a Manager for creds. opts are passed to trakt.New.
func New(creds config.Credentials, opts ...trakt.Option) *Manager {
	return &Manager{
		creds:  creds,
		opts:   opts,
		logger: slog.Default().With("component", "lifespan"),
	}
}

// Start constructs the client on first call and returns the same handle on
// every later call.
func (m *Manager) Start(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, ErrStopped
	}
	if m.handle != nil {
		return m.handle, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := trakt.New(m.creds, m.opts...)
	if err != nil {
		return nil, err
	}
	m.handle = &Handle{Client: client}
	m.logger.Info("Trakt client started")
	return m.handle, nil
}

// Stop releases the client. It is a no-op before Start and after the first
// Stop.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}
	m.stopped = true

	if m.handle == nil {
		return nil
	}
	m.logger.Info("Releasing Trakt client")
	return m.handle.Client.Close()
}

// Running reports whether the client has been started and not stopped.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil && !m.stopped
}
