// Package journal records metadata about tool invocations. It never stores
// upstream payloads or credentials.
package journal

import (
	"context"
	"time"
)

// Invocation statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Invocation is one finished tool call.
type Invocation struct {
	ID        string
	Tool      string
	Status    string
	Kind      string // error kind, empty on success
	Duration  time.Duration
	StartedAt time.Time
}

// Recorder receives finished invocations.
type Recorder interface {
	Record(ctx context.Context, inv Invocation) error
}

// Journal is a Recorder that can also be read back.
type Journal interface {
	Recorder

	// Recent returns up to limit invocations, newest first.
	Recent(ctx context.Context, limit int) ([]Invocation, error)

	// Close closes the journal and releases any resources.
	Close() error
}
