// Package sessions implements the storage interface: persist/restore
// {context, message history} keyed by session id. The core treats this as
// an injectable external collaborator; MemoryStore is the default,
// PostgresStore is the enrichment backend for durable deployments.
package sessions

import (
	"context"
	"errors"

	"github.com/duplexagent/core/pkg/models"
)

// ErrNotFound is returned by Get when no record exists for the session id.
var ErrNotFound = errors.New("sessions: not found")

// Record is the persisted state layout for one session.
type Record struct {
	Context  models.ClientContext
	Messages []models.Message
}

// Store persists and restores per-session state. Storage errors are never
// fatal to a session: the in-memory runtime state remains authoritative and
// the next successful write heals durability.
type Store interface {
	// Get returns the persisted record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Save persists record for id, replacing any prior value wholesale.
	Save(ctx context.Context, id string, record *Record) error

	// Delete removes the persisted record for id, if any.
	Delete(ctx context.Context, id string) error
}
