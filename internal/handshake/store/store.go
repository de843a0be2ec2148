package store

import (
	"context"
	"time"

	"authbroker/internal/handshake/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Put returns sentinel.ErrConflict (wrapped) when the handle already exists
// - Transition returns sentinel.ErrNotFound when the handle is absent or
//   expired, sentinel.ErrAlreadyTerminal when the record already left Pending
// - Consume returns sentinel.ErrNotFound when there is nothing to deliver
// - Wrapped errors with context for infrastructure failures
//
// Concurrency contract: operations on the same handle are linearizable.
// Among concurrent Consume calls for one handle, exactly one observes the
// record; all others observe absence.

// Store is the single shared mutable resource of the broker. Implementations
// are injected (never a singleton) so a TTL-capable distributed backend can
// replace the in-memory one for multi-instance deployments.
type Store interface {
	// Put inserts a new Pending record.
	Put(ctx context.Context, record *models.Record) error

	// Transition atomically moves a record from Pending to a terminal state
	// and attaches the payload. Only the first transition wins.
	Transition(ctx context.Context, handle string, state models.State, payload models.TerminalPayload) error

	// Consume atomically reads and deletes the record. This is the single
	// point of exactly-once delivery.
	Consume(ctx context.Context, handle string) (*models.Record, error)

	// PeekPending reports whether the handle exists and is still Pending,
	// without consuming it.
	PeekPending(ctx context.Context, handle string) (bool, error)

	// DeleteExpired evicts records older than the retention window, bounding
	// memory growth from abandoned handshakes. The time parameter is
	// injected for testability.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
