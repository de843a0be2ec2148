package store

import (
	"context"

	"github.com/google/uuid"

	"authbroker/internal/identity/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested user does not exist
// - Return sentinel.ErrConflict (wrapped) when a uniqueness invariant would break
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// UserStore is interface-driven to keep the reconciliation logic testable
// and to allow swapping in-memory and Postgres persistence without rewiring
// business code.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
}
