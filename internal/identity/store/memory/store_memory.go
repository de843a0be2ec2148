package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"authbroker/internal/identity/models"
	"authbroker/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in memory for tests/dev. It maintains the
// same uniqueness invariants as the Postgres store: email and google ID each
// map to at most one user.
type InMemoryUserStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]models.User
	byEmail  map[string]uuid.UUID
	byGoogle map[string]uuid.UUID
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:    make(map[uuid.UUID]models.User),
		byEmail:  make(map[string]uuid.UUID),
		byGoogle: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Email != "" {
		if _, exists := s.byEmail[user.Email]; exists {
			return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
		}
	}
	if user.GoogleID != "" {
		if _, exists := s.byGoogle[user.GoogleID]; exists {
			return fmt.Errorf("google id already linked: %w", sentinel.ErrConflict)
		}
	}

	s.users[user.ID] = *user
	if user.Email != "" {
		s.byEmail[user.Email] = user.ID
	}
	if user.GoogleID != "" {
		s.byGoogle[user.GoogleID] = user.ID
	}
	return nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}

	if user.Email != "" {
		if owner, taken := s.byEmail[user.Email]; taken && owner != user.ID {
			return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
		}
	}
	if user.GoogleID != "" {
		if owner, taken := s.byGoogle[user.GoogleID]; taken && owner != user.ID {
			return fmt.Errorf("google id already linked: %w", sentinel.ErrConflict)
		}
	}

	// Reindex changed unique fields.
	if existing.Email != user.Email && existing.Email != "" {
		delete(s.byEmail, existing.Email)
	}
	if existing.GoogleID != user.GoogleID && existing.GoogleID != "" {
		delete(s.byGoogle, existing.GoogleID)
	}

	s.users[user.ID] = *user
	if user.Email != "" {
		s.byEmail[user.Email] = user.ID
	}
	if user.GoogleID != "" {
		s.byGoogle[user.GoogleID] = user.ID
	}
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		copied := user
		return &copied, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if email != "" {
		if id, ok := s.byEmail[email]; ok {
			copied := s.users[id]
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if googleID != "" {
		if id, ok := s.byGoogle[googleID]; ok {
			copied := s.users[id]
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}
