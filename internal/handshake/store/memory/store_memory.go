package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authbroker/internal/handshake/models"
	"authbroker/pkg/platform/sentinel"
)

// Error Contract:
// All methods follow the handshake store error pattern:
// - sentinel.ErrConflict (wrapped) for duplicate handles on Put
// - sentinel.ErrNotFound (wrapped) for absent or expired handles
// - sentinel.ErrAlreadyTerminal (wrapped) for a second terminal transition

// InMemoryHandshakeStore keeps handshake records in process memory behind a
// single mutex. Every operation is a short critical section, which makes the
// whole store trivially linearizable.
type InMemoryHandshakeStore struct {
	mu        sync.Mutex
	records   map[string]*models.Record
	retention time.Duration
	clock     func() time.Time
}

// Option configures the store.
type Option func(*InMemoryHandshakeStore)

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryHandshakeStore) {
		s.clock = clock
	}
}

// NewInMemoryHandshakeStore creates a store whose records expire after the
// given retention window.
func NewInMemoryHandshakeStore(retention time.Duration, opts ...Option) *InMemoryHandshakeStore {
	s := &InMemoryHandshakeStore{
		records:   make(map[string]*models.Record),
		retention: retention,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryHandshakeStore) Put(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.Handle]; exists {
		return fmt.Errorf("handshake handle already exists: %w", sentinel.ErrConflict)
	}

	stored := *record
	s.records[record.Handle] = &stored
	return nil
}

func (s *InMemoryHandshakeStore) Transition(_ context.Context, handle string, state models.State, payload models.TerminalPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.liveRecordLocked(handle)
	if err != nil {
		return err
	}
	if record.State.Terminal() {
		return fmt.Errorf("handshake already finalized: %w", sentinel.ErrAlreadyTerminal)
	}

	record.State = state
	record.User = payload.User
	record.Credential = payload.Credential
	return nil
}

func (s *InMemoryHandshakeStore) Consume(_ context.Context, handle string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.liveRecordLocked(handle)
	if err != nil {
		return nil, err
	}

	delete(s.records, handle)
	consumed := *record
	return &consumed, nil
}

func (s *InMemoryHandshakeStore) PeekPending(_ context.Context, handle string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.liveRecordLocked(handle)
	if err != nil {
		return false, nil
	}
	return record.State == models.StatePending, nil
}

func (s *InMemoryHandshakeStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for handle, record := range s.records {
		if s.expired(record, now) {
			delete(s.records, handle)
			deleted++
		}
	}
	return deleted, nil
}

// liveRecordLocked returns the record for the handle, lazily evicting it when
// the retention window has passed. Callers must hold the mutex.
func (s *InMemoryHandshakeStore) liveRecordLocked(handle string) (*models.Record, error) {
	record, exists := s.records[handle]
	if !exists {
		return nil, fmt.Errorf("handshake not found: %w", sentinel.ErrNotFound)
	}
	if s.expired(record, s.clock()) {
		delete(s.records, handle)
		return nil, fmt.Errorf("handshake expired: %w", sentinel.ErrNotFound)
	}
	return record, nil
}

func (s *InMemoryHandshakeStore) expired(record *models.Record, now time.Time) bool {
	return s.retention > 0 && now.Sub(record.CreatedAt) > s.retention
}
