package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authbroker/internal/handshake/models"
	"authbroker/pkg/platform/sentinel"
)

func pendingRecord(handle string, createdAt time.Time) *models.Record {
	return &models.Record{
		Handle:    handle,
		State:     models.StatePending,
		CreatedAt: createdAt,
	}
}

func TestPut_RejectsDuplicateHandle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryHandshakeStore(time.Minute)

	require.NoError(t, store.Put(ctx, pendingRecord("h1", time.Now())))

	err := store.Put(ctx, pendingRecord("h1", time.Now()))
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestTransition_FinalizesPendingRecordOnce(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryHandshakeStore(time.Minute)
	require.NoError(t, store.Put(ctx, pendingRecord("h1", time.Now())))

	err := store.Transition(ctx, "h1", models.StateFailed, models.TerminalPayload{})
	require.NoError(t, err)

	err = store.Transition(ctx, "h1", models.StateCompleted, models.TerminalPayload{})
	require.ErrorIs(t, err, sentinel.ErrAlreadyTerminal)
}

func TestTransition_UnknownHandleReturnsNotFound(t *testing.T) {
	store := NewInMemoryHandshakeStore(time.Minute)

	err := store.Transition(context.Background(), "missing", models.StateCompleted, models.TerminalPayload{})
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestConsume_RemovesTheRecord(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryHandshakeStore(time.Minute)
	require.NoError(t, store.Put(ctx, pendingRecord("h1", time.Now())))
	require.NoError(t, store.Transition(ctx, "h1", models.StateCompleted, models.TerminalPayload{}))

	record, err := store.Consume(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, record.State)

	_, err = store.Consume(ctx, "h1")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestConsume_ConcurrentCallsDeliverExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryHandshakeStore(time.Minute)
	require.NoError(t, store.Put(ctx, pendingRecord("h1", time.Now())))
	require.NoError(t, store.Transition(ctx, "h1", models.StateCompleted, models.TerminalPayload{}))

	const pollers = 32
	var wg sync.WaitGroup
	results := make(chan error, pollers)

	for range pollers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, "h1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	delivered := 0
	for err := range results {
		if err == nil {
			delivered++
		} else {
			require.ErrorIs(t, err, sentinel.ErrNotFound)
		}
	}
	assert.Equal(t, 1, delivered, "exactly one consumer should receive the record")
}

func TestPeekPending_ReportsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryHandshakeStore(time.Minute)

	pending, err := store.PeekPending(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, store.Put(ctx, pendingRecord("h1", time.Now())))

	pending, err = store.PeekPending(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, store.Transition(ctx, "h1", models.StateCompleted, models.TerminalPayload{}))

	pending, err = store.PeekPending(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestExpiry_RecordsBecomeInvisibleAfterRetention(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	current := now
	store := NewInMemoryHandshakeStore(time.Minute, WithClock(func() time.Time { return current }))

	require.NoError(t, store.Put(ctx, pendingRecord("h1", now)))

	current = now.Add(2 * time.Minute)

	err := store.Transition(ctx, "h1", models.StateCompleted, models.TerminalPayload{})
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.Consume(ctx, "h1")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDeleteExpired_EvictsOnlyStaleRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewInMemoryHandshakeStore(time.Minute)

	require.NoError(t, store.Put(ctx, pendingRecord("stale", now.Add(-2*time.Minute))))
	require.NoError(t, store.Put(ctx, pendingRecord("fresh", now)))

	deleted, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	pending, err := store.PeekPending(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, pending)
}
