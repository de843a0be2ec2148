package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"authbroker/internal/handshake/models"
	"authbroker/pkg/platform/sentinel"
)

// Error Contract:
// All methods follow the handshake store error pattern:
// - sentinel.ErrConflict (wrapped) for duplicate handles on Put
// - sentinel.ErrNotFound (wrapped) for absent or expired handles
// - sentinel.ErrAlreadyTerminal (wrapped) for a second terminal transition
// - sentinel.ErrUnavailable (wrapped) for Redis infrastructure failures

const keyPrefix = "handshake:"

// transitionScript performs the Pending-to-terminal CAS in one atomic step on
// the Redis server. KEEPTTL preserves the retention deadline set at Put time.
var transitionScript = goredis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 'not_found'
end
local record = cjson.decode(raw)
if record['state'] ~= 'pending' then
  return 'already_terminal'
end
redis.call('SET', KEYS[1], ARGV[1], 'KEEPTTL')
return 'ok'
`)

// RedisHandshakeStore keeps handshake records in Redis, one JSON value per
// handle, with expiry delegated to the server-side TTL. All multi-step
// operations run as single Redis commands or scripts, so the per-handle
// linearizability contract holds across broker instances.
type RedisHandshakeStore struct {
	client    *goredis.Client
	retention time.Duration
}

func NewRedisHandshakeStore(client *goredis.Client, retention time.Duration) *RedisHandshakeStore {
	return &RedisHandshakeStore{
		client:    client,
		retention: retention,
	}
}

func (s *RedisHandshakeStore) Put(ctx context.Context, record *models.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode handshake record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key(record.Handle), payload, s.retention).Result()
	if err != nil {
		return fmt.Errorf("failed to store handshake record: %w", sentinel.ErrUnavailable)
	}
	if !ok {
		return fmt.Errorf("handshake handle already exists: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisHandshakeStore) Transition(ctx context.Context, handle string, state models.State, payload models.TerminalPayload) error {
	current, err := s.get(ctx, handle)
	if err != nil {
		return err
	}

	current.State = state
	current.User = payload.User
	current.Credential = payload.Credential

	encoded, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode handshake record: %w", err)
	}

	result, err := transitionScript.Run(ctx, s.client, []string{key(handle)}, encoded).Text()
	if err != nil {
		return fmt.Errorf("failed to transition handshake record: %w", sentinel.ErrUnavailable)
	}

	switch result {
	case "ok":
		return nil
	case "not_found":
		return fmt.Errorf("handshake not found: %w", sentinel.ErrNotFound)
	case "already_terminal":
		return fmt.Errorf("handshake already finalized: %w", sentinel.ErrAlreadyTerminal)
	default:
		return fmt.Errorf("unexpected transition result %q: %w", result, sentinel.ErrUnavailable)
	}
}

func (s *RedisHandshakeStore) Consume(ctx context.Context, handle string) (*models.Record, error) {
	raw, err := s.client.GetDel(ctx, key(handle)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("handshake not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume handshake record: %w", sentinel.ErrUnavailable)
	}

	var record models.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode handshake record: %w", err)
	}
	return &record, nil
}

func (s *RedisHandshakeStore) PeekPending(ctx context.Context, handle string) (bool, error) {
	record, err := s.get(ctx, handle)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.State == models.StatePending, nil
}

// DeleteExpired is a no-op: Redis evicts records itself via the per-key TTL
// set at Put time.
func (s *RedisHandshakeStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *RedisHandshakeStore) get(ctx context.Context, handle string) (*models.Record, error) {
	raw, err := s.client.Get(ctx, key(handle)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("handshake not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load handshake record: %w", sentinel.ErrUnavailable)
	}

	var record models.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode handshake record: %w", err)
	}
	return &record, nil
}

func key(handle string) string {
	return keyPrefix + handle
}
