package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dywsy21/Cecilia/internal/models"
)

const (
	sessionKeyPrefix  = "cecilia:verify:session:"
	attemptsKeyPrefix = "cecilia:verify:attempts:"
)

// RedisStore keeps pending sessions in Redis so multiple instances
// share the attempt counter. Key expiry doubles as the sweeper.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Create(ctx context.Context, session models.PendingVerification) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("verification: marshal session: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.Token, data, r.ttl)
	pipe.Set(ctx, attemptsKeyPrefix+session.Token, 0, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("verification: store session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, token string) (models.PendingVerification, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PendingVerification{}, ErrSessionNotFound
	}
	if err != nil {
		return models.PendingVerification{}, fmt.Errorf("verification: load session: %w", err)
	}

	var session models.PendingVerification
	if err := json.Unmarshal(data, &session); err != nil {
		return models.PendingVerification{}, fmt.Errorf("verification: parse session: %w", err)
	}

	attempts, err := r.client.Get(ctx, attemptsKeyPrefix+token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.PendingVerification{}, fmt.Errorf("verification: load attempts: %w", err)
	}
	session.Attempts = attempts
	return session, nil
}

// IncrementAttempts relies on INCR so concurrent verifies each see a
// distinct counter value.
func (r *RedisStore) IncrementAttempts(ctx context.Context, token string) (int, error) {
	exists, err := r.client.Exists(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return 0, fmt.Errorf("verification: check session: %w", err)
	}
	if exists == 0 {
		return 0, ErrSessionNotFound
	}

	attempts, err := r.client.Incr(ctx, attemptsKeyPrefix+token).Result()
	if err != nil {
		return 0, fmt.Errorf("verification: increment attempts: %w", err)
	}
	r.client.Expire(ctx, attemptsKeyPrefix+token, r.ttl)
	return int(attempts), nil
}

func (r *RedisStore) Update(ctx context.Context, session models.PendingVerification) error {
	exists, err := r.client.Exists(ctx, sessionKeyPrefix+session.Token).Result()
	if err != nil {
		return fmt.Errorf("verification: check session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	return r.Create(ctx, session)
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+token, attemptsKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("verification: delete session: %w", err)
	}
	return nil
}

// Sweep is a no-op; Redis key TTLs expire sessions on their own.
func (r *RedisStore) Sweep(ctx context.Context, now time.Time) int { return 0 }
