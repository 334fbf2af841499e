package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"cinebot-go/internal/model"
	"cinebot-go/pkg/log"
)

const (
	// a lock outlives a crashed holder by at most this long
	defaultLockTTL   = 10 * time.Second
	lockRetryBackoff = 25 * time.Millisecond
)

// releaseLock deletes the lock only while it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
	lockTTL     time.Duration
}

// NewRedisSessionRepository stores sessions as JSON in redis. The ttl is
// renewed on every write; zero disables expiry. Turns of one user are
// serialized across replicas with a SET NX lock.
func NewRedisSessionRepository(redisClient *redis.Client, ttl time.Duration) SessionRepository {
	return &redisSessionRepository{redisClient: redisClient, ttl: ttl, lockTTL: defaultLockTTL}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("cinebot:session:%s", userID)
}

func lockKey(userID string) string {
	return fmt.Sprintf("cinebot:lock:%s", userID)
}

func (r *redisSessionRepository) Get(ctx context.Context, userID string) (model.Session, error) {
	jsonData, err := r.redisClient.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return model.NewSession(), nil
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	var session model.Session
	if err := json.Unmarshal([]byte(jsonData), &session); err != nil {
		return model.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.LastRecommendations == nil {
		session.LastRecommendations = []model.Movie{}
	}
	return session, nil
}

func (r *redisSessionRepository) Put(ctx context.Context, userID string, session model.Session) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.redisClient.Set(ctx, sessionKey(userID), jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, userID string) error {
	if err := r.redisClient.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Lock polls SET NX until it owns the lock of userID or ctx is done.
func (r *redisSessionRepository) Lock(ctx context.Context, userID string) (func(), error) {
	key := lockKey(userID)
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryBackoff)
	defer ticker.Stop()
	for {
		ok, err := r.redisClient.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for session lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		if err := releaseLock.Run(context.WithoutCancel(ctx), r.redisClient, []string{key}, token).Err(); err != nil {
			log.Warnf("[SessionRepository] failed to release lock %s: %v", key, err)
		}
	}, nil
}
