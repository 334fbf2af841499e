// Package database bootstraps connections to external stores.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"cinebot-go/internal/config"
	"cinebot-go/pkg/log"
)

// NewRedis connects to redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
