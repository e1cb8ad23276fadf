package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/eaglebank/corebank/shared/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps the go-redis client shared by the view cache and the stream
// transport of one process.
type Client struct {
	*redis.Client
}

// NewClient connects and pings, giving up after the dial timeout.
func NewClient(ctx context.Context, cfg config.Redis) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Client{Client: rdb}, nil
}
