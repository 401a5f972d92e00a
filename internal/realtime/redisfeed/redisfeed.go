// Package redisfeed carries table change signals over Redis pub/sub, for
// deployments where several service instances write to the same store.
package redisfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/realtime"
)

const channelPrefix = "pondwatch:changes:"

// Channel is the pub/sub channel used for a table.
func Channel(table realtime.Table) string {
	return channelPrefix + string(table)
}

// Feed implements realtime.Notifier and realtime.Publisher on one Redis client.
type Feed struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL, password string, logger *zap.Logger) (*Feed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if password != "" {
		opt.Password = password
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Feed{client: client, logger: logger}, nil
}

// Publish announces a change on the table's channel.
func (f *Feed) Publish(ctx context.Context, table realtime.Table) error {
	if err := f.client.Publish(ctx, Channel(table), time.Now().UTC().Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", table, err)
	}
	return nil
}

// Subscribe calls onChange for every message on the table's channel until the
// subscription is closed.
func (f *Feed) Subscribe(ctx context.Context, table realtime.Table, onChange func()) (realtime.Subscription, error) {
	ps := f.client.Subscribe(ctx, Channel(table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis SUBSCRIBE %s: %w", table, err)
	}

	go func() {
		for range ps.Channel() {
			onChange()
		}
		f.logger.Debug("change feed closed", zap.String("table", string(table)))
	}()

	return ps, nil
}

// Close closes the Redis connection.
func (f *Feed) Close() error {
	return f.client.Close()
}
