package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"digiforge-analytics/internal/data"
)

// Publisher is the part of a redis client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes alerts as JSON on a pub/sub channel.
type RedisSink struct {
	client  Publisher
	channel string
	queue   *deliveryQueue
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisSink(client Publisher, channel string, logger *zap.Logger) *RedisSink {
	return &RedisSink{
		client:  client,
		channel: channel,
		queue:   newDeliveryQueue("redis", 256, 5*time.Second, logger),
	}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(_ context.Context, alert *data.Alert) error {
	msgJSON, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return s.queue.enqueue(func(ctx context.Context) error {
		if err := s.client.Publish(ctx, s.channel, msgJSON).Err(); err != nil {
			return fmt.Errorf("failed to publish alert %s: %w", alert.ID, err)
		}
		return nil
	})
}

// Close flushes pending publishes.
func (s *RedisSink) Close() error {
	s.queue.close()
	return nil
}
