package notify

import (
	"context"
	"fmt"

	"detailing/internal/events"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on a pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Notify(ctx context.Context, event events.Event) error {
	payload, err := event.Payload()
	if err != nil {
		return Permanent(fmt.Errorf("encode event: %w", err))
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}
