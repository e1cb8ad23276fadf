package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StreamPublisher appends client events to a single Redis stream. One stream
// keeps every client's events in publish order, which is what makes
// last-write-wins per client correct on the consuming side.
type StreamPublisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func NewStreamPublisher(client redis.Cmdable, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: 100000}
}

func (p *StreamPublisher) Publish(ctx context.Context, event ClientEvent) error {
	eventJSON, err := Encode(event)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"event":      eventJSON,
			"routingKey": event.Kind.RoutingKey(),
			"clientKey":  event.Data.ClientKey,
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
