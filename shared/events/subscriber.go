package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Subscriber reads a Redis stream through a consumer group. Every message is
// acknowledged once handled, including ones that fail: a bad event is logged
// and dropped so it cannot stall the stream.
type Subscriber struct {
	client        redis.Cmdable
	group         string
	consumer      string
	stream        string
	routingKeys   map[string]bool
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	log           *zap.Logger
}

type SubscriberConfig struct {
	Group    string
	Consumer string
	Stream   string
	// RoutingKeys restricts delivery to these kinds; empty accepts all.
	RoutingKeys   []string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	Logger        *zap.Logger
}

func NewSubscriber(client redis.Cmdable, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		routingKeys:   routingKeySet(config.RoutingKeys),
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		log:           config.Logger,
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.ensureGroup(ctx); err != nil {
		return err
	}

	s.log.Info("subscriber started",
		zap.String("stream", s.stream), zap.String("group", s.group), zap.String("consumer", s.consumer))

	if err := s.drainPending(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("error draining pending messages", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("subscriber stopping", zap.String("stream", s.stream))
			return ctx.Err()
		default:
			if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("error reading messages", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

// ensureGroup creates the consumer group if it doesn't exist.
func (s *Subscriber) ensureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	messages, err := s.read(ctx, ">", s.blockDuration)
	if err != nil {
		return err
	}
	for _, message := range messages {
		s.handle(ctx, message)
	}
	return nil
}

// drainPending handles entries delivered to this consumer earlier but never
// acknowledged, typically because the process stopped mid-batch.
func (s *Subscriber) drainPending(ctx context.Context) error {
	cursor := "0"
	for {
		messages, err := s.read(ctx, cursor, -1)
		if err != nil {
			return err
		}
		handled := 0
		for _, message := range messages {
			if message.ID == cursor {
				continue
			}
			s.handle(ctx, message)
			cursor = message.ID
			handled++
		}
		if handled == 0 {
			return nil
		}
		s.log.Info("redelivered pending messages", zap.Int("count", handled))
	}
}

// read fetches new entries for id ">" and this consumer's pending entries
// after id otherwise. A negative block does not wait.
func (s *Subscriber) read(ctx context.Context, id string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    s.batchSize,
		Block:    block,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil, nil // No messages
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var messages []redis.XMessage
	for _, stream := range streams {
		messages = append(messages, stream.Messages...)
	}
	return messages, nil
}

func (s *Subscriber) handle(ctx context.Context, message redis.XMessage) {
	if err := s.processMessage(ctx, message); err != nil {
		s.log.Error("dropping client event",
			zap.String("messageId", message.ID), zap.Error(err))
	}

	if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
		s.log.Warn("failed to ack message", zap.String("messageId", message.ID), zap.Error(err))
	}
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) (err error) {
	defer recoverHandler(&err)

	if s.routingKeys != nil {
		if rk, _ := message.Values["routingKey"].(string); !s.routingKeys[rk] {
			return nil
		}
	}

	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	event, err := Decode([]byte(eventData))
	if err != nil {
		return err
	}

	return s.handler(ctx, event)
}

// recoverHandler turns a handler panic into an error so the message is
// dropped like any other failure and the consumer keeps running.
func recoverHandler(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("handler panicked: %v", r)
	}
}

func routingKeySet(keys []string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
