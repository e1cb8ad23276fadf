package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const routingKeyHeader = "routing-key"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes client events to a topic keyed by client key, so all
// events of one client land on the same partition in publish order.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error(fmt.Sprintf(msg, args...))
		}),
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event ClientEvent) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.Data.ClientKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: routingKeyHeader, Value: []byte(event.Kind.RoutingKey())},
		},
		Time: event.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber consumes a topic as part of a consumer group. Offsets are
// committed after each message whatever the handler returned, matching the
// log-and-drop policy of the Redis subscriber.
type KafkaSubscriber struct {
	reader      messageReader
	routingKeys map[string]bool
	handler     Handler
	log         *zap.Logger
}

type KafkaSubscriberConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// RoutingKeys restricts delivery to these kinds; empty accepts all.
	RoutingKeys []string
	Handler     Handler
	Logger      *zap.Logger
}

func NewKafkaSubscriber(cfg KafkaSubscriberConfig) *KafkaSubscriber {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &KafkaSubscriber{
		reader:      r,
		routingKeys: routingKeySet(cfg.RoutingKeys),
		handler:     cfg.Handler,
		log:         cfg.Logger,
	}
}

func (s *KafkaSubscriber) Start(ctx context.Context) error {
	s.log.Info("kafka subscriber started")
	defer s.reader.Close()

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				s.log.Info("kafka subscriber stopping")
				return ctx.Err()
			}
			s.log.Error("error fetching message", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if err := s.processMessage(ctx, msg); err != nil {
			s.log.Error("dropping client event",
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.log.Warn("failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (s *KafkaSubscriber) processMessage(ctx context.Context, msg kafka.Message) (err error) {
	defer recoverHandler(&err)

	if s.routingKeys != nil && !s.routingKeys[headerValue(msg.Headers, routingKeyHeader)] {
		return nil
	}

	event, err := Decode(msg.Value)
	if err != nil {
		return err
	}
	return s.handler(ctx, event)
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
