package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStream consumes a JetStream stream bound to a single subject. The
// stream also captures plain NATS publishes on that subject, so producers
// keep using NATSPublisher. Each consumer uses its own durable name.
type NATSStream struct {
	conn     *nats.Conn
	consumer jetstream.Consumer
	consumed jetstream.ConsumeContext
	logger   apt.Logger
}

type NATSStreamConfig struct {
	URL          string
	StreamName   string
	Topic        string
	ConsumerName string
	MaxAge       time.Duration
	MaxMsgs      int64
}

func NewNATSStream(ctx context.Context, cfg NATSStreamConfig, logger apt.Logger) (*NATSStream, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	conn, err := connect(cfg.URL, cfg.ConsumerName+"-stream")
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Topic},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	// Live consumers only care about what happens after they connect.
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		FilterSubject: cfg.Topic,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.ConsumerName, err)
	}

	return &NATSStream{
		conn:     conn,
		consumer: consumer,
		logger:   logger,
	}, nil
}

// Subscribe consumes the stream. The topic argument is ignored because the
// consumer is already bound to its subject.
func (s *NATSStream) Subscribe(ctx context.Context, _ string, handler events.HandlerFunc) error {
	cc, err := s.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			s.logger.Error("stream handler failed, requesting redelivery", "subject", msg.Subject(), "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("cannot consume stream: %w", err)
	}
	s.consumed = cc
	return nil
}

func (s *NATSStream) Close() error {
	if s.consumed != nil {
		s.consumed.Stop()
	}
	return s.conn.Drain()
}
