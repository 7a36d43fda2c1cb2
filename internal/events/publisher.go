package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Publisher delivers an envelope to one sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, routingKey string, env RawEnvelope) error
	Close() error
}

// LogPublisher only logs. It is the development sink.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(ctx context.Context, routingKey string, env RawEnvelope) error {
	var seq int64
	if env.Sequence != nil {
		seq = *env.Sequence
	}
	p.logger.Info("event published",
		zap.String("routing_key", routingKey),
		zap.String("event_id", env.EventID),
		zap.String("partition_key", env.PartitionKey),
		zap.Int64("sequence", seq),
		zap.String("correlation_id", env.CorrelationID),
		zap.ByteString("payload", env.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Multi fans out to every sink. An event counts as published only when all
// sinks accepted it.
type Multi []Publisher

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, routingKey string, env RawEnvelope) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, routingKey, env); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
