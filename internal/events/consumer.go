package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	PaymentQueue        = "storefront.payment.v1"
	paymentConsumerName = "storefront.payment"
)

// PaymentHandler applies payment outcomes to orders. Implementations must be
// idempotent.
type PaymentHandler interface {
	PaymentSucceeded(ctx context.Context, p PaymentSucceededPayload, correlationID string) error
	PaymentFailed(ctx context.Context, p PaymentFailedPayload, correlationID string) error
}

var errPoison = errors.New("unprocessable message")

type PaymentConsumer struct {
	handler PaymentHandler
	dedup   DedupRepository
	logger  *zap.Logger
}

func NewPaymentConsumer(handler PaymentHandler, dedup DedupRepository, logger *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{handler: handler, dedup: dedup, logger: logger.Named("payment-consumer")}
}

// Handle processes one delivery body. Events whose sequence is not newer than
// the stored checkpoint for their partition are skipped.
func (c *PaymentConsumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	var env RawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: unmarshal envelope: %v", errPoison, err)
	}

	var kind Kind
	switch routingKey {
	case PaymentSucceededV1.RoutingKey:
		kind = PaymentSucceededV1
	case PaymentFailedV1.RoutingKey:
		kind = PaymentFailedV1
	default:
		return fmt.Errorf("%w: unexpected routing key %s", errPoison, routingKey)
	}
	if err := env.Validate(kind); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}

	if env.Sequence != nil {
		last, ok, err := c.dedup.GetLastSequence(ctx, paymentConsumerName, env.PartitionKey)
		if err != nil {
			return err
		}
		if ok && *env.Sequence <= last {
			c.logger.Info("duplicate event skipped",
				zap.String("event_id", env.EventID),
				zap.String("partition_key", env.PartitionKey),
				zap.Int64("sequence", *env.Sequence),
				zap.Int64("last_sequence", last))
			return nil
		}
	}

	if err := c.dispatch(ctx, kind, env); err != nil {
		return err
	}

	if env.Sequence != nil {
		return c.dedup.UpsertLastSequence(ctx, paymentConsumerName, env.PartitionKey, *env.Sequence)
	}
	return nil
}

func (c *PaymentConsumer) dispatch(ctx context.Context, kind Kind, env RawEnvelope) error {
	switch kind {
	case PaymentSucceededV1:
		var p PaymentSucceededPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.OrderID == "" {
			return fmt.Errorf("%w: invalid %s payload", errPoison, kind.Name)
		}
		return c.handler.PaymentSucceeded(ctx, p, env.CorrelationID)
	default:
		var p PaymentFailedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.OrderID == "" {
			return fmt.Errorf("%w: invalid %s payload", errPoison, kind.Name)
		}
		return c.handler.PaymentFailed(ctx, p, env.CorrelationID)
	}
}

// consumerChannel is the part of *amqp.Channel the consumer needs.
type consumerChannel interface {
	exchangeDeclarer
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Start declares the queue, binds it to the payment routing keys and consumes
// until ctx is cancelled. The returned channel is closed when the loop exits.
func (c *PaymentConsumer) Start(ctx context.Context, conn *amqp.Connection) (<-chan struct{}, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return c.start(ctx, ch)
}

// start owns ch: it is closed on a setup error or when the loop exits.
func (c *PaymentConsumer) start(ctx context.Context, ch consumerChannel) (<-chan struct{}, error) {
	msgs, err := subscribePayments(ch)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ch.Close()
		c.consume(ctx, msgs)
	}()
	return done, nil
}

func subscribePayments(ch consumerChannel) (<-chan amqp.Delivery, error) {
	if err := declareExchange(ch); err != nil {
		return nil, fmt.Errorf("declare %s: %w", Exchange, err)
	}
	if _, err := ch.QueueDeclare(PaymentQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range []string{PaymentSucceededV1.RoutingKey, PaymentFailedV1.RoutingKey} {
		if err := ch.QueueBind(PaymentQueue, key, Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	msgs, err := ch.Consume(
		PaymentQueue,
		paymentConsumerName, // consumer tag
		false,               // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return msgs, nil
}

func (c *PaymentConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopping payment consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("messages channel closed")
				return
			}

			err := c.Handle(ctx, msg.RoutingKey, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, errPoison):
				c.logger.Error("dropping message", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
				_ = msg.Nack(false, false)
			default:
				// one redelivery, then drop
				c.logger.Warn("handle message failed", zap.String("routing_key", msg.RoutingKey),
					zap.Bool("redelivered", msg.Redelivered), zap.Error(err))
				_ = msg.Nack(false, !msg.Redelivered)
			}
		}
	}
}
