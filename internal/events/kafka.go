package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes every event to one topic keyed by partition key, so
// events of the same order or QR code land on the same Kafka partition.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, routingKey string, env RawEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.EventName, err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.PartitionKey),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "routingKey", Value: []byte(routingKey)},
			{Key: "eventName", Value: []byte(env.EventName)},
			{Key: "eventVersion", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
