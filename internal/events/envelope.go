package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const Producer = "codeqr-storefront"

// Envelope is the common wrapper around every published or consumed event.
type Envelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      *int64    `json:"sequence,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
	Payload       T         `json:"payload"`
}

// RawEnvelope is what travels through publishers; the payload is already
// encoded.
type RawEnvelope = Envelope[json.RawMessage]

// Validate ensures the envelope carries the expected event identity.
func (e Envelope[T]) Validate(kind Kind) error {
	if e.EventName != kind.Name {
		return fmt.Errorf("unexpected eventName: %s", e.EventName)
	}
	if e.EventVersion != kind.Version {
		return fmt.Errorf("unexpected eventVersion: %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	return nil
}

// Kind identifies an event type and where it is routed.
type Kind struct {
	Name       string
	Version    int
	RoutingKey string
	Schema     string
}

// Message is what domain code hands to the outbox inside its transaction.
type Message struct {
	Kind          Kind
	PartitionKey  string
	CorrelationID string
	CausationID   string
	Payload       any
}
