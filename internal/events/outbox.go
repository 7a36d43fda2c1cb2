package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
)

// Record is one outbox row.
type Record struct {
	ID            int64
	EventID       string
	Kind          Kind
	PartitionKey  string
	CorrelationID string
	CausationID   string
	Payload       json.RawMessage
	Sequence      *int64
	Attempts      int
	CreatedAt     time.Time
}

// Outbox stores events next to the domain rows that caused them so both
// commit or roll back together. The Relay publishes them afterwards.
type Outbox struct {
	pool db.Querier
}

func NewOutbox(pool db.Querier) *Outbox {
	return &Outbox{pool: pool}
}

// Add inserts m using q, which is normally the caller's transaction.
func (o *Outbox) Add(ctx context.Context, q db.Querier, m Message) error {
	if m.PartitionKey == "" {
		return fmt.Errorf("outbox %s: partition key is required", m.Kind.Name)
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", m.Kind.Name, err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO outbox (event_id, event_name, event_version, routing_key, schema, partition_key, correlation_id, causation_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), m.Kind.Name, m.Kind.Version, m.Kind.RoutingKey, m.Kind.Schema,
		m.PartitionKey, m.CorrelationID, m.CausationID, data,
	)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", m.Kind.Name, err)
	}
	return nil
}

func (o *Outbox) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := o.pool.Query(ctx, `
		SELECT id, event_id, event_name, event_version, routing_key, schema, partition_key,
		       correlation_id, causation_id, payload, sequence, attempts, created_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select outbox: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.Kind.Name, &rec.Kind.Version, &rec.Kind.RoutingKey, &rec.Kind.Schema,
			&rec.PartitionKey, &rec.CorrelationID, &rec.CausationID, &rec.Payload, &rec.Sequence,
			&rec.Attempts, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AssignSequence pins the sequence number on first publish attempt so that
// retries reuse it.
func (o *Outbox) AssignSequence(ctx context.Context, id, seq int64) error {
	_, err := o.pool.Exec(ctx, `UPDATE outbox SET sequence=$2 WHERE id=$1 AND sequence IS NULL`, id, seq)
	if err != nil {
		return fmt.Errorf("assign outbox sequence: %w", err)
	}
	return nil
}

func (o *Outbox) MarkSent(ctx context.Context, id int64) error {
	_, err := o.pool.Exec(ctx, `UPDATE outbox SET sent_at=now(), attempts=attempts+1, last_error='' WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id int64, cause error) error {
	_, err := o.pool.Exec(ctx, `UPDATE outbox SET attempts=attempts+1, last_error=$2 WHERE id=$1`, id, cause.Error())
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

// Envelope rebuilds the wire envelope of a stored record.
func (r Record) Envelope() RawEnvelope {
	return RawEnvelope{
		EventName:     r.Kind.Name,
		EventVersion:  r.Kind.Version,
		EventID:       r.EventID,
		CorrelationID: r.CorrelationID,
		CausationID:   r.CausationID,
		Producer:      Producer,
		PartitionKey:  r.PartitionKey,
		Sequence:      r.Sequence,
		OccurredAt:    r.CreatedAt.UTC(),
		Schema:        r.Kind.Schema,
		Payload:       r.Payload,
	}
}
