package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
)

type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	AssignSequence(ctx context.Context, id, seq int64) error
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error
}

// Relay drains the outbox into a Publisher. Rows that fail stay pending and
// are retried on the next tick.
type Relay struct {
	store    OutboxStore
	seq      SequenceRepository
	pub      Publisher
	logger   *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	batch    int
}

func NewRelay(store OutboxStore, seq SequenceRepository, pub Publisher, logger *zap.Logger, m *metrics.Metrics, interval time.Duration, batch int) *Relay {
	if batch <= 0 {
		batch = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		store:    store,
		seq:      seq,
		pub:      pub,
		logger:   logger.Named("outbox-relay"),
		metrics:  m,
		interval: interval,
		batch:    batch,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("relay started", zap.String("sink", r.pub.Name()), zap.Duration("interval", r.interval))
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("outbox flush failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped")
			return
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch and returns how many rows were sent. After a
// failure the remaining rows of the same partition are held back so that
// consumers never see them out of order.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	recs, err := r.store.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	blocked := map[string]bool{}
	for _, rec := range recs {
		if blocked[rec.PartitionKey] {
			continue
		}
		if err := r.publish(ctx, rec); err != nil {
			blocked[rec.PartitionKey] = true
			r.metrics.OutboxFailed(rec.Kind.RoutingKey)
			r.logger.Warn("publish failed",
				zap.Int64("outbox_id", rec.ID),
				zap.String("routing_key", rec.Kind.RoutingKey),
				zap.String("partition_key", rec.PartitionKey),
				zap.Error(err))
			if merr := r.store.MarkFailed(ctx, rec.ID, err); merr != nil {
				return sent, merr
			}
			continue
		}
		sent++
		r.metrics.OutboxPublished(rec.Kind.RoutingKey)
	}
	return sent, nil
}

func (r *Relay) publish(ctx context.Context, rec Record) error {
	if rec.Sequence == nil {
		seq, err := r.seq.NextSequence(ctx, rec.PartitionKey)
		if err != nil {
			return err
		}
		if err := r.store.AssignSequence(ctx, rec.ID, seq); err != nil {
			return err
		}
		rec.Sequence = &seq
	}
	if err := r.pub.Publish(ctx, rec.Kind.RoutingKey, rec.Envelope()); err != nil {
		return err
	}
	return r.store.MarkSent(ctx, rec.ID)
}
