package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
)

// SaveResult reports the outcome of a best-effort write. Callers may ignore it.
type SaveResult struct {
	Key   string
	Bytes int
	Err   error
}

func (r SaveResult) OK() bool { return r.Err == nil }

// Persistence adapts a Store to cart State: loads fail soft to the empty cart
// and saves report failures instead of raising them.
type Persistence struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewPersistence(store Store, logger *zap.Logger, m *metrics.Metrics) *Persistence {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persistence{store: store, logger: logger.Named("cart"), metrics: m}
}

func (p *Persistence) StoreName() string { return p.store.Name() }

// Load never fails. Missing or malformed snapshots yield the empty cart, and
// the stored total/itemCount are always recomputed from the items.
func (p *Persistence) Load(ctx context.Context, key string) State {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("cart load failed, using empty cart",
				zap.String("key", key), zap.String("store", p.store.Name()), zap.Error(err))
		}
		return Empty()
	}

	state, err := Decode(data)
	if err != nil {
		p.logger.Warn("malformed cart snapshot, using empty cart",
			zap.String("key", key), zap.String("store", p.store.Name()), zap.Error(err))
		return Empty()
	}
	return state
}

func (p *Persistence) Save(ctx context.Context, key string, s State) SaveResult {
	res := SaveResult{Key: key}

	data, err := Encode(s)
	if err != nil {
		res.Err = err
	} else {
		res.Bytes = len(data)
		if err := p.store.Put(ctx, key, data); err != nil {
			res.Err = fmt.Errorf("save cart: %w", err)
		}
	}

	if res.Err != nil {
		p.metrics.CartSaveFailed(p.store.Name())
		p.logger.Error("cart save failed",
			zap.String("key", key), zap.String("store", p.store.Name()), zap.Error(res.Err))
	}
	return res
}

// Forget removes the snapshot. It is used after checkout; an error is only logged.
func (p *Persistence) Forget(ctx context.Context, key string) SaveResult {
	res := SaveResult{Key: key}
	if err := p.store.Delete(ctx, key); err != nil {
		res.Err = fmt.Errorf("delete cart: %w", err)
		p.metrics.CartSaveFailed(p.store.Name())
		p.logger.Error("cart delete failed", zap.String("key", key), zap.Error(res.Err))
	}
	return res
}

func Encode(s State) ([]byte, error) {
	s = s.recalculate()
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return data, nil
}

// Decode parses a persisted snapshot, discards lines that could not have been
// produced by the reducer and recomputes the derived fields.
func Decode(data []byte) (State, error) {
	var raw State
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("decode cart: %w", err)
	}

	items := make([]Item, 0, len(raw.Items))
	for _, it := range raw.Items {
		if it.Quantity < 1 || it.ProductID == "" {
			continue
		}
		it.ID = ItemID(it.ProductID, it.PackageID)
		items = append(items, it)
	}
	return State{Items: items}.recalculate(), nil
}
