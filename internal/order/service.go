package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/events"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type StockReserver interface {
	ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []inventory.Line) (inventory.ReserveResult, error)
	ReleaseWithTx(ctx context.Context, tx pgx.Tx, lines []inventory.Line) error
}

type OutboxWriter interface {
	Add(ctx context.Context, q db.Querier, m events.Message) error
}

type Service struct {
	pool    db.Pool
	repo    Repository
	stock   StockReserver
	catalog *catalog.Catalog
	outbox  OutboxWriter
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(pool db.Pool, repo Repository, stock StockReserver, cat *catalog.Catalog, outbox OutboxWriter, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		pool:    pool,
		repo:    repo,
		stock:   stock,
		catalog: cat,
		outbox:  outbox,
		logger:  logger.Named("order"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CheckoutOptions carries request metadata that is not part of the body.
type CheckoutOptions struct {
	IdempotencyKey string
	UserID         string
	CorrelationID  string
}

// Checkout validates and prices the request, then reserves stock, stores the
// order and queues order.created in one transaction. With an idempotency key,
// a repeated identical request returns the first order.
func (s *Service) Checkout(ctx context.Context, req CreateRequest, opts CheckoutOptions) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	key := strings.TrimSpace(opts.IdempotencyKey)
	fingerprint := req.Fingerprint()
	if key != "" {
		if res, ok, err := s.replay(ctx, key, fingerprint); err != nil || ok {
			return res, err
		}
	}

	o, lines, err := s.build(req, opts.UserID)
	if err != nil {
		return Result{}, err
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		res, err := s.stock.ReserveWithTx(ctx, tx, lines)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if len(res.Depleted) > 0 {
			return &OutOfStockError{Depleted: res.Depleted}
		}
		if err := s.repo.CreateWithTx(ctx, tx, o); err != nil {
			return err
		}
		if key != "" {
			if err := s.repo.SaveIdempotencyWithTx(ctx, tx, key, o.ID, fingerprint); err != nil {
				return err
			}
		}
		return s.outbox.Add(ctx, tx, events.Message{
			Kind:          events.OrderCreatedV1,
			PartitionKey:  o.ID,
			CorrelationID: opts.CorrelationID,
			Payload:       createdPayload(o),
		})
	})
	if err != nil {
		if errors.Is(err, errIdempotencyRace) {
			res, ok, rerr := s.replay(ctx, key, fingerprint)
			if rerr != nil {
				return Result{}, rerr
			}
			if ok {
				return res, nil
			}
		}
		return Result{}, err
	}

	s.metrics.OrderCreated()
	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("number", o.Number),
		zap.Float64("total", o.Total),
		zap.Int("items", len(o.Items)),
		zap.String("correlation_id", opts.CorrelationID))

	return Result{Order: *o, Status: ResultCreated}, nil
}

// Replay returns the order recorded under an idempotency key, if any. It does
// not compare request fingerprints: the cart checkout route uses it once the
// cart that produced the order has been dropped.
func (s *Service) Replay(ctx context.Context, idempotencyKey string) (Result, bool, error) {
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return Result{}, false, nil
	}
	return s.replay(ctx, key, "")
}

// replay skips the fingerprint check when fingerprint is empty.
func (s *Service) replay(ctx context.Context, key, fingerprint string) (Result, bool, error) {
	orderID, hash, found, err := s.repo.FindIdempotency(ctx, key)
	if err != nil || !found {
		return Result{}, false, err
	}
	if fingerprint != "" && hash != fingerprint {
		return Result{}, false, ErrIdempotencyMismatch
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Result{}, false, err
	}
	if o == nil {
		return Result{}, false, ErrNotFound
	}
	s.metrics.IdempotentReplay()
	s.logger.Info("idempotent replay", zap.String("order_id", o.ID))
	return Result{Order: *o, Status: ResultIdempotentReplay}, true, nil
}

// build prices every line from the catalog. Client-sent names and prices are
// display hints only.
func (s *Service) build(req CreateRequest, userID string) (*Order, []inventory.Line, error) {
	now := s.now()
	shipping := req.ShippingInfo.normalized()
	o := &Order{
		ID:        uuid.NewString(),
		Number:    newNumber(now),
		Email:     shipping.Email,
		Status:    StatusPending,
		Shipping:  shipping,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := uuid.Parse(userID); err == nil {
		o.UserID = &userID
	}

	var (
		total float64
		pkgs  []inventory.PackageLine
	)
	for i, it := range req.Items {
		product, pkg, err := s.catalog.Package(it.ProductID, it.PackageID)
		if err != nil {
			return nil, nil, validate.Errorf(fmt.Sprintf("items[%d]", i), "unknown product %s/%s", it.ProductID, it.PackageID)
		}
		if it.Price != 0 && math.Abs(it.Price-pkg.Price) > 0.005 {
			s.logger.Warn("client price differs from catalog",
				zap.String("product_id", it.ProductID),
				zap.String("package_id", it.PackageID),
				zap.Float64("client_price", it.Price),
				zap.Float64("catalog_price", pkg.Price))
		}
		o.Items = append(o.Items, Item{
			ProductID: product.ID,
			PackageID: pkg.ID,
			Name:      product.Name + " - " + pkg.Name,
			Quantity:  it.Quantity,
			Price:     pkg.Price,
		})
		total += pkg.Price * float64(it.Quantity)
		pkgs = append(pkgs, inventory.PackageLine{ProductID: product.ID, PackageID: pkg.ID, Quantity: it.Quantity})
	}
	o.Total = math.Round(total*100) / 100

	lines, err := inventory.Units(s.catalog, pkgs)
	if err != nil {
		return nil, nil, err
	}
	return o, lines, nil
}

func newNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "CQR-" + now.Format("20060102") + "-" + suffix
}

func createdPayload(o *Order) events.OrderCreatedPayload {
	p := events.OrderCreatedPayload{
		OrderID:   o.ID,
		Number:    o.Number,
		Email:     o.Email,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
	if o.UserID != nil {
		p.UserID = *o.UserID
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, events.OrderLine{
			ProductID: it.ProductID,
			PackageID: it.PackageID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return p
}

func (s *Service) Get(ctx context.Context, orderID string) (Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o == nil {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, f Filter, p pagination.Page) (pagination.Result[Order], error) {
	if f.Status != "" && !f.Status.Valid() {
		return pagination.Result[Order]{}, validate.Errorf("status", "unknown status %s", f.Status)
	}
	orders, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return pagination.Result[Order]{}, err
	}
	return pagination.NewResult(orders, total, p), nil
}

func (s *Service) All(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validate.Errorf("status", "unknown status %s", f.Status)
	}
	return s.repo.All(ctx, f)
}

func (s *Service) Delete(ctx context.Context, orderID string) error {
	return s.repo.Delete(ctx, orderID)
}

// UpdateStatus moves an order along the transition table. Cancelling puts
// the reserved units back. Setting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status, paymentRef, correlationID string) (Order, error) {
	if !to.Valid() {
		return Order{}, validate.Errorf("status", "unknown status %s", to)
	}

	var out Order
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		o, err := s.repo.GetForUpdateWithTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrNotFound
		}
		out = *o
		if o.Status == to {
			return nil
		}
		if !o.Status.CanTransition(to) {
			return &TransitionError{From: o.Status, To: to}
		}

		if to == StatusCancelled {
			if err := s.stock.ReleaseWithTx(ctx, tx, s.units(o.Items)); err != nil {
				return fmt.Errorf("release stock: %w", err)
			}
		}
		if err := s.repo.UpdateStatusWithTx(ctx, tx, o.ID, to, paymentRef); err != nil {
			return err
		}

		from := o.Status
		out.Status = to
		out.UpdatedAt = s.now()
		if paymentRef != "" {
			out.PaymentRef = paymentRef
		}
		return s.outbox.Add(ctx, tx, events.Message{
			Kind:          events.OrderStatusChangedV1,
			PartitionKey:  o.ID,
			CorrelationID: correlationID,
			Payload: events.OrderStatusChangedPayload{
				OrderID:   o.ID,
				From:      string(from),
				To:        string(to),
				ChangedAt: out.UpdatedAt,
			},
		})
	})
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order status updated", zap.String("order_id", out.ID), zap.String("status", string(out.Status)))
	return out, nil
}

// units converts order lines back to stock units. Packages that have since
// left the catalog cannot be converted and are skipped.
func (s *Service) units(items []Item) []inventory.Line {
	var lines []inventory.Line
	for _, it := range items {
		_, pkg, err := s.catalog.Package(it.ProductID, it.PackageID)
		if err != nil {
			s.logger.Warn("cannot release unknown package",
				zap.String("product_id", it.ProductID), zap.String("package_id", it.PackageID))
			continue
		}
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: pkg.Units * it.Quantity})
	}
	return lines
}

// PaymentSucceeded and PaymentFailed apply payment outcomes from the event
// consumer. Outcomes for unknown orders or orders that can no longer move are
// logged and acknowledged.
func (s *Service) PaymentSucceeded(ctx context.Context, p events.PaymentSucceededPayload, correlationID string) error {
	return s.applyPayment(ctx, p.OrderID, StatusPaid, p.PaymentRef, correlationID)
}

func (s *Service) PaymentFailed(ctx context.Context, p events.PaymentFailedPayload, correlationID string) error {
	s.logger.Info("payment failed", zap.String("order_id", p.OrderID), zap.String("reason", p.Reason))
	return s.applyPayment(ctx, p.OrderID, StatusPaymentFailed, "", correlationID)
}

func (s *Service) applyPayment(ctx context.Context, orderID string, to Status, paymentRef, correlationID string) error {
	_, err := s.UpdateStatus(ctx, orderID, to, paymentRef, correlationID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTransition):
		s.logger.Warn("payment outcome ignored", zap.String("order_id", orderID), zap.String("status", string(to)), zap.Error(err))
		return nil
	default:
		return err
	}
}
