package qrcode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/events"
	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

var (
	ErrNotFound      = errors.New("qr code not found")
	ErrAlreadyActive = errors.New("qr code already activated")
	ErrDisabled      = errors.New("qr code disabled")
	ErrNotActive     = errors.New("qr code not active")
	ErrForbidden     = errors.New("qr code belongs to another user")
)

const (
	MaxBatch         = 500
	generateAttempts = 5
)

// UserStore is the part of the user repository activation needs.
type UserStore interface {
	Authenticate(ctx context.Context, q db.Querier, email, password string) (user.User, error)
	Create(ctx context.Context, q db.Querier, in user.CreateInput) (user.User, error)
}

type OutboxWriter interface {
	Add(ctx context.Context, q db.Querier, m events.Message) error
}

type Config struct {
	ActivationURL     string
	MinPasswordLength int
}

type Service struct {
	pool    db.Pool
	repo    Repository
	users   UserStore
	outbox  OutboxWriter
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
	now     func() time.Time
}

func NewService(pool db.Pool, repo Repository, users UserStore, outbox OutboxWriter, logger *zap.Logger, m *metrics.Metrics, cfg Config) *Service {
	return &Service{
		pool:    pool,
		repo:    repo,
		users:   users,
		outbox:  outbox,
		logger:  logger.Named("qrcode"),
		metrics: m,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) byCode(ctx context.Context, code string) (*QRCode, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, ErrNotFound
	}
	q, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrNotFound
	}
	return q, nil
}

func (s *Service) Lookup(ctx context.Context, code string) (PublicView, error) {
	q, err := s.byCode(ctx, code)
	if err != nil {
		return PublicView{}, err
	}
	return q.Public(), nil
}

// Activate binds an inactive code to a user and a redirect target. An
// existing account must present its password; otherwise an account is
// created with the given credentials.
func (s *Service) Activate(ctx context.Context, code string, req ActivateRequest, correlationID string) (ActivateResult, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return ActivateResult{}, ErrNotFound
	}
	req.RedirectURL = strings.TrimSpace(req.RedirectURL)
	err := validate.First(
		validate.RedirectURL("redirectUrl", req.RedirectURL),
		validate.Email("email", req.Email),
		validate.Required("password", req.Password),
	)
	if err != nil {
		return ActivateResult{}, err
	}

	var res ActivateResult
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		q, err := s.repo.GetByCodeForUpdateWithTx(ctx, tx, code)
		if err != nil {
			return err
		}
		if q == nil {
			return ErrNotFound
		}
		switch q.Status {
		case StatusActive:
			return ErrAlreadyActive
		case StatusDisabled:
			return ErrDisabled
		}

		u, newUser, err := s.resolveUser(ctx, tx, req)
		if err != nil {
			return err
		}

		at := s.now()
		if err := s.repo.ActivateWithTx(ctx, tx, q.ID, u.ID, req.RedirectURL, at); err != nil {
			return err
		}
		q.Status = StatusActive
		q.RedirectURL = req.RedirectURL
		res = ActivateResult{QRCode: q.Public(), UserID: u.ID, NewUser: newUser}

		return s.outbox.Add(ctx, tx, events.Message{
			Kind:          events.QRCodeActivatedV1,
			PartitionKey:  q.Code,
			CorrelationID: correlationID,
			Payload: events.QRCodeActivatedPayload{
				QRCodeID:    q.ID,
				Code:        q.Code,
				UserID:      u.ID,
				RedirectURL: q.RedirectURL,
				NewUser:     newUser,
				ActivatedAt: at,
			},
		})
	})
	if err != nil {
		return ActivateResult{}, err
	}

	s.metrics.QRActivated()
	s.logger.Info("qr code activated",
		zap.String("code", code),
		zap.String("user_id", res.UserID),
		zap.Bool("new_user", res.NewUser),
		zap.String("correlation_id", correlationID))
	return res, nil
}

func (s *Service) resolveUser(ctx context.Context, tx pgx.Tx, req ActivateRequest) (user.User, bool, error) {
	u, err := s.users.Authenticate(ctx, tx, req.Email, req.Password)
	switch {
	case err == nil:
		return u, false, nil
	case !errors.Is(err, user.ErrNotFound):
		return user.User{}, false, err
	}

	if err := validate.MinLength("password", req.Password, s.cfg.MinPasswordLength); err != nil {
		return user.User{}, false, err
	}
	u, err = s.users.Create(ctx, tx, user.CreateInput{
		Email:    req.Email,
		Name:     strings.TrimSpace(req.Name),
		Password: req.Password,
		Role:     user.RoleCustomer,
	})
	if err != nil {
		return user.User{}, false, err
	}
	return u, true, nil
}

// UpdateRedirect lets the owner of an active code change where it points.
func (s *Service) UpdateRedirect(ctx context.Context, code, userID, redirectURL string) (QRCode, error) {
	redirectURL = strings.TrimSpace(redirectURL)
	if err := validate.RedirectURL("redirectUrl", redirectURL); err != nil {
		return QRCode{}, err
	}
	q, err := s.byCode(ctx, code)
	if err != nil {
		return QRCode{}, err
	}
	if q.UserID == nil || *q.UserID != userID {
		return QRCode{}, ErrForbidden
	}
	if q.Status != StatusActive {
		return QRCode{}, ErrNotActive
	}
	return s.repo.UpdateRedirect(ctx, q.ID, redirectURL)
}

// Resolve returns where a scan of code should go: the owner's target for an
// active code, the activation page for a fresh one.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return "", ErrNotFound
	}
	target, ok, err := s.repo.RecordScan(ctx, code)
	if err != nil {
		return "", err
	}
	if ok {
		return target, nil
	}

	q, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if q == nil || q.Status != StatusInactive {
		return "", ErrNotFound
	}
	return s.activationURL(code)
}

func (s *Service) activationURL(code string) (string, error) {
	u, err := url.Parse(s.cfg.ActivationURL)
	if err != nil {
		return "", fmt.Errorf("parse activation url: %w", err)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Generate creates count fresh inactive codes, optionally tied to an order.
func (s *Service) Generate(ctx context.Context, count int, orderID string) ([]QRCode, error) {
	if count < 1 || count > MaxBatch {
		return nil, validate.Errorf("count", "must be between 1 and %d", MaxBatch)
	}
	var order *string
	if orderID = strings.TrimSpace(orderID); orderID != "" {
		if _, err := uuid.Parse(orderID); err != nil {
			return nil, validate.Errorf("orderId", "must be a UUID")
		}
		order = &orderID
	}

	out := make([]QRCode, 0, count)
	for len(out) < count {
		q, err := s.insertFresh(ctx, order)
		if err != nil {
			return out, err
		}
		out = append(out, q)
	}
	s.logger.Info("qr codes generated", zap.Int("count", count), zap.String("order_id", orderID))
	return out, nil
}

func (s *Service) insertFresh(ctx context.Context, orderID *string) (QRCode, error) {
	for attempt := 0; attempt < generateAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return QRCode{}, err
		}
		q, err := s.repo.Insert(ctx, code, orderID)
		if errors.Is(err, ErrDuplicateCode) {
			continue
		}
		return q, err
	}
	return QRCode{}, fmt.Errorf("no unique code after %d attempts", generateAttempts)
}

func (s *Service) Get(ctx context.Context, id string) (QRCode, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return QRCode{}, err
	}
	if q == nil {
		return QRCode{}, ErrNotFound
	}
	return *q, nil
}

func (s *Service) List(ctx context.Context, f Filter, p pagination.Page) (pagination.Result[QRCode], error) {
	if f.Status != "" && !f.Status.Valid() {
		return pagination.Result[QRCode]{}, validate.Errorf("status", "unknown status %s", f.Status)
	}
	codes, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return pagination.Result[QRCode]{}, err
	}
	return pagination.NewResult(codes, total, p), nil
}

func (s *Service) All(ctx context.Context, f Filter) ([]QRCode, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validate.Errorf("status", "unknown status %s", f.Status)
	}
	return s.repo.All(ctx, f)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (QRCode, error) {
	if !in.Unbind {
		if in.Status != nil && !in.Status.Valid() {
			return QRCode{}, validate.Errorf("status", "unknown status %s", *in.Status)
		}
		if in.RedirectURL != nil {
			if err := validate.RedirectURL("redirectUrl", *in.RedirectURL); err != nil {
				return QRCode{}, err
			}
		}
		if in.Status != nil && *in.Status == StatusActive {
			current, err := s.Get(ctx, id)
			if err != nil {
				return QRCode{}, err
			}
			if current.UserID == nil {
				return QRCode{}, validate.Errorf("status", "a code without owner cannot be active")
			}
		}
	}

	q, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return QRCode{}, err
	}
	if q == nil {
		return QRCode{}, ErrNotFound
	}
	return *q, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
