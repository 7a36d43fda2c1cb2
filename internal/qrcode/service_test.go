package qrcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/events"
	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type fakeRepo struct {
	Repository
	codes     map[string]*QRCode
	activated []string
	scans     int
	inserts   []string
	insertErr []error
}

func newFakeRepo(codes ...QRCode) *fakeRepo {
	r := &fakeRepo{codes: map[string]*QRCode{}}
	for i := range codes {
		q := codes[i]
		r.codes[q.Code] = &q
	}
	return r
}

func (f *fakeRepo) GetByCode(ctx context.Context, code string) (*QRCode, error) {
	q, ok := f.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (f *fakeRepo) GetByCodeForUpdateWithTx(ctx context.Context, tx pgx.Tx, code string) (*QRCode, error) {
	return f.GetByCode(ctx, code)
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*QRCode, error) {
	for _, q := range f.codes {
		if q.ID == id {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ActivateWithTx(ctx context.Context, tx pgx.Tx, id, uid, target string, at time.Time) error {
	f.activated = append(f.activated, id)
	return nil
}

func (f *fakeRepo) UpdateRedirect(ctx context.Context, id, target string) (QRCode, error) {
	q, _ := f.GetByID(ctx, id)
	q.RedirectURL = target
	return *q, nil
}

func (f *fakeRepo) RecordScan(ctx context.Context, code string) (string, bool, error) {
	q, ok := f.codes[code]
	if !ok || q.Status != StatusActive {
		return "", false, nil
	}
	f.scans++
	return q.RedirectURL, true, nil
}

func (f *fakeRepo) Insert(ctx context.Context, code string, orderID *string) (QRCode, error) {
	if len(f.insertErr) > 0 {
		err := f.insertErr[0]
		f.insertErr = f.insertErr[1:]
		return QRCode{}, err
	}
	f.inserts = append(f.inserts, code)
	return QRCode{ID: code, Code: code, Status: StatusInactive, OrderID: orderID}, nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, in UpdateInput) (*QRCode, error) {
	q, _ := f.GetByID(ctx, id)
	if q != nil && in.Status != nil {
		q.Status = *in.Status
	}
	return q, nil
}

type fakeUsers struct {
	existing map[string]string
	created  []user.CreateInput
}

func (f *fakeUsers) Authenticate(ctx context.Context, q db.Querier, email, password string) (user.User, error) {
	pw, ok := f.existing[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if pw != password {
		return user.User{}, user.ErrInvalidCredentials
	}
	return user.User{ID: userID, Email: email}, nil
}

func (f *fakeUsers) Create(ctx context.Context, q db.Querier, in user.CreateInput) (user.User, error) {
	f.created = append(f.created, in)
	return user.User{ID: "new-user", Email: in.Email}, nil
}

type fakeOutbox struct {
	msgs []events.Message
}

func (f *fakeOutbox) Add(ctx context.Context, q db.Querier, m events.Message) error {
	f.msgs = append(f.msgs, m)
	return nil
}

type fixture struct {
	mock   pgxmock.PgxPoolIface
	repo   *fakeRepo
	users  *fakeUsers
	outbox *fakeOutbox
	svc    *Service
}

func newFixture(t *testing.T, codes ...QRCode) *fixture {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	f := &fixture{
		mock:   mock,
		repo:   newFakeRepo(codes...),
		users:  &fakeUsers{existing: map[string]string{"jane@codeqr.fr": "correct-horse"}},
		outbox: &fakeOutbox{},
	}
	f.svc = NewService(mock, f.repo, f.users, f.outbox, zap.NewNop(), metrics.New(prometheus.NewRegistry()), Config{
		ActivationURL:     "https://codeqr.fr/activate",
		MinPasswordLength: 8,
	})
	return f
}

func fresh() QRCode {
	return QRCode{ID: qrID, Code: "ABCD2345", Status: StatusInactive}
}

func active(owner string) QRCode {
	return QRCode{ID: qrID, Code: "ABCD2345", Status: StatusActive, UserID: &owner, RedirectURL: "https://example.org"}
}

func TestActivate_NewUser(t *testing.T) {
	f := newFixture(t, fresh())
	f.mock.ExpectBeginTx(pgx.TxOptions{})
	f.mock.ExpectCommit()

	res, err := f.svc.Activate(context.Background(), "abcd2345", ActivateRequest{
		Email:       "new@codeqr.fr",
		Password:    "long-enough",
		Name:        " New ",
		RedirectURL: "https://instagram.com/codeqr",
	}, "corr-1")
	require.NoError(t, err)

	assert.True(t, res.NewUser)
	assert.Equal(t, "new-user", res.UserID)
	assert.Equal(t, StatusActive, res.QRCode.Status)
	assert.Equal(t, "https://instagram.com/codeqr", res.QRCode.RedirectURL)
	require.Len(t, f.users.created, 1)
	assert.Equal(t, "New", f.users.created[0].Name)
	assert.Equal(t, user.RoleCustomer, f.users.created[0].Role)
	assert.Equal(t, []string{qrID}, f.repo.activated)

	require.Len(t, f.outbox.msgs, 1)
	msg := f.outbox.msgs[0]
	assert.Equal(t, events.QRCodeActivatedV1, msg.Kind)
	assert.Equal(t, "ABCD2345", msg.PartitionKey)
	assert.Equal(t, "corr-1", msg.CorrelationID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestActivate_ExistingUser(t *testing.T) {
	f := newFixture(t, fresh())
	f.mock.ExpectBeginTx(pgx.TxOptions{})
	f.mock.ExpectCommit()

	res, err := f.svc.Activate(context.Background(), "ABCD2345", ActivateRequest{
		Email: "jane@codeqr.fr", Password: "correct-horse", RedirectURL: "https://example.org/menu",
	}, "")
	require.NoError(t, err)
	assert.False(t, res.NewUser)
	assert.Equal(t, userID, res.UserID)
	assert.Empty(t, f.users.created)
}

func TestActivate_WrongPassword(t *testing.T) {
	f := newFixture(t, fresh())
	f.mock.ExpectBeginTx(pgx.TxOptions{})
	f.mock.ExpectRollback()

	_, err := f.svc.Activate(context.Background(), "ABCD2345", ActivateRequest{
		Email: "jane@codeqr.fr", Password: "wrong-password", RedirectURL: "https://example.org",
	}, "")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	assert.Empty(t, f.repo.activated)
	assert.Empty(t, f.outbox.msgs)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestActivate_ShortPasswordForNewAccount(t *testing.T) {
	f := newFixture(t, fresh())
	f.mock.ExpectBeginTx(pgx.TxOptions{})
	f.mock.ExpectRollback()

	_, err := f.svc.Activate(context.Background(), "ABCD2345", ActivateRequest{
		Email: "new@codeqr.fr", Password: "short", RedirectURL: "https://example.org",
	}, "")
	assert.True(t, validate.IsValidation(err))
	assert.Empty(t, f.users.created)
}

func TestActivate_Rejections(t *testing.T) {
	owner := userID
	disabled := fresh()
	disabled.Status = StatusDisabled

	tests := []struct {
		name  string
		codes []QRCode
		code  string
		req   ActivateRequest
		want  error
		inTx  bool
	}{
		{"bad url", []QRCode{fresh()}, "ABCD2345", ActivateRequest{Email: "a@b.fr", Password: "long-enough", RedirectURL: "example.org"}, nil, false},
		{"bad email", []QRCode{fresh()}, "ABCD2345", ActivateRequest{Email: "nope", Password: "long-enough", RedirectURL: "https://example.org"}, nil, false},
		{"malformed code", nil, "??", ActivateRequest{}, ErrNotFound, false},
		{"unknown code", nil, "ZZZZ2222", ActivateRequest{Email: "a@b.fr", Password: "long-enough", RedirectURL: "https://example.org"}, ErrNotFound, true},
		{"already active", []QRCode{active(owner)}, "ABCD2345", ActivateRequest{Email: "a@b.fr", Password: "long-enough", RedirectURL: "https://example.org"}, ErrAlreadyActive, true},
		{"disabled", []QRCode{disabled}, "ABCD2345", ActivateRequest{Email: "a@b.fr", Password: "long-enough", RedirectURL: "https://example.org"}, ErrDisabled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.codes...)
			if tt.inTx {
				f.mock.ExpectBeginTx(pgx.TxOptions{})
				f.mock.ExpectRollback()
			}
			_, err := f.svc.Activate(context.Background(), tt.code, tt.req, "")
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.True(t, validate.IsValidation(err), err.Error())
			}
			assert.Empty(t, f.outbox.msgs)
			require.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t, active(userID))
	target, err := f.svc.Resolve(context.Background(), "abcd2345")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", target)
	assert.Equal(t, 1, f.repo.scans)
}

func TestResolve_InactiveGoesToActivation(t *testing.T) {
	f := newFixture(t, fresh())
	target, err := f.svc.Resolve(context.Background(), "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, "https://codeqr.fr/activate?code=ABCD2345", target)
	assert.Zero(t, f.repo.scans)
}

func TestResolve_DisabledOrMissing(t *testing.T) {
	disabled := fresh()
	disabled.Status = StatusDisabled
	f := newFixture(t, disabled)

	_, err := f.svc.Resolve(context.Background(), "ABCD2345")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Resolve(context.Background(), "ZZZZ2222")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRedirect(t *testing.T) {
	f := newFixture(t, active(userID))

	_, err := f.svc.UpdateRedirect(context.Background(), "ABCD2345", "someone-else", "https://other.org")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateRedirect(context.Background(), "ABCD2345", userID, "not a url")
	assert.True(t, validate.IsValidation(err))

	q, err := f.svc.UpdateRedirect(context.Background(), "ABCD2345", userID, "https://other.org")
	require.NoError(t, err)
	assert.Equal(t, "https://other.org", q.RedirectURL)
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	f.repo.insertErr = []error{ErrDuplicateCode}

	codes, err := f.svc.Generate(context.Background(), 3, "")
	require.NoError(t, err)
	assert.Len(t, codes, 3)
	assert.Len(t, f.repo.inserts, 3)
	for _, q := range codes {
		assert.Nil(t, q.OrderID)
	}
}

func TestGenerate_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), 0, "")
	assert.True(t, validate.IsValidation(err))
	_, err = f.svc.Generate(context.Background(), MaxBatch+1, "")
	assert.True(t, validate.IsValidation(err))
	_, err = f.svc.Generate(context.Background(), 1, "not-a-uuid")
	assert.True(t, validate.IsValidation(err))
}

func TestGenerate_StopsOnRepoError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("db down")
	f.repo.insertErr = []error{boom}

	_, err := f.svc.Generate(context.Background(), 2, "")
	assert.ErrorIs(t, err, boom)
}

func TestUpdate_ActiveNeedsOwner(t *testing.T) {
	f := newFixture(t, fresh())
	st := StatusActive
	_, err := f.svc.Update(context.Background(), qrID, UpdateInput{Status: &st})
	assert.True(t, validate.IsValidation(err))

	st = StatusDisabled
	q, err := f.svc.Update(context.Background(), qrID, UpdateInput{Status: &st})
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, q.Status)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), qrID)
	assert.ErrorIs(t, err, ErrNotFound)
}
