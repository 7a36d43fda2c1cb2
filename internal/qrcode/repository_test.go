package qrcode

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issouf7507-dev/codeqr-sub000/internal/pagination"
)

const (
	qrID   = "0b9a1c55-2f7e-4c3a-9d43-5c7d3e0a8b21"
	userID = "7b3f4c2e-9a51-4a57-a3a4-0d9f2a6f1c11"
)

var qrCols = []string{"id", "code", "status", "user_id", "order_id", "redirect_url", "scan_count", "activated_at", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func inactiveRow(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(qrCols).
		AddRow(qrID, "ABCD2345", StatusInactive, nil, nil, "", int64(0), nil, now, now)
}

func TestRepoGetByCode(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`FROM qr_codes WHERE code = \$1`).
		WithArgs("ABCD2345").
		WillReturnRows(inactiveRow(now))

	q, err := repo.GetByCode(context.Background(), "ABCD2345")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, StatusInactive, q.Status)
	assert.Nil(t, q.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoGetByCode_Missing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM qr_codes WHERE code = \$1`).
		WithArgs("ZZZZ2222").
		WillReturnError(pgx.ErrNoRows)

	q, err := repo.GetByCode(context.Background(), "ZZZZ2222")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestRepoGetByID_InvalidUUID(t *testing.T) {
	repo, mock := newMockRepo(t)
	q, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, q)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoInsert_Duplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO qr_codes`).
		WithArgs(pgxmock.AnyArg(), "ABCD2345", StatusInactive, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Insert(context.Background(), "ABCD2345", nil)
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestRepoActivateWithTx(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec(`UPDATE qr_codes`).
		WithArgs(qrID, StatusActive, userID, "https://example.org", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tx, err := mock.BeginTx(context.Background(), pgx.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, repo.ActivateWithTx(context.Background(), tx, qrID, userID, "https://example.org", at))
	require.NoError(t, tx.Commit(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoRecordScan(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`UPDATE qr_codes SET scan_count = scan_count \+ 1`).
		WithArgs("ABCD2345", StatusActive).
		WillReturnRows(pgxmock.NewRows([]string{"redirect_url"}).AddRow("https://example.org"))
	mock.ExpectQuery(`UPDATE qr_codes SET scan_count = scan_count \+ 1`).
		WithArgs("ZZZZ2222", StatusActive).
		WillReturnError(pgx.ErrNoRows)

	target, ok, err := repo.RecordScan(context.Background(), "ABCD2345")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.org", target)

	_, ok, err = repo.RecordScan(context.Background(), "ZZZZ2222")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoList(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT count\(\*\) FROM qr_codes WHERE status = \$1`).
		WithArgs(StatusInactive).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(`WHERE status = \$1 ORDER BY created_at DESC, code LIMIT \$2 OFFSET \$3`).
		WithArgs(StatusInactive, 20, 20).
		WillReturnRows(inactiveRow(now))

	codes, total, err := repo.List(context.Background(), Filter{Status: StatusInactive}, pagination.Page{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	assert.Len(t, codes, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM qr_codes`).
		WithArgs(qrID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ok, err := repo.Delete(context.Background(), qrID)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
