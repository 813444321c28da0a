package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/mining"
	"tera-rewards-backend/internal/domain/referral"
	"tera-rewards-backend/internal/domain/request"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *TxManager, func() *AccountRepository, func() *DepositRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock,
		func() *TxManager { return NewTxManager(db) },
		func() *AccountRepository { return NewAccountRepository(db) },
		func() *DepositRepository { return NewDepositRepository(db) }
}

var depositCols = []string{"id", "account_id", "amount", "tx_hash", "status", "admin_note", "created_at", "updated_at", "processed_at"}

func TestWithinTxCommitsAndJoinsNested(t *testing.T) {
	mock, tx, accounts, _ := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET is_active").
		WithArgs(int64(1), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tx().WithinTx(ctx, func(ctx context.Context) error {
		return tx().WithinTx(ctx, func(ctx context.Context) error {
			return accounts().SetActive(ctx, 1, false)
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	mock, tx, _, _ := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tx().WithinTx(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalance(t *testing.T) {
	mock, _, accounts, _ := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("UPDATE account_balances SET amount = amount").
		WithArgs(int64(1), "main", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow("15.5"))

	got, err := accounts().AdjustBalance(ctx, 1, account.BalanceMain, decimal.RequireFromString("5.5"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("15.5")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalanceGuard(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{"overdraw", true, account.ErrNegativeBalance},
		{"unknown account", false, account.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, _, accounts, _ := newMock(t)
			mock.ExpectQuery("UPDATE account_balances").
				WithArgs(int64(1), "tera", sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"amount"}))
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(int64(1)).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			_, err := accounts().AdjustBalance(context.Background(), 1, account.BalanceTera, decimal.NewFromInt(-10))
			assert.ErrorIs(t, err, tt.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateAccountMapsConstraints(t *testing.T) {
	mock, _, accounts, _ := newMock(t)
	a := &account.Account{ID: 1, ReferralCode: "ABCD1234", IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: "accounts_referral_code_key"})
	assert.ErrorIs(t, accounts().Create(context.Background(), a), account.ErrReferralCodeTaken)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	for range account.AllKinds {
		mock.ExpectExec("INSERT INTO account_balances").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	assert.NoError(t, accounts().Create(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositCreateDuplicateTxHash(t *testing.T) {
	mock, _, _, deposits := newMock(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO deposit_requests").
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: "deposit_requests_tx_hash_key"})

	err := deposits().Create(context.Background(), &deposit.Request{
		ID: "d1", AccountID: 1, Amount: decimal.NewFromInt(5), TxHash: "abc123",
		Status: request.StatusPending, CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, deposit.ErrDuplicateTxHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositTransition(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("approves pending", func(t *testing.T) {
		mock, _, _, deposits := newMock(t)
		mock.ExpectQuery("UPDATE deposit_requests SET status").
			WithArgs("d1", "approved", "ok", now).
			WillReturnRows(sqlmock.NewRows(depositCols).
				AddRow("d1", int64(1), "5", "abc123", "approved", "ok", now, now, now))

		d, err := deposits().Transition(context.Background(), "d1", request.StatusApproved, "ok", now)
		require.NoError(t, err)
		assert.Equal(t, request.StatusApproved, d.Status)
		require.NotNil(t, d.ProcessedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already processed", func(t *testing.T) {
		mock, _, _, deposits := newMock(t)
		mock.ExpectQuery("UPDATE deposit_requests SET status").
			WillReturnRows(sqlmock.NewRows(depositCols))
		mock.ExpectQuery("SELECT (.+) FROM deposit_requests WHERE id").
			WithArgs("d1").
			WillReturnRows(sqlmock.NewRows(depositCols).
				AddRow("d1", int64(1), "5", "abc123", "rejected", "", now, now, now))

		_, err := deposits().Transition(context.Background(), "d1", request.StatusApproved, "", now)
		assert.ErrorIs(t, err, request.ErrNotPending)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown", func(t *testing.T) {
		mock, _, _, deposits := newMock(t)
		mock.ExpectQuery("UPDATE deposit_requests SET status").
			WillReturnRows(sqlmock.NewRows(depositCols))
		mock.ExpectQuery("SELECT (.+) FROM deposit_requests WHERE id").
			WillReturnRows(sqlmock.NewRows(depositCols))

		_, err := deposits().Transition(context.Background(), "nope", request.StatusRejected, "", now)
		assert.ErrorIs(t, err, request.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMiningOpenAndClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewMiningRepository(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO mining_sessions").
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: "mining_sessions_active_key"})
	err = repo.Open(ctx, &mining.Session{ID: "s1", AccountID: 1, StartTime: time.Now(), InitialBalance: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, mining.ErrActiveSessionExists)

	mock.ExpectExec("UPDATE mining_sessions SET is_active=FALSE").
		WithArgs("s1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	closed, err := repo.Close(ctx, "s1", time.Now(), decimal.Zero)
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralCreateTwice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO referral_edges").
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: "referral_edges_pkey"})

	err = NewReferralRepository(db).Create(context.Background(), &referral.Edge{ReferrerID: 1, ReferredID: 2})
	assert.ErrorIs(t, err, referral.ErrAlreadyReferred)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSettingsRepository(db)

	mock.ExpectQuery("SELECT key, value FROM settings").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("SWAP_FEE_RATE", "0.01").
			AddRow("MINING_DAILY_RATE", "0.02"))
	kv, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SWAP_FEE_RATE": "0.01", "MINING_DAILY_RATE": "0.02"}, kv)

	mock.ExpectExec("INSERT INTO settings").
		WithArgs("SWAP_FEE_RATE", "0.02").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Set(context.Background(), "SWAP_FEE_RATE", "0.02"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
