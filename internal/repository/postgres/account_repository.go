package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/account"
)

// AccountRepository stores accounts in `accounts` and their balances in
// `account_balances`, one row per (account, kind).
type AccountRepository struct {
	db *sql.DB
}

var _ account.Repository = (*AccountRepository)(nil)

func NewAccountRepository(db *sql.DB) *AccountRepository { return &AccountRepository{db: db} }

const accountColumns = `id, COALESCE(wallet_address, ''), is_active, referral_code, referred_by, mining_active, last_mining_start, created_at, updated_at`

// Create inserts the account and a zero row for every balance kind not given.
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	q := conn(ctx, r.db)
	const qAccount = `
	INSERT INTO accounts (id, wallet_address, is_active, referral_code, referred_by, mining_active, last_mining_start, created_at, updated_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`
	_, err := q.ExecContext(ctx, qAccount,
		a.ID, a.WalletAddress, a.IsActive, a.ReferralCode, nullInt64(a.ReferredBy),
		a.MiningActive, nullTime(a.LastMiningStart), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "accounts_pkey"):
			return account.ErrAlreadyExists
		case isUniqueViolation(err, "accounts_referral_code_key"):
			return account.ErrReferralCodeTaken
		}
		return err
	}

	const qBalance = `INSERT INTO account_balances (account_id, kind, amount) VALUES ($1, $2, $3)`
	for _, kind := range account.AllKinds {
		if _, err := q.ExecContext(ctx, qBalance, a.ID, string(kind), a.Balances.Get(kind)); err != nil {
			return err
		}
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
}

// GetByIDForUpdate locks the account row (SELECT ... FOR UPDATE). Callers must
// hold a transaction in ctx or the lock is released immediately.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*account.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id)
}

func (r *AccountRepository) GetByReferralCode(ctx context.Context, code string) (*account.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referral_code=$1`, code)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg interface{}) (*account.Account, error) {
	q := conn(ctx, r.db)
	a, err := scanAccount(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if a.Balances, err = r.balances(ctx, q, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) balances(ctx context.Context, q querier, id int64) (account.Balances, error) {
	rows, err := q.QueryContext(ctx, `SELECT kind, amount FROM account_balances WHERE account_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := account.ZeroBalances()
	for rows.Next() {
		var (
			kind   string
			amount decimal.Decimal
		)
		if err := rows.Scan(&kind, &amount); err != nil {
			return nil, err
		}
		out[account.BalanceKind(kind)] = amount
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		a          account.Account
		referredBy sql.NullInt64
		lastStart  sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.WalletAddress, &a.IsActive, &a.ReferralCode, &referredBy, &a.MiningActive, &lastStart, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if referredBy.Valid {
		v := referredBy.Int64
		a.ReferredBy = &v
	}
	if lastStart.Valid {
		v := lastStart.Time
		a.LastMiningStart = &v
	}
	return &a, nil
}

// AdjustBalance is a single guarded UPDATE: the row is only changed when the
// result stays non-negative, so concurrent debits can never overdraw.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id int64, kind account.BalanceKind, delta decimal.Decimal) (decimal.Decimal, error) {
	q := conn(ctx, r.db)
	const qUpdate = `
	UPDATE account_balances SET amount = amount + $3
	WHERE account_id=$1 AND kind=$2 AND amount + $3 >= 0
	RETURNING amount`
	var amount decimal.Decimal
	err := q.QueryRowContext(ctx, qUpdate, id, string(kind), delta).Scan(&amount)
	if err == nil {
		return amount, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, err
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id=$1)`, id).Scan(&exists); err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, account.ErrNotFound
	}
	return decimal.Zero, account.ErrNegativeBalance
}

func (r *AccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=now() WHERE id=$1`, id, active)
}

func (r *AccountRepository) SetMiningState(ctx context.Context, id int64, active bool, startedAt *time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET mining_active=$2, last_mining_start=$3, updated_at=now() WHERE id=$1`, id, active, nullTime(startedAt))
}

func (r *AccountRepository) SetReferrer(ctx context.Context, id, referrerID int64) error {
	return r.exec(ctx, `UPDATE accounts SET referred_by=$2, updated_at=now() WHERE id=$1`, id, referrerID)
}

func (r *AccountRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

// ListReferred returns direct referrals ordered by created_at desc. Balances are
// not loaded.
func (r *AccountRepository) ListReferred(ctx context.Context, referrerID int64) ([]account.Account, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referred_by=$1 ORDER BY created_at DESC`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) Stats(ctx context.Context) (*account.Stats, error) {
	q := conn(ctx, r.db)
	st := &account.Stats{Balances: account.ZeroBalances()}
	const qCounts = `
	SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active), COUNT(*) FILTER (WHERE mining_active)
	FROM accounts`
	if err := q.QueryRowContext(ctx, qCounts).Scan(&st.Total, &st.Active, &st.Mining); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `SELECT kind, COALESCE(SUM(amount), 0) FROM account_balances GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind string
			sum  decimal.Decimal
		)
		if err := rows.Scan(&kind, &sum); err != nil {
			return nil, err
		}
		st.Balances[account.BalanceKind(kind)] = sum
	}
	return st, rows.Err()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
