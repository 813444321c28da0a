package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/ledger"
	"tera-rewards-backend/internal/domain/referral"
	"tera-rewards-backend/internal/domain/swap"
)

// SwapRepository persists the swap audit trail.
type SwapRepository struct {
	db *sql.DB
}

var _ swap.Repository = (*SwapRepository)(nil)

func NewSwapRepository(db *sql.DB) *SwapRepository { return &SwapRepository{db: db} }

func (r *SwapRepository) Create(ctx context.Context, t *swap.Transaction) error {
	const q = `
	INSERT INTO swap_transactions (id, account_id, from_currency, to_currency, amount, fee, rate, net_amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		t.ID, t.AccountID, string(t.FromCurrency), string(t.ToCurrency), t.Amount, t.Fee, t.Rate, t.NetAmount, t.CreatedAt,
	)
	return err
}

func (r *SwapRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]swap.Transaction, error) {
	limit, offset = clampPage(limit, offset)
	const q = `
	SELECT id, account_id, from_currency, to_currency, amount, fee, rate, net_amount, created_at
	FROM swap_transactions WHERE account_id=$1
	ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []swap.Transaction
	for rows.Next() {
		var (
			t        swap.Transaction
			from, to string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &from, &to, &t.Amount, &t.Fee, &t.Rate, &t.NetAmount, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.FromCurrency, t.ToCurrency = swap.Currency(from), swap.Currency(to)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SwapRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM swap_transactions`).Scan(&n)
	return n, err
}

// ReferralRepository persists referral edges keyed by the referred account.
type ReferralRepository struct {
	db *sql.DB
}

var _ referral.Repository = (*ReferralRepository)(nil)

func NewReferralRepository(db *sql.DB) *ReferralRepository { return &ReferralRepository{db: db} }

const edgeColumns = `referrer_id, referred_id, bonus_amount, is_rewarded, created_at, updated_at`

func (r *ReferralRepository) Create(ctx context.Context, e *referral.Edge) error {
	const q = `
	INSERT INTO referral_edges (referrer_id, referred_id, bonus_amount, is_rewarded, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, e.ReferrerID, e.ReferredID, e.BonusAmount, e.IsRewarded, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err, "referral_edges_pkey") {
		return referral.ErrAlreadyReferred
	}
	return err
}

func (r *ReferralRepository) GetByReferred(ctx context.Context, referredID int64) (*referral.Edge, error) {
	var e referral.Edge
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM referral_edges WHERE referred_id=$1`, referredID).
		Scan(&e.ReferrerID, &e.ReferredID, &e.BonusAmount, &e.IsRewarded, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *ReferralRepository) AddBonus(ctx context.Context, referredID int64, amount decimal.Decimal) error {
	const q = `UPDATE referral_edges SET bonus_amount = bonus_amount + $2, is_rewarded = TRUE, updated_at = now() WHERE referred_id=$1`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, referredID, amount)
	return err
}

func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID int64) ([]referral.Edge, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+edgeColumns+` FROM referral_edges WHERE referrer_id=$1 ORDER BY created_at DESC`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []referral.Edge
	for rows.Next() {
		var e referral.Edge
		if err := rows.Scan(&e.ReferrerID, &e.ReferredID, &e.BonusAmount, &e.IsRewarded, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LedgerRepository appends to ledger_entries.
type LedgerRepository struct {
	db *sql.DB
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository(db *sql.DB) *LedgerRepository { return &LedgerRepository{db: db} }

func (r *LedgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	const q = `
	INSERT INTO ledger_entries (id, account_id, kind, delta, balance, reason, reference, operator_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		e.ID, e.AccountID, string(e.Kind), e.Delta, e.Balance, string(e.Reason), e.Reference, nullInt64(e.OperatorID), e.CreatedAt,
	)
	return err
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]ledger.Entry, error) {
	limit, offset = clampPage(limit, offset)
	const q = `
	SELECT id, account_id, kind, delta, balance, reason, reference, operator_id, created_at
	FROM ledger_entries WHERE account_id=$1
	ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			e            ledger.Entry
			kind, reason string
			operator     sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &kind, &e.Delta, &e.Balance, &reason, &e.Reference, &operator, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = account.BalanceKind(kind)
		e.Reason = ledger.Reason(reason)
		if operator.Valid {
			v := operator.Int64
			e.OperatorID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
