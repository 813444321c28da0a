package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/withdrawal"
)

// WithdrawalRepository persists withdrawal requests.
type WithdrawalRepository struct {
	db *sql.DB
}

var _ withdrawal.Repository = (*WithdrawalRepository)(nil)

func NewWithdrawalRepository(db *sql.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

const withdrawalColumns = `id, account_id, amount, fee, final_amount, wallet_address, withdraw_type, status, admin_note, created_at, updated_at, processed_at`

func (r *WithdrawalRepository) Create(ctx context.Context, w *withdrawal.Request) error {
	const q = `
	INSERT INTO withdrawal_requests (id, account_id, amount, fee, final_amount, wallet_address, withdraw_type, status, admin_note, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q,
		w.ID, w.AccountID, w.Amount, w.Fee, w.FinalAmount, w.WalletAddress,
		string(w.WithdrawType), string(w.Status), w.AdminNote, w.CreatedAt, w.UpdatedAt,
	)
	return err
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*withdrawal.Request, error) {
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id=$1`
	w, err := scanWithdrawal(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *WithdrawalRepository) Transition(ctx context.Context, id string, to request.Status, note string, at time.Time) (*withdrawal.Request, error) {
	q := `
	UPDATE withdrawal_requests SET status=$2, admin_note=$3, updated_at=$4, processed_at=$4
	WHERE id=$1 AND status='pending'
	RETURNING ` + withdrawalColumns
	w, err := scanWithdrawal(conn(ctx, r.db).QueryRowContext(ctx, q, id, string(to), note, at))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, request.ErrNotFound
	}
	return nil, request.ErrNotPending
}

func (r *WithdrawalRepository) List(ctx context.Context, f request.Filter) ([]withdrawal.Request, error) {
	f = f.Normalize()
	q := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
	WHERE ($1::text IS NULL OR status = $1) AND ($2::bigint IS NULL OR account_id = $2)
	ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, statusArg(f.Status), nullInt64(f.AccountID), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []withdrawal.Request
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *WithdrawalRepository) Counts(ctx context.Context) (*request.Counts, error) {
	return countRequests(ctx, conn(ctx, r.db), "withdrawal_requests")
}

func scanWithdrawal(row rowScanner) (*withdrawal.Request, error) {
	var (
		w         withdrawal.Request
		wType     string
		status    string
		processed sql.NullTime
	)
	if err := row.Scan(&w.ID, &w.AccountID, &w.Amount, &w.Fee, &w.FinalAmount, &w.WalletAddress, &wType, &status, &w.AdminNote, &w.CreatedAt, &w.UpdatedAt, &processed); err != nil {
		return nil, err
	}
	w.WithdrawType = withdrawal.Type(wType)
	w.Status = request.Status(status)
	w.ProcessedAt = timePtr(processed)
	return &w, nil
}
