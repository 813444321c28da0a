package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/request"
)

// DepositRepository persists deposit requests. Uniqueness of tx_hash is enforced
// by the deposit_requests_tx_hash_key index, so the check and the insert are one
// statement.
type DepositRepository struct {
	db *sql.DB
}

var _ deposit.Repository = (*DepositRepository)(nil)

func NewDepositRepository(db *sql.DB) *DepositRepository { return &DepositRepository{db: db} }

const depositColumns = `id, account_id, amount, tx_hash, status, admin_note, created_at, updated_at, processed_at`

func (r *DepositRepository) Create(ctx context.Context, d *deposit.Request) error {
	const q = `
	INSERT INTO deposit_requests (id, account_id, amount, tx_hash, status, admin_note, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, d.ID, d.AccountID, d.Amount, d.TxHash, string(d.Status), d.AdminNote, d.CreatedAt, d.UpdatedAt)
	if isUniqueViolation(err, "deposit_requests_tx_hash_key") {
		return deposit.ErrDuplicateTxHash
	}
	return err
}

func (r *DepositRepository) GetByID(ctx context.Context, id string) (*deposit.Request, error) {
	q := `SELECT ` + depositColumns + ` FROM deposit_requests WHERE id=$1`
	d, err := scanDeposit(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// Transition flips status only while the row is still pending. When nothing is
// updated the row is re-read to tell a missing request from a processed one.
func (r *DepositRepository) Transition(ctx context.Context, id string, to request.Status, note string, at time.Time) (*deposit.Request, error) {
	q := `
	UPDATE deposit_requests SET status=$2, admin_note=$3, updated_at=$4, processed_at=$4
	WHERE id=$1 AND status='pending'
	RETURNING ` + depositColumns
	d, err := scanDeposit(conn(ctx, r.db).QueryRowContext(ctx, q, id, string(to), note, at))
	if err == nil {
		return d, nil
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

func (r *DepositRepository) List(ctx context.Context, f request.Filter) ([]deposit.Request, error) {
	f = f.Normalize()
	q := `SELECT ` + depositColumns + ` FROM deposit_requests
	WHERE ($1::text IS NULL OR status = $1) AND ($2::bigint IS NULL OR account_id = $2)
	ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, statusArg(f.Status), nullInt64(f.AccountID), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []deposit.Request
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DepositRepository) Counts(ctx context.Context) (*request.Counts, error) {
	return countRequests(ctx, conn(ctx, r.db), "deposit_requests")
}

func scanDeposit(row rowScanner) (*deposit.Request, error) {
	var (
		d         deposit.Request
		status    string
		processed sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.AccountID, &d.Amount, &d.TxHash, &status, &d.AdminNote, &d.CreatedAt, &d.UpdatedAt, &processed); err != nil {
		return nil, err
	}
	d.Status = request.Status(status)
	d.ProcessedAt = timePtr(processed)
	return &d, nil
}

func statusArg(s *request.Status) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

// countRequests aggregates a request table by status. table is always a
// package constant.
func countRequests(ctx context.Context, q querier, table string) (*request.Counts, error) {
	rows, err := q.QueryContext(ctx, `SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM `+table+` GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c := &request.Counts{}
	for rows.Next() {
		var (
			status string
			n      int64
			sum    decimal.Decimal
		)
		if err := rows.Scan(&status, &n, &sum); err != nil {
			return nil, err
		}
		switch request.Status(status) {
		case request.StatusPending:
			c.Pending, c.PendingSum = n, sum
		case request.StatusApproved:
			c.Approved, c.ApprovedSum = n, sum
		case request.StatusRejected:
			c.Rejected, c.RejectedSum = n, sum
		}
	}
	return c, rows.Err()
}
