package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tera-rewards-backend/internal/domain/mining"
)

// MiningRepository persists mining sessions. A partial unique index keeps at most
// one active session per account.
type MiningRepository struct {
	db *sql.DB
}

var _ mining.Repository = (*MiningRepository)(nil)

func NewMiningRepository(db *sql.DB) *MiningRepository { return &MiningRepository{db: db} }

const sessionColumns = `id, account_id, start_time, initial_balance, end_time, earned_amount, is_active, paused_at, paused_seconds`

func (r *MiningRepository) Open(ctx context.Context, s *mining.Session) error {
	const q = `
	INSERT INTO mining_sessions (id, account_id, start_time, initial_balance, earned_amount, is_active, paused_seconds)
	VALUES ($1, $2, $3, $4, $5, TRUE, 0)`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, s.ID, s.AccountID, s.StartTime, s.InitialBalance, s.EarnedAmount)
	if isUniqueViolation(err, "mining_sessions_active_key") {
		return mining.ErrActiveSessionExists
	}
	return err
}

func (r *MiningRepository) GetActive(ctx context.Context, accountID int64) (*mining.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM mining_sessions WHERE account_id=$1 AND is_active`
	s, err := scanSession(conn(ctx, r.db).QueryRowContext(ctx, q, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Close is conditional on is_active so a session is settled at most once.
func (r *MiningRepository) Close(ctx context.Context, id string, endTime time.Time, earned decimal.Decimal) (bool, error) {
	const q = `UPDATE mining_sessions SET is_active=FALSE, end_time=$2, earned_amount=$3 WHERE id=$1 AND is_active`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, id, endTime, earned)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *MiningRepository) SetPause(ctx context.Context, id string, pausedAt *time.Time, pausedSeconds int64) error {
	const q = `UPDATE mining_sessions SET paused_at=$2, paused_seconds=$3 WHERE id=$1`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, id, nullTime(pausedAt), pausedSeconds)
	return err
}

func (r *MiningRepository) ListActiveStartedBefore(ctx context.Context, t time.Time, limit int) ([]mining.Session, error) {
	limit, _ = clampPage(limit, 0)
	q := `SELECT ` + sessionColumns + ` FROM mining_sessions WHERE is_active AND start_time < $1 ORDER BY start_time LIMIT $2`
	return r.list(ctx, q, t, limit)
}

func (r *MiningRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]mining.Session, error) {
	limit, offset = clampPage(limit, offset)
	q := `SELECT ` + sessionColumns + ` FROM mining_sessions WHERE account_id=$1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, q, accountID, limit, offset)
}

func (r *MiningRepository) list(ctx context.Context, query string, args ...interface{}) ([]mining.Session, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mining.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (*mining.Session, error) {
	var (
		s        mining.Session
		endTime  sql.NullTime
		pausedAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.AccountID, &s.StartTime, &s.InitialBalance, &endTime, &s.EarnedAmount, &s.IsActive, &pausedAt, &s.PausedSeconds); err != nil {
		return nil, err
	}
	s.EndTime = timePtr(endTime)
	s.PausedAt = timePtr(pausedAt)
	return &s, nil
}
