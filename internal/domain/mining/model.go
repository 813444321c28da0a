package mining

import (
	"time"

	"github.com/shopspring/decimal"
)

// SecondsPerDay is the accrual period the daily rate refers to.
const SecondsPerDay = 86400

// Session is one accrual period of an account's mining principal.
type Session struct {
	ID             string          `json:"id"`
	AccountID      int64           `json:"account_id"`
	StartTime      time.Time       `json:"start_time"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	EarnedAmount   decimal.Decimal `json:"earned_amount"`
	IsActive       bool            `json:"is_active"`
	PausedAt       *time.Time      `json:"paused_at,omitempty"`
	PausedSeconds  int64           `json:"paused_seconds"`
}

// Elapsed returns accruing time up to now, excluding paused intervals.
func (s *Session) Elapsed(now time.Time) time.Duration {
	until := now
	if s.PausedAt != nil && s.PausedAt.Before(now) {
		until = *s.PausedAt
	}
	d := until.Sub(s.StartTime) - time.Duration(s.PausedSeconds)*time.Second
	if d < 0 {
		return 0
	}
	return d
}

// Accrued computes linear, uncapped, non-compounding profit:
// initialBalance × dailyRate × elapsed / 1 day, truncated to nano units.
func Accrued(initial, dailyRate decimal.Decimal, elapsed time.Duration) decimal.Decimal {
	if elapsed <= 0 || !initial.IsPositive() || !dailyRate.IsPositive() {
		return decimal.Zero
	}
	ms := decimal.NewFromInt(elapsed.Milliseconds())
	day := decimal.NewFromInt(SecondsPerDay * 1000)
	return initial.Mul(dailyRate).Mul(ms).Div(day).Truncate(9)
}
