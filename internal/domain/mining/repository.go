package mining

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrActiveSessionExists is returned when opening a second active session for an account.
var ErrActiveSessionExists = errors.New("active mining session already exists")

// Repository defines persistence operations for mining sessions.
type Repository interface {
	Open(ctx context.Context, s *Session) error
	// GetActive returns the open session of the account or nil.
	GetActive(ctx context.Context, accountID int64) (*Session, error)
	// Close settles an open session; returns false if it was no longer active.
	Close(ctx context.Context, id string, endTime time.Time, earned decimal.Decimal) (bool, error)
	SetPause(ctx context.Context, id string, pausedAt *time.Time, pausedSeconds int64) error
	// ListActiveStartedBefore returns up to limit open sessions started before t.
	ListActiveStartedBefore(ctx context.Context, t time.Time, limit int) ([]Session, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]Session, error)
}
