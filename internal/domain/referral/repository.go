package referral

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrAlreadyReferred is returned when the referred account already has a referrer.
var ErrAlreadyReferred = errors.New("account already has a referrer")

// Repository persists referral edges.
type Repository interface {
	Create(ctx context.Context, e *Edge) error
	GetByReferred(ctx context.Context, referredID int64) (*Edge, error)
	// AddBonus increments the edge bonus and marks it rewarded.
	AddBonus(ctx context.Context, referredID int64, amount decimal.Decimal) error
	ListByReferrer(ctx context.Context, referrerID int64) ([]Edge, error)
}
