package account

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeBalance is returned when an adjustment would drive a balance below zero.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrReferralCodeTaken is returned on a referral code collision.
	ErrReferralCodeTaken = errors.New("referral code already taken")
	// ErrNotFound is returned by mutations on an unknown account.
	ErrNotFound = errors.New("account not found")
	// ErrAlreadyExists is returned when creating an account whose id is in use.
	ErrAlreadyExists = errors.New("account already exists")
)

// Stats aggregates the accounts table.
type Stats struct {
	Total    int64    `json:"total"`
	Active   int64    `json:"active"`
	Mining   int64    `json:"mining"`
	Balances Balances `json:"balances"`
}

// Repository defines persistence operations for Account aggregate.
// Lookups return (nil, nil) when the account does not exist.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	// GetByIDForUpdate locks the account row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*Account, error)
	GetByReferralCode(ctx context.Context, code string) (*Account, error)
	// AdjustBalance applies delta atomically and returns the resulting amount.
	AdjustBalance(ctx context.Context, id int64, kind BalanceKind, delta decimal.Decimal) (decimal.Decimal, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetMiningState(ctx context.Context, id int64, active bool, startedAt *time.Time) error
	SetReferrer(ctx context.Context, id, referrerID int64) error
	ListReferred(ctx context.Context, referrerID int64) ([]Account, error)
	Stats(ctx context.Context) (*Stats, error)
}
