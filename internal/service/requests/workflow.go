// Package requests implements the moderation workflow Pending → {Approved,
// Rejected} for deposit and withdrawal requests.
package requests

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/validation"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/txn"
	ledgersvc "tera-rewards-backend/internal/service/ledger"
)

// Ledger is the balance mutation the workflow needs.
type Ledger interface {
	Adjust(ctx context.Context, accountID int64, kind account.BalanceKind, delta decimal.Decimal, meta ledgersvc.Meta) (decimal.Decimal, error)
}

// Referrer receives approved deposit amounts.
type Referrer interface {
	OnDeposit(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) error
}

// moderate runs the status compare-and-swap and its side effect in one
// transaction. A lost race surfaces as NOT_PENDING and the effect never runs.
func moderate[R any](
	ctx context.Context,
	tx txn.Manager,
	resource, id, note string,
	cas func(ctx context.Context) (*R, error),
	effect func(ctx context.Context, r *R) error,
) (*R, error) {
	if err := validation.ValidateAdminNote(note); err != nil {
		return nil, apperrors.NewValidationError("note", err.Error())
	}
	var out *R
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := cas(ctx)
		switch {
		case errors.Is(err, request.ErrNotPending):
			return apperrors.NewNotPendingError(resource, id)
		case errors.Is(err, request.ErrNotFound):
			return apperrors.NewNotFoundError(resource, id)
		case err != nil:
			return apperrors.NewDatabaseError("transition "+resource, err)
		}
		if effect != nil {
			if err := effect(ctx, r); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// requireActive loads the submitting account; inactive accounts may not submit.
func requireActive(ctx context.Context, accounts account.Repository, accountID int64) (*account.Account, error) {
	a, err := accounts.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("lock account", err)
	}
	if a == nil {
		return nil, apperrors.NewNotFoundError("account", accountID)
	}
	if !a.IsActive {
		return nil, apperrors.NewUnauthorizedError("account is inactive")
	}
	return a, nil
}
