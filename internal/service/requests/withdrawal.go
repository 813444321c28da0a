package requests

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/common/validation"
	"tera-rewards-backend/internal/domain/account"
	dledger "tera-rewards-backend/internal/domain/ledger"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/txn"
	"tera-rewards-backend/internal/domain/withdrawal"
	ledgersvc "tera-rewards-backend/internal/service/ledger"
)

// WithdrawalLimits bounds and prices withdrawals.
type WithdrawalLimits struct {
	Min     decimal.Decimal
	FeeRate decimal.Decimal
}

// WithdrawalService moderates withdrawal requests. The full amount is held at
// submission; rejection returns it.
type WithdrawalService struct {
	tx          txn.Manager
	withdrawals withdrawal.Repository
	accounts    account.Repository
	ledger      Ledger
	limits      WithdrawalLimits
	now         func() time.Time
	log         zerolog.Logger
}

func NewWithdrawalService(tx txn.Manager, withdrawals withdrawal.Repository, accounts account.Repository, ledger Ledger, limits WithdrawalLimits) *WithdrawalService {
	return &WithdrawalService{
		tx:          tx,
		withdrawals: withdrawals,
		accounts:    accounts,
		ledger:      ledger,
		limits:      limits,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.Component("withdrawals"),
	}
}

// SetClock overrides the time source.
func (s *WithdrawalService) SetClock(now func() time.Time) { s.now = now }

// Submit holds amount on the balance addressed by wType and creates a pending request.
func (s *WithdrawalService) Submit(ctx context.Context, accountID int64, amount decimal.Decimal, walletAddress string, wType withdrawal.Type) (*withdrawal.Request, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if _, err := withdrawal.ParseType(string(wType)); err != nil {
		return nil, apperrors.NewValidationError("withdraw_type", err.Error())
	}
	if err := validation.ValidatePositiveAmount(amount, "amount"); err != nil {
		return nil, apperrors.NewValidationError("amount", err.Error())
	}
	if err := validation.ValidateAmountScale(amount, "amount"); err != nil {
		return nil, apperrors.NewValidationError("amount", err.Error())
	}
	if amount.LessThan(s.limits.Min) {
		return nil, apperrors.NewValidationError("amount", "must be at least "+s.limits.Min.String())
	}
	if err := validation.ValidateWalletAddress(walletAddress); err != nil {
		return nil, apperrors.NewValidationError("wallet_address", err.Error())
	}

	fee := amount.Mul(s.limits.FeeRate).Truncate(9)
	now := s.now()
	w := &withdrawal.Request{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Amount:        amount,
		Fee:           fee,
		FinalAmount:   amount.Sub(fee),
		WalletAddress: walletAddress,
		WithdrawType:  wType,
		Status:        request.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := requireActive(ctx, s.accounts, accountID); err != nil {
			return err
		}
		meta := ledgersvc.Meta{Reason: dledger.ReasonWithdrawalHold, Reference: w.ID}
		if _, err := s.ledger.Adjust(ctx, accountID, wType.SourceBalance(), amount.Neg(), meta); err != nil {
			return err
		}
		if err := s.withdrawals.Create(ctx, w); err != nil {
			return apperrors.NewDatabaseError("create withdrawal", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("account_id", accountID).
		Str("request_id", w.ID).
		Str("amount", amount.String()).
		Str("withdraw_type", string(wType)).
		Msg("Withdrawal submitted")
	return w, nil
}

// Approve closes the request; the hold taken at submission becomes final.
func (s *WithdrawalService) Approve(ctx context.Context, id, note string) (*withdrawal.Request, error) {
	w, err := moderate(ctx, s.tx, "withdrawal", id, note,
		func(ctx context.Context) (*withdrawal.Request, error) {
			return s.withdrawals.Transition(ctx, id, request.StatusApproved, note, s.now())
		}, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", w.AccountID).Str("request_id", id).Msg("Withdrawal approved")
	return w, nil
}

// Reject returns the full held amount, not the final amount, to the source balance.
func (s *WithdrawalService) Reject(ctx context.Context, id, note string) (*withdrawal.Request, error) {
	w, err := moderate(ctx, s.tx, "withdrawal", id, note,
		func(ctx context.Context) (*withdrawal.Request, error) {
			return s.withdrawals.Transition(ctx, id, request.StatusRejected, note, s.now())
		},
		func(ctx context.Context, w *withdrawal.Request) error {
			meta := ledgersvc.Meta{Reason: dledger.ReasonWithdrawalRefund, Reference: w.ID}
			_, err := s.ledger.Adjust(ctx, w.AccountID, w.WithdrawType.SourceBalance(), w.Amount, meta)
			return err
		})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", w.AccountID).Str("request_id", id).Msg("Withdrawal rejected")
	return w, nil
}

// Get returns one request.
func (s *WithdrawalService) Get(ctx context.Context, id string) (*withdrawal.Request, error) {
	w, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get withdrawal", err)
	}
	if w == nil {
		return nil, apperrors.NewNotFoundError("withdrawal", id)
	}
	return w, nil
}

// List returns requests matching f, newest first.
func (s *WithdrawalService) List(ctx context.Context, f request.Filter) ([]withdrawal.Request, error) {
	out, err := s.withdrawals.List(ctx, f)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list withdrawals", err)
	}
	return out, nil
}
