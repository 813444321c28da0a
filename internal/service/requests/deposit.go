package requests

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/common/validation"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/deposit"
	dledger "tera-rewards-backend/internal/domain/ledger"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/txn"
	ledgersvc "tera-rewards-backend/internal/service/ledger"
)

// DepositLimits bounds and prices deposits.
type DepositLimits struct {
	Min     decimal.Decimal
	Max     decimal.Decimal
	FeeRate decimal.Decimal
}

// DepositService moderates deposit requests.
type DepositService struct {
	tx       txn.Manager
	deposits deposit.Repository
	accounts account.Repository
	ledger   Ledger
	referrer Referrer
	limits   DepositLimits
	now      func() time.Time
	log      zerolog.Logger
}

func NewDepositService(tx txn.Manager, deposits deposit.Repository, accounts account.Repository, ledger Ledger, referrer Referrer, limits DepositLimits) *DepositService {
	return &DepositService{
		tx:       tx,
		deposits: deposits,
		accounts: accounts,
		ledger:   ledger,
		referrer: referrer,
		limits:   limits,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Component("deposits"),
	}
}

// SetClock overrides the time source.
func (s *DepositService) SetClock(now func() time.Time) { s.now = now }

// Submit registers txHash and creates a pending request. The hash is claimed by
// the insert itself, so two submissions of one hash cannot both succeed.
func (s *DepositService) Submit(ctx context.Context, accountID int64, amount decimal.Decimal, txHash string) (*deposit.Request, error) {
	txHash = strings.TrimSpace(txHash)
	if err := validation.ValidateAmountScale(amount, "amount"); err != nil {
		return nil, apperrors.NewValidationError("amount", err.Error())
	}
	if err := validation.ValidateAmountRange(amount, s.limits.Min, s.limits.Max, "amount"); err != nil {
		return nil, apperrors.NewValidationError("amount", err.Error())
	}
	if err := validation.ValidatePositiveAmount(amount, "amount"); err != nil {
		return nil, apperrors.NewValidationError("amount", err.Error())
	}
	if err := validation.ValidateTxHash(txHash); err != nil {
		return nil, apperrors.NewValidationError("tx_hash", err.Error())
	}

	now := s.now()
	d := &deposit.Request{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		TxHash:    txHash,
		Status:    request.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := requireActive(ctx, s.accounts, accountID); err != nil {
			return err
		}
		if err := s.deposits.Create(ctx, d); err != nil {
			if errors.Is(err, deposit.ErrDuplicateTxHash) {
				return apperrors.New(apperrors.ErrCodeDuplicateTxHash, "Transaction hash already submitted").
					WithDetail("tx_hash", txHash)
			}
			return apperrors.NewDatabaseError("create deposit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", accountID).Str("request_id", d.ID).Str("amount", amount.String()).Msg("Deposit submitted")
	return d, nil
}

// Approve credits main by amount × (1 − fee rate) and pays referral commissions
// on the raw amount.
func (s *DepositService) Approve(ctx context.Context, id, note string) (*deposit.Request, error) {
	d, err := moderate(ctx, s.tx, "deposit", id, note,
		func(ctx context.Context) (*deposit.Request, error) {
			return s.deposits.Transition(ctx, id, request.StatusApproved, note, s.now())
		},
		func(ctx context.Context, d *deposit.Request) error {
			credit := d.Amount.Sub(d.Amount.Mul(s.limits.FeeRate)).Truncate(9)
			meta := ledgersvc.Meta{Reason: dledger.ReasonDeposit, Reference: d.ID}
			if _, err := s.ledger.Adjust(ctx, d.AccountID, account.BalanceMain, credit, meta); err != nil {
				return err
			}
			if s.referrer != nil {
				return s.referrer.OnDeposit(ctx, d.AccountID, d.Amount, d.ID)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", d.AccountID).Str("request_id", id).Msg("Deposit approved")
	return d, nil
}

// Reject closes the request without touching balances.
func (s *DepositService) Reject(ctx context.Context, id, note string) (*deposit.Request, error) {
	d, err := moderate(ctx, s.tx, "deposit", id, note,
		func(ctx context.Context) (*deposit.Request, error) {
			return s.deposits.Transition(ctx, id, request.StatusRejected, note, s.now())
		}, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", d.AccountID).Str("request_id", id).Msg("Deposit rejected")
	return d, nil
}

// Get returns one request.
func (s *DepositService) Get(ctx context.Context, id string) (*deposit.Request, error) {
	d, err := s.deposits.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get deposit", err)
	}
	if d == nil {
		return nil, apperrors.NewNotFoundError("deposit", id)
	}
	return d, nil
}

// List returns requests matching f, newest first.
func (s *DepositService) List(ctx context.Context, f request.Filter) ([]deposit.Request, error) {
	out, err := s.deposits.List(ctx, f)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list deposits", err)
	}
	return out, nil
}
