// Package ledger owns account balances. Every balance mutation in the system goes
// through Service.Adjust, which applies a guarded atomic update and appends an
// audit entry in the same transaction.
package ledger

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
	dledger "tera-rewards-backend/internal/domain/ledger"
	"tera-rewards-backend/internal/domain/txn"
)

const maxCodeAttempts = 5

// Meta describes why a balance moved; it is copied into the ledger entry.
type Meta struct {
	Reason     dledger.Reason
	Reference  string
	OperatorID *int64
}

// ActivityListener is notified, inside the toggling transaction, when an
// account is deactivated or reactivated.
type ActivityListener interface {
	OnDeactivated(ctx context.Context, accountID int64, at time.Time) error
	OnActivated(ctx context.Context, accountID int64, at time.Time) error
}

// Service orchestrates account balances with the repositories.
type Service struct {
	tx       txn.Manager
	accounts account.Repository
	entries  dledger.Repository
	listener ActivityListener
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(tx txn.Manager, accounts account.Repository, entries dledger.Repository) *Service {
	return &Service{
		tx:       tx,
		accounts: accounts,
		entries:  entries,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Component("ledger"),
	}
}

// SetActivityListener registers the callback run on activation changes.
func (s *Service) SetActivityListener(l ActivityListener) { s.listener = l }

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Adjust adds delta to one balance of the account and returns the new amount.
// A debit that would leave the balance negative fails with INSUFFICIENT_FUNDS and
// changes nothing.
func (s *Service) Adjust(ctx context.Context, accountID int64, kind account.BalanceKind, delta decimal.Decimal, meta Meta) (decimal.Decimal, error) {
	if _, err := account.ParseBalanceKind(string(kind)); err != nil {
		return decimal.Zero, apperrors.NewValidationError("kind", err.Error())
	}
	if err := validation.ValidateAmountScale(delta, "delta"); err != nil {
		return decimal.Zero, apperrors.NewValidationError("delta", err.Error())
	}
	var balance decimal.Decimal
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.accounts.AdjustBalance(ctx, accountID, kind, delta)
		switch {
		case errors.Is(err, account.ErrNegativeBalance):
			return apperrors.NewInsufficientFundsError(accountID, string(kind))
		case errors.Is(err, account.ErrNotFound):
			return apperrors.NewNotFoundError("account", accountID)
		case err != nil:
			return apperrors.NewDatabaseError("adjust balance", err)
		}
		balance = b
		if delta.IsZero() {
			return nil
		}
		entry := &dledger.Entry{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			Kind:       kind,
			Delta:      delta,
			Balance:    b,
			Reason:     meta.Reason,
			Reference:  meta.Reference,
			OperatorID: meta.OperatorID,
			CreatedAt:  s.now(),
		}
		if err := s.entries.Append(ctx, entry); err != nil {
			return apperrors.NewDatabaseError("append ledger entry", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Get returns a snapshot of the account.
func (s *Service) Get(ctx context.Context, accountID int64) (*account.Account, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get account", err)
	}
	if a == nil {
		return nil, apperrors.NewNotFoundError("account", accountID)
	}
	return a, nil
}

// SetActive changes the activation flag and notifies the listener when it flips.
func (s *Service) SetActive(ctx context.Context, accountID int64, active bool) (*account.Account, error) {
	return s.setActive(ctx, accountID, func(bool) bool { return active })
}

// Toggle flips the activation flag.
func (s *Service) Toggle(ctx context.Context, accountID int64) (*account.Account, error) {
	return s.setActive(ctx, accountID, func(current bool) bool { return !current })
}

func (s *Service) setActive(ctx context.Context, accountID int64, next func(bool) bool) (*account.Account, error) {
	var out *account.Account
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return apperrors.NewDatabaseError("lock account", err)
		}
		if a == nil {
			return apperrors.NewNotFoundError("account", accountID)
		}
		active := next(a.IsActive)
		if active == a.IsActive {
			out = a
			return nil
		}
		if err := s.accounts.SetActive(ctx, accountID, active); err != nil {
			return apperrors.NewDatabaseError("set active", err)
		}
		if s.listener != nil {
			at := s.now()
			if active {
				err = s.listener.OnActivated(ctx, accountID, at)
			} else {
				err = s.listener.OnDeactivated(ctx, accountID, at)
			}
			if err != nil {
				return err
			}
		}
		a.IsActive = active
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", accountID).Bool("is_active", out.IsActive).Msg("Account activation changed")
	return out, nil
}

// Register creates an active account with zero balances and a fresh referral
// code. Registering an existing id returns the stored account and created=false.
func (s *Service) Register(ctx context.Context, accountID int64, walletAddress string) (a *account.Account, created bool, err error) {
	if accountID <= 0 {
		return nil, false, apperrors.NewValidationError("account_id", "must be positive")
	}
	if walletAddress != "" {
		if err := validation.ValidateWalletAddress(walletAddress); err != nil {
			return nil, false, apperrors.NewValidationError("wallet_address", err.Error())
		}
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return apperrors.NewDatabaseError("get account", err)
		}
		if existing != nil {
			a = existing
			return nil
		}
		code, err := s.freeReferralCode(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		a = &account.Account{
			ID:            accountID,
			Balances:      account.ZeroBalances(),
			WalletAddress: walletAddress,
			IsActive:      true,
			ReferralCode:  code,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.accounts.Create(ctx, a); err != nil {
			return apperrors.NewDatabaseError("create account", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Info().Int64("account_id", accountID).Str("referral_code", a.ReferralCode).Msg("Account registered")
	}
	return a, created, nil
}

func (s *Service) freeReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := newReferralCode()
		taken, err := s.accounts.GetByReferralCode(ctx, code)
		if err != nil {
			return "", apperrors.NewDatabaseError("check referral code", err)
		}
		if taken == nil {
			return code, nil
		}
	}
	return "", apperrors.New(apperrors.ErrCodeInternal, "could not allocate a referral code")
}

func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:validation.ReferralCodeLength])
}

// History returns the ledger entries of the account, newest first.
func (s *Service) History(ctx context.Context, accountID int64, limit, offset int) ([]dledger.Entry, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list ledger entries", err)
	}
	return entries, nil
}
