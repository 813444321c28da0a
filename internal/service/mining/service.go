// Package mining runs the per-account accrual state machine Idle → Mining → Idle.
package mining

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/domain/account"
	dledger "tera-rewards-backend/internal/domain/ledger"
	domain "tera-rewards-backend/internal/domain/mining"
	"tera-rewards-backend/internal/domain/txn"
	ledgersvc "tera-rewards-backend/internal/service/ledger"
)

const sweepBatch = 500

// Ledger is the balance mutation the engine needs.
type Ledger interface {
	Adjust(ctx context.Context, accountID int64, kind account.BalanceKind, delta decimal.Decimal, meta ledgersvc.Meta) (decimal.Decimal, error)
}

// ProfitReferrer receives settled profit when commissions on mining are enabled.
type ProfitReferrer interface {
	OnProfit(ctx context.Context, accountID int64, profit decimal.Decimal, reference string) error
}

// Preview is the live state of an open session.
type Preview struct {
	Session *domain.Session `json:"session"`
	Accrued decimal.Decimal `json:"accrued"`
	AsOf    time.Time       `json:"as_of"`
}

// Service implements mining start/stop against the ledger.
type Service struct {
	tx        txn.Manager
	accounts  account.Repository
	sessions  domain.Repository
	ledger    Ledger
	referrer  ProfitReferrer
	dailyRate decimal.Decimal
	now       func() time.Time
	log       zerolog.Logger
}

func NewService(tx txn.Manager, accounts account.Repository, sessions domain.Repository, ledger Ledger, dailyRate decimal.Decimal) *Service {
	return &Service{
		tx:        tx,
		accounts:  accounts,
		sessions:  sessions,
		ledger:    ledger,
		dailyRate: dailyRate,
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger.Component("mining"),
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetProfitReferrer enables referral commissions on settled profit.
func (s *Service) SetProfitReferrer(r ProfitReferrer) { s.referrer = r }

// Start opens a session whose principal is the current mining balance.
func (s *Service) Start(ctx context.Context, accountID int64) (*domain.Session, error) {
	var sess *domain.Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.lockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if !a.IsActive {
			return apperrors.NewUnauthorizedError("account is inactive")
		}
		if a.MiningActive {
			return apperrors.New(apperrors.ErrCodeAlreadyMining, "Mining is already active")
		}
		principal := a.Balances.Get(account.BalanceMining)
		if !principal.IsPositive() {
			return apperrors.New(apperrors.ErrCodeInsufficientPrincipal, "Mining balance must be positive")
		}

		now := s.now()
		sess = &domain.Session{
			ID:             uuid.NewString(),
			AccountID:      accountID,
			StartTime:      now,
			InitialBalance: principal,
			EarnedAmount:   decimal.Zero,
			IsActive:       true,
		}
		if err := s.sessions.Open(ctx, sess); err != nil {
			if errors.Is(err, domain.ErrActiveSessionExists) {
				return apperrors.New(apperrors.ErrCodeAlreadyMining, "Mining is already active")
			}
			return apperrors.NewDatabaseError("open mining session", err)
		}
		if err := s.accounts.SetMiningState(ctx, accountID, true, &now); err != nil {
			return apperrors.NewDatabaseError("set mining state", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", accountID).Str("session_id", sess.ID).Str("principal", sess.InitialBalance.String()).Msg("Mining started")
	return sess, nil
}

// Stop settles the open session into earning_profit and returns the earned amount.
func (s *Service) Stop(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var (
		earned decimal.Decimal
		sessID string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockAccount(ctx, accountID); err != nil {
			return err
		}
		sess, err := s.sessions.GetActive(ctx, accountID)
		if err != nil {
			return apperrors.NewDatabaseError("get mining session", err)
		}
		if sess == nil {
			return apperrors.New(apperrors.ErrCodeNotMining, "No active mining session")
		}

		now := s.now()
		earned = domain.Accrued(sess.InitialBalance, s.dailyRate, sess.Elapsed(now))
		closed, err := s.sessions.Close(ctx, sess.ID, now, earned)
		if err != nil {
			return apperrors.NewDatabaseError("close mining session", err)
		}
		if !closed {
			return apperrors.New(apperrors.ErrCodeNotMining, "No active mining session")
		}
		if earned.IsPositive() {
			meta := ledgersvc.Meta{Reason: dledger.ReasonMiningSettlement, Reference: sess.ID}
			if _, err := s.ledger.Adjust(ctx, accountID, account.BalanceEarningProfit, earned, meta); err != nil {
				return err
			}
			if s.referrer != nil {
				if err := s.referrer.OnProfit(ctx, accountID, earned, sess.ID); err != nil {
					return err
				}
			}
		}
		if err := s.accounts.SetMiningState(ctx, accountID, false, nil); err != nil {
			return apperrors.NewDatabaseError("set mining state", err)
		}
		sessID = sess.ID
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	s.log.Info().Int64("account_id", accountID).Str("session_id", sessID).Str("earned", earned.String()).Msg("Mining stopped")
	return earned, nil
}

// Preview returns what Stop would settle right now.
func (s *Service) Preview(ctx context.Context, accountID int64) (*Preview, error) {
	sess, err := s.sessions.GetActive(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get mining session", err)
	}
	if sess == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotMining, "No active mining session")
	}
	now := s.now()
	return &Preview{
		Session: sess,
		Accrued: domain.Accrued(sess.InitialBalance, s.dailyRate, sess.Elapsed(now)),
		AsOf:    now,
	}, nil
}

// OnDeactivated freezes accrual of the open session, if any.
func (s *Service) OnDeactivated(ctx context.Context, accountID int64, at time.Time) error {
	sess, err := s.sessions.GetActive(ctx, accountID)
	if err != nil {
		return apperrors.NewDatabaseError("get mining session", err)
	}
	if sess == nil || sess.PausedAt != nil {
		return nil
	}
	if err := s.sessions.SetPause(ctx, sess.ID, &at, sess.PausedSeconds); err != nil {
		return apperrors.NewDatabaseError("pause mining session", err)
	}
	return nil
}

// OnActivated resumes accrual, adding the paused interval to PausedSeconds.
func (s *Service) OnActivated(ctx context.Context, accountID int64, at time.Time) error {
	sess, err := s.sessions.GetActive(ctx, accountID)
	if err != nil {
		return apperrors.NewDatabaseError("get mining session", err)
	}
	if sess == nil || sess.PausedAt == nil {
		return nil
	}
	paused := sess.PausedSeconds
	if d := at.Sub(*sess.PausedAt); d > 0 {
		paused += int64(d / time.Second)
	}
	if err := s.sessions.SetPause(ctx, sess.ID, nil, paused); err != nil {
		return apperrors.NewDatabaseError("resume mining session", err)
	}
	return nil
}

// ListExpired returns open sessions that started more than maxAge ago.
func (s *Service) ListExpired(ctx context.Context, maxAge time.Duration) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActiveStartedBefore(ctx, s.now().Add(-maxAge), sweepBatch)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list expired sessions", err)
	}
	return sessions, nil
}

// History lists the sessions of an account, newest first.
func (s *Service) History(ctx context.Context, accountID int64, limit, offset int) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list mining sessions", err)
	}
	return sessions, nil
}

func (s *Service) lockAccount(ctx context.Context, accountID int64) (*account.Account, error) {
	a, err := s.accounts.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("lock account", err)
	}
	if a == nil {
		return nil, apperrors.NewNotFoundError("account", accountID)
	}
	return a, nil
}

var _ ledgersvc.ActivityListener = (*Service)(nil)
