package stats

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/swap"
	"tera-rewards-backend/internal/domain/withdrawal"
)

// Snapshot is the admin dashboard aggregate.
type Snapshot struct {
	Accounts    account.Stats  `json:"accounts"`
	Deposits    request.Counts `json:"deposits"`
	Withdrawals request.Counts `json:"withdrawals"`
	Swaps       int64          `json:"swaps"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Cache stores the latest snapshot for a short time.
type Cache interface {
	Get(ctx context.Context) (*Snapshot, error)
	Set(ctx context.Context, s *Snapshot) error
}

// Service aggregates read-only statistics.
type Service struct {
	accounts    account.Repository
	deposits    deposit.Repository
	withdrawals withdrawal.Repository
	swaps       swap.Repository
	cache       Cache
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates the aggregator; cache may be nil.
func NewService(accounts account.Repository, deposits deposit.Repository, withdrawals withdrawal.Repository, swaps swap.Repository, cache Cache) *Service {
	return &Service{
		accounts:    accounts,
		deposits:    deposits,
		withdrawals: withdrawals,
		swaps:       swaps,
		cache:       cache,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logger.Component("stats"),
	}
}

// Get returns the cached snapshot when fresh, otherwise recomputes it.
func (s *Service) Get(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.Get(ctx); err == nil && snap != nil {
			return snap, nil
		}
	}

	snap := &Snapshot{GeneratedAt: s.now()}
	acc, err := s.accounts.Stats(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("account stats", err)
	}
	snap.Accounts = *acc
	dep, err := s.deposits.Counts(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("deposit stats", err)
	}
	snap.Deposits = *dep
	wd, err := s.withdrawals.Counts(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("withdrawal stats", err)
	}
	snap.Withdrawals = *wd
	if snap.Swaps, err = s.swaps.Count(ctx); err != nil {
		return nil, apperrors.NewDatabaseError("swap stats", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache admin stats")
		}
	}
	return snap, nil
}
