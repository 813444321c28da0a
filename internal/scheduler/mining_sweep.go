// Package scheduler runs periodic maintenance jobs on robfig/cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/domain/mining"
)

// Miner is the part of the rewards API the sweep needs.
type Miner interface {
	ExpiredMiningSessions(ctx context.Context, maxAge time.Duration) ([]mining.Session, error)
	StopMining(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

// SweepResult summarizes one run.
type SweepResult struct {
	Stopped int
	Skipped int
	Failed  int
}

// MiningSweep settles sessions that stayed open longer than maxAge.
type MiningSweep struct {
	miner     Miner
	maxAge    time.Duration
	spec      string
	cron      *cron.Cron
	log       zerolog.Logger
	isRunning bool
}

func NewMiningSweep(miner Miner, spec string, maxAge time.Duration) *MiningSweep {
	return &MiningSweep{
		miner:  miner,
		maxAge: maxAge,
		spec:   spec,
		cron:   cron.New(),
		log:    logger.Component("mining_sweep"),
	}
}

// Start schedules the sweep. A zero maxAge disables it.
func (s *MiningSweep) Start() error {
	if s.maxAge <= 0 {
		s.log.Info().Msg("Mining sweep disabled")
		return nil
	}
	if s.isRunning {
		return fmt.Errorf("mining sweep is already running")
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res, err := s.Run(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("Mining sweep failed")
			return
		}
		if res.Stopped > 0 || res.Failed > 0 {
			s.log.Info().
				Int("stopped", res.Stopped).
				Int("skipped", res.Skipped).
				Int("failed", res.Failed).
				Msg("Mining sweep completed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.log.Info().Str("spec", s.spec).Dur("max_age", s.maxAge).Msg("Mining sweep started")
	return nil
}

// Stop waits for a running sweep to finish.
func (s *MiningSweep) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		s.log.Info().Msg("Mining sweep stopped")
	}
}

// Run performs one sweep. A session stopped concurrently by its owner is skipped.
func (s *MiningSweep) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	sessions, err := s.miner.ExpiredMiningSessions(ctx, s.maxAge)
	if err != nil {
		return res, err
	}
	for _, sess := range sessions {
		earned, err := s.miner.StopMining(ctx, sess.AccountID)
		switch {
		case err == nil:
			res.Stopped++
			s.log.Debug().Int64("account_id", sess.AccountID).Str("earned", earned.String()).Msg("Expired mining session settled")
		case errors.Is(err, apperrors.ErrNotMining):
			res.Skipped++
		default:
			res.Failed++
			s.log.Warn().Err(err).Int64("account_id", sess.AccountID).Msg("Failed to settle expired mining session")
		}
	}
	return res, nil
}
