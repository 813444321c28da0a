package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/domain/mining"
)

type minerMock struct {
	mock.Mock
}

func (m *minerMock) ExpiredMiningSessions(ctx context.Context, maxAge time.Duration) ([]mining.Session, error) {
	args := m.Called(ctx, maxAge)
	sessions, _ := args.Get(0).([]mining.Session)
	return sessions, args.Error(1)
}

func (m *minerMock) StopMining(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func TestRunSettlesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	m := &minerMock{}
	m.On("ExpiredMiningSessions", ctx, 24*time.Hour).Return([]mining.Session{
		{AccountID: 1}, {AccountID: 2}, {AccountID: 3},
	}, nil)
	m.On("StopMining", ctx, int64(1)).Return(decimal.NewFromInt(1), nil)
	m.On("StopMining", ctx, int64(2)).Return(decimal.Zero, apperrors.New(apperrors.ErrCodeNotMining, "No active mining session"))
	m.On("StopMining", ctx, int64(3)).Return(decimal.Zero, errors.New("db down"))

	s := NewMiningSweep(m, "@every 1m", 24*time.Hour)
	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Stopped: 1, Skipped: 1, Failed: 1}, res)
	m.AssertExpectations(t)
}

func TestRunListError(t *testing.T) {
	ctx := context.Background()
	m := &minerMock{}
	m.On("ExpiredMiningSessions", ctx, time.Hour).Return(nil, errors.New("timeout"))

	_, err := NewMiningSweep(m, "@every 1m", time.Hour).Run(ctx)
	assert.Error(t, err)
	m.AssertNotCalled(t, "StopMining", mock.Anything, mock.Anything)
}

func TestStartDisabledWithoutMaxAge(t *testing.T) {
	s := NewMiningSweep(&minerMock{}, "@every 1m", 0)
	require.NoError(t, s.Start())
	assert.False(t, s.isRunning)
	s.Stop()
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewMiningSweep(&minerMock{}, "not a spec", time.Hour)
	assert.Error(t, s.Start())
}
