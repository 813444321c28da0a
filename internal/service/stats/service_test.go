package stats_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/repository/memory"
	"tera-rewards-backend/internal/service/stats"
)

type cacheMock struct {
	mock.Mock
}

func (m *cacheMock) Get(ctx context.Context) (*stats.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*stats.Snapshot)
	return snap, args.Error(1)
}

func (m *cacheMock) Set(ctx context.Context, s *stats.Snapshot) error {
	return m.Called(ctx, s).Error(0)
}

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []int64{1, 2} {
		require.NoError(t, store.Accounts().Create(ctx, &account.Account{
			ID:           id,
			IsActive:     id == 1,
			ReferralCode: "CODE000" + string(rune('0'+id)),
			Balances:     account.Balances{account.BalanceMain: decimal.NewFromInt(10 * id)},
		}))
	}
	require.NoError(t, store.Deposits().Create(ctx, &deposit.Request{ID: "a", AccountID: 1, Amount: decimal.NewFromInt(5), TxHash: "hash-a", Status: request.StatusPending}))
	require.NoError(t, store.Deposits().Create(ctx, &deposit.Request{ID: "b", AccountID: 1, Amount: decimal.NewFromInt(7), TxHash: "hash-b", Status: request.StatusApproved}))
}

func newService(store *memory.Store, cache stats.Cache) *stats.Service {
	return stats.NewService(store.Accounts(), store.Deposits(), store.Withdrawals(), store.Swaps(), cache)
}

func TestGetAggregates(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)

	snap, err := newService(store, nil).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Accounts.Total)
	assert.Equal(t, int64(1), snap.Accounts.Active)
	assert.True(t, snap.Accounts.Balances.Get(account.BalanceMain).Equal(decimal.NewFromInt(30)))
	assert.Equal(t, int64(1), snap.Deposits.Pending)
	assert.Equal(t, int64(1), snap.Deposits.Approved)
	assert.True(t, snap.Deposits.ApprovedSum.Equal(decimal.NewFromInt(7)))
	assert.Zero(t, snap.Withdrawals.Pending)
	assert.Zero(t, snap.Swaps)
}

func TestGetUsesCache(t *testing.T) {
	cached := &stats.Snapshot{Swaps: 99}
	cache := &cacheMock{}
	cache.On("Get", mock.Anything).Return(cached, nil).Once()

	snap, err := newService(memory.NewStore(), cache).Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, cached, snap)
	cache.AssertExpectations(t)
}

func TestGetFallsBackWhenCacheFails(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	cache := &cacheMock{}
	cache.On("Get", mock.Anything).Return(nil, errors.New("redis down")).Once()
	cache.On("Set", mock.Anything, mock.AnythingOfType("*stats.Snapshot")).Return(errors.New("redis down")).Once()

	snap, err := newService(store, cache).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Accounts.Total)
	cache.AssertExpectations(t)
}
