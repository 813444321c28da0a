package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/domain/account"
	dledger "tera-rewards-backend/internal/domain/ledger"
	"tera-rewards-backend/internal/repository/memory"
	"tera-rewards-backend/internal/service/ledger"
)

type recordingListener struct {
	deactivated []int64
	activated   []int64
}

func (l *recordingListener) OnDeactivated(_ context.Context, id int64, _ time.Time) error {
	l.deactivated = append(l.deactivated, id)
	return nil
}

func (l *recordingListener) OnActivated(_ context.Context, id int64, _ time.Time) error {
	l.activated = append(l.activated, id)
	return nil
}

func newService(t *testing.T) (*ledger.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return ledger.NewService(store, store.Accounts(), store.Ledger()), store
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	_, _, err := svc.Register(ctx, 1, "")
	require.NoError(t, err)

	bal, err := svc.Adjust(ctx, 1, account.BalanceMain, d("10.5"), ledger.Meta{Reason: dledger.ReasonAdjust})
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("10.5")))

	bal, err = svc.Adjust(ctx, 1, account.BalanceMain, d("-0.5"), ledger.Meta{Reason: dledger.ReasonAdjust})
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("10")))

	entries, err := store.Ledger().ListByAccount(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Delta.Equal(d("-0.5")), "newest entry first")
	assert.True(t, entries[0].Balance.Equal(d("10")))
}

func TestAdjustInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, _, err := svc.Register(ctx, 1, "")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, 1, account.BalanceTera, d("5"), ledger.Meta{})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, 1, account.BalanceTera, d("-5.000000001"), ledger.Meta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	a, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, a.Balances.Get(account.BalanceTera).Equal(d("5")))
}

func TestAdjustUnknownAccount(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Adjust(context.Background(), 42, account.BalanceMain, d("1"), ledger.Meta{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAdjustRejectsUnknownKind(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, _, err := svc.Register(ctx, 1, "")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, 1, account.BalanceKind("bonus"), d("1"), ledger.Meta{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAdjustRejectsUnstorableDelta(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, _, err := svc.Register(ctx, 1, "")
	require.NoError(t, err)

	for _, delta := range []string{"0.0000000005", "-0.0000000005", "1e40"} {
		_, err = svc.Adjust(ctx, 1, account.BalanceMain, d(delta), ledger.Meta{})
		assert.ErrorIs(t, err, apperrors.ErrValidation, delta)
	}
	a, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, a.Balances.Get(account.BalanceMain).IsZero())
}

func TestConcurrentAdjustNeverLosesUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, _, err := svc.Register(ctx, 1, "")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, 1, account.BalanceMain, d("50"), ledger.Meta{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Half of these debits must fail; the balance may never go negative.
			_, _ = svc.Adjust(ctx, 1, account.BalanceMain, d("-1"), ledger.Meta{})
		}()
	}
	wg.Wait()

	a, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, a.Balances.Get(account.BalanceMain).IsZero())
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	a, created, err := svc.Register(ctx, 7, "EQ"+repeat("A", 46))
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, a.IsActive)
	assert.Len(t, a.ReferralCode, 8)
	for _, k := range account.AllKinds {
		assert.True(t, a.Balances.Get(k).IsZero(), k)
	}

	again, created, err := svc.Register(ctx, 7, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ReferralCode, again.ReferralCode)

	_, _, err = svc.Register(ctx, 8, "not-a-wallet")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestToggleNotifiesListener(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	l := &recordingListener{}
	svc.SetActivityListener(l)
	_, _, err := svc.Register(ctx, 1, "")
	require.NoError(t, err)

	a, err := svc.Toggle(ctx, 1)
	require.NoError(t, err)
	assert.False(t, a.IsActive)

	a, err = svc.SetActive(ctx, 1, false)
	require.NoError(t, err)
	assert.False(t, a.IsActive)

	a, err = svc.Toggle(ctx, 1)
	require.NoError(t, err)
	assert.True(t, a.IsActive)

	assert.Equal(t, []int64{1}, l.deactivated, "no-op SetActive must not notify")
	assert.Equal(t, []int64{1}, l.activated)
}

func TestGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, _, err := svc.Register(ctx, 1, "")
	require.NoError(t, err)

	a, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	a.Balances[account.BalanceMain] = d("1000")

	b, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, b.Balances.Get(account.BalanceMain).IsZero())
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
