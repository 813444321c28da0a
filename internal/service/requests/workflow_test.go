package requests_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/request"
	"tera-rewards-backend/internal/domain/withdrawal"
	"tera-rewards-backend/internal/repository/memory"
	"tera-rewards-backend/internal/service/ledger"
	"tera-rewards-backend/internal/service/requests"
)

var wallet = "UQ" + strings.Repeat("b", 46)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type referralSpy struct {
	mu     sync.Mutex
	events []decimal.Decimal
}

func (r *referralSpy) OnDeposit(_ context.Context, _ int64, amount decimal.Decimal, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, amount)
	return nil
}

type fixture struct {
	store       *memory.Store
	ledger      *ledger.Service
	deposits    *requests.DepositService
	withdrawals *requests.WithdrawalService
	referrals   *referralSpy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	l := ledger.NewService(store, store.Accounts(), store.Ledger())
	spy := &referralSpy{}
	f := &fixture{
		store:     store,
		ledger:    l,
		referrals: spy,
		deposits: requests.NewDepositService(store, store.Deposits(), store.Accounts(), l, spy, requests.DepositLimits{
			Min:     d("1"),
			Max:     d("1000"),
			FeeRate: decimal.Zero,
		}),
		withdrawals: requests.NewWithdrawalService(store, store.Withdrawals(), store.Accounts(), l, requests.WithdrawalLimits{
			Min:     d("1"),
			FeeRate: d("0.02"),
		}),
	}
	_, _, err := l.Register(context.Background(), 1, "")
	require.NoError(t, err)
	return f
}

func (f *fixture) balance(t *testing.T, kind account.BalanceKind) decimal.Decimal {
	t.Helper()
	a, err := f.ledger.Get(context.Background(), 1)
	require.NoError(t, err)
	return a.Balances.Get(kind)
}

func TestDuplicateTxHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, err := f.ledger.Register(ctx, 2, "")
	require.NoError(t, err)

	first, err := f.deposits.Submit(ctx, 1, d("10"), "abc123")
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, first.Status)

	_, err = f.deposits.Submit(ctx, 2, d("10"), "abc123")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateTxHash)

	all, err := f.deposits.List(ctx, request.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDepositValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name   string
		amount string
		hash   string
	}{
		{"below min", "0.5", "abc123"},
		{"above max", "1000.01", "abc123"},
		{"short hash", "10", "abc"},
		{"bad hash chars", "10", "abc 123"},
		{"sub-nano precision", "10.0000000001", "abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.deposits.Submit(ctx, 1, d(tc.amount), tc.hash)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestDepositRequiresActiveAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ledger.SetActive(ctx, 1, false)
	require.NoError(t, err)

	_, err = f.deposits.Submit(ctx, 1, d("10"), "abc123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// The hash was not consumed by the failed submission.
	_, err = f.ledger.SetActive(ctx, 1, true)
	require.NoError(t, err)
	_, err = f.deposits.Submit(ctx, 1, d("10"), "abc123")
	assert.NoError(t, err)
}

func TestApproveDepositIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dep, err := f.deposits.Submit(ctx, 1, d("100"), "abc123")
	require.NoError(t, err)

	approved, err := f.deposits.Approve(ctx, dep.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, approved.Status)
	assert.NotNil(t, approved.ProcessedAt)
	assert.True(t, f.balance(t, account.BalanceMain).Equal(d("100")))

	_, err = f.deposits.Approve(ctx, dep.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrNotPending)
	_, err = f.deposits.Reject(ctx, dep.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrNotPending)
	assert.True(t, f.balance(t, account.BalanceMain).Equal(d("100")))
	assert.Len(t, f.referrals.events, 1)
	assert.True(t, f.referrals.events[0].Equal(d("100")))
}

func TestConcurrentApproveCreditsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dep, err := f.deposits.Submit(ctx, 1, d("100"), "abc123")
	require.NoError(t, err)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.deposits.Approve(ctx, dep.ID, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperrors.CodeOf(err) == apperrors.ErrCodeNotPending {
				conflict++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflict)
	assert.True(t, f.balance(t, account.BalanceMain).Equal(d("100")))
}

func TestRejectDepositHasNoBalanceEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dep, err := f.deposits.Submit(ctx, 1, d("100"), "abc123")
	require.NoError(t, err)

	rejected, err := f.deposits.Reject(ctx, dep.ID, "no such transfer")
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, rejected.Status)
	assert.Equal(t, "no such transfer", rejected.AdminNote)
	assert.True(t, f.balance(t, account.BalanceMain).IsZero())
	assert.Empty(t, f.referrals.events)
}

func TestModerateUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.deposits.Approve(context.Background(), "missing", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.withdrawals.Reject(context.Background(), "missing", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDepositFeeIsDeducted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	l := ledger.NewService(store, store.Accounts(), store.Ledger())
	_, _, err := l.Register(ctx, 1, "")
	require.NoError(t, err)
	spy := &referralSpy{}
	svc := requests.NewDepositService(store, store.Deposits(), store.Accounts(), l, spy, requests.DepositLimits{
		Min: d("1"), Max: d("1000"), FeeRate: d("0.03"),
	})
	svc.SetClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })

	dep, err := svc.Submit(ctx, 1, d("100"), "hash-001")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, dep.ID, "")
	require.NoError(t, err)

	a, err := l.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, a.Balances.Get(account.BalanceMain).Equal(d("97")))
	require.Len(t, spy.events, 1)
	assert.True(t, spy.events[0].Equal(d("100")), "commission base is the raw amount")
}

func TestWithdrawalHoldAndRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ledger.Adjust(ctx, 1, account.BalanceEarningProfit, d("150"), ledger.Meta{})
	require.NoError(t, err)

	w, err := f.withdrawals.Submit(ctx, 1, d("100"), wallet, withdrawal.TypeProfit)
	require.NoError(t, err)
	assert.True(t, w.Fee.Equal(d("2")))
	assert.True(t, w.FinalAmount.Equal(d("98")))
	assert.True(t, f.balance(t, account.BalanceEarningProfit).Equal(d("50")), "amount held at submission")

	_, err = f.withdrawals.Reject(ctx, w.ID, "")
	require.NoError(t, err)
	assert.True(t, f.balance(t, account.BalanceEarningProfit).Equal(d("150")), "full amount restored")
}

func TestWithdrawalApproveKeepsHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ledger.Adjust(ctx, 1, account.BalanceMain, d("100"), ledger.Meta{})
	require.NoError(t, err)

	w, err := f.withdrawals.Submit(ctx, 1, d("100"), wallet, withdrawal.TypeBalance)
	require.NoError(t, err)
	_, err = f.withdrawals.Approve(ctx, w.ID, "")
	require.NoError(t, err)
	assert.True(t, f.balance(t, account.BalanceMain).IsZero())

	_, err = f.withdrawals.Reject(ctx, w.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrNotPending)
	assert.True(t, f.balance(t, account.BalanceMain).IsZero())
}

func TestWithdrawalSubmitErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ledger.Adjust(ctx, 1, account.BalanceEarningReferral, d("10"), ledger.Meta{})
	require.NoError(t, err)

	_, err = f.withdrawals.Submit(ctx, 1, d("11"), wallet, withdrawal.TypeReferral)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	_, err = f.withdrawals.Submit(ctx, 1, d("0.5"), wallet, withdrawal.TypeReferral)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.withdrawals.Submit(ctx, 1, d("5"), "EQshort", withdrawal.TypeReferral)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.withdrawals.Submit(ctx, 1, d("5"), wallet, withdrawal.Type("bonus"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.True(t, f.balance(t, account.BalanceEarningReferral).Equal(d("10")))
	all, err := f.withdrawals.List(ctx, request.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWithdrawalRejectsSubNanoAmounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ledger.Adjust(ctx, 1, account.BalanceEarningProfit, d("1.000000001"), ledger.Meta{})
	require.NoError(t, err)

	_, err = f.withdrawals.Submit(ctx, 1, d("1.0000000005"), wallet, withdrawal.TypeProfit)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.withdrawals.Submit(ctx, 1, d("1e40"), wallet, withdrawal.TypeProfit)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.True(t, f.balance(t, account.BalanceEarningProfit).Equal(d("1.000000001")))

	w, err := f.withdrawals.Submit(ctx, 1, d("1.000000001"), wallet, withdrawal.TypeProfit)
	require.NoError(t, err)
	assert.True(t, f.balance(t, account.BalanceEarningProfit).IsZero())
	_, err = f.withdrawals.Reject(ctx, w.ID, "")
	require.NoError(t, err)
	assert.True(t, f.balance(t, account.BalanceEarningProfit).Equal(d("1.000000001")))
}

func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.ledger.Adjust(ctx, 1, account.BalanceMain, d("100"), ledger.Meta{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.withdrawals.Submit(ctx, 1, d("60"), wallet, withdrawal.TypeBalance)
		}()
	}
	wg.Wait()

	pending := request.StatusPending
	all, err := f.withdrawals.List(ctx, request.Filter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.True(t, f.balance(t, account.BalanceMain).Equal(d("40")))
}
