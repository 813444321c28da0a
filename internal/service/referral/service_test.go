package referral_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/repository/memory"
	"tera-rewards-backend/internal/service/ledger"
	"tera-rewards-backend/internal/service/referral"
)

type fixture struct {
	store    *memory.Store
	ledger   *ledger.Service
	referral *referral.Service
}

func newFixture(t *testing.T, ids ...int64) *fixture {
	t.Helper()
	store := memory.NewStore()
	l := ledger.NewService(store, store.Accounts(), store.Ledger())
	rates := []decimal.Decimal{
		decimal.RequireFromString("0.05"),
		decimal.RequireFromString("0.02"),
		decimal.RequireFromString("0.01"),
	}
	r := referral.NewService(store, store.Accounts(), store.Referrals(), l, rates)
	for _, id := range ids {
		_, _, err := l.Register(context.Background(), id, "")
		require.NoError(t, err)
	}
	return &fixture{store: store, ledger: l, referral: r}
}

// chain links ids so that ids[i] is referred by ids[i-1].
func (f *fixture) chain(t *testing.T, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i < len(ids); i++ {
		parent, err := f.ledger.Get(ctx, ids[i-1])
		require.NoError(t, err)
		_, err = f.referral.Link(ctx, ids[i], parent.ReferralCode)
		require.NoError(t, err)
	}
}

func (f *fixture) referralBalance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	a, err := f.ledger.Get(context.Background(), id)
	require.NoError(t, err)
	return a.Balances.Get(account.BalanceEarningReferral)
}

func TestLevelOneCommission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 2)
	f.chain(t, 1, 2)

	credits, err := f.referral.ProcessEvent(ctx, 2, decimal.NewFromInt(100), "dep-1")
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.True(t, f.referralBalance(t, 1).Equal(decimal.NewFromInt(5)))

	edge, err := f.store.Referrals().GetByReferred(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.True(t, edge.BonusAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, edge.IsRewarded)
}

func TestCascadeStopsAfterThreeLevels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 2, 3, 4, 5)
	f.chain(t, 1, 2, 3, 4, 5)

	credits, err := f.referral.ProcessEvent(ctx, 5, decimal.NewFromInt(100), "dep-1")
	require.NoError(t, err)
	require.Len(t, credits, 3)

	assert.True(t, f.referralBalance(t, 4).Equal(decimal.NewFromInt(5)))
	assert.True(t, f.referralBalance(t, 3).Equal(decimal.NewFromInt(2)))
	assert.True(t, f.referralBalance(t, 2).Equal(decimal.NewFromInt(1)))
	assert.True(t, f.referralBalance(t, 1).IsZero())

	// Each ancestor's bonus lands on the edge to its child on the path.
	edge, err := f.store.Referrals().GetByReferred(ctx, 4)
	require.NoError(t, err)
	assert.True(t, edge.BonusAmount.Equal(decimal.NewFromInt(2)))
}

func TestCascadeStopsAtInactiveAncestor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 2, 3)
	f.chain(t, 1, 2, 3)
	_, err := f.ledger.SetActive(ctx, 2, false)
	require.NoError(t, err)

	credits, err := f.referral.ProcessEvent(ctx, 3, decimal.NewFromInt(100), "dep-1")
	require.NoError(t, err)
	assert.Empty(t, credits)
	assert.True(t, f.referralBalance(t, 1).IsZero())
}

func TestLinkRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 2, 3)
	f.chain(t, 1, 2, 3)

	one, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	three, err := f.ledger.Get(ctx, 3)
	require.NoError(t, err)

	_, err = f.referral.Link(ctx, 1, one.ReferralCode)
	assert.ErrorIs(t, err, apperrors.ErrValidation, "self referral")

	_, err = f.referral.Link(ctx, 1, three.ReferralCode)
	assert.ErrorIs(t, err, apperrors.ErrValidation, "cycle")

	_, err = f.referral.Link(ctx, 3, one.ReferralCode)
	assert.ErrorIs(t, err, apperrors.ErrValidation, "already linked")

	_, err = f.referral.Link(ctx, 1, "ZZZZZZZZ")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	a, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, a.ReferredBy)
}

func TestLinkAcceptsLowercaseCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 2)
	one, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)

	edge, err := f.referral.Link(ctx, 2, " "+strings.ToLower(one.ReferralCode))
	require.NoError(t, err)
	assert.Equal(t, int64(1), edge.ReferrerID)

	tree, err := f.referral.Tree(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, int64(2), tree[0].AccountID)
}
