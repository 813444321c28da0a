package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Workers.StatsCacheTTL)
	assert.True(t, cfg.Rewards.MiningDailyRate.Equal(decimal.RequireFromString("0.01")))
	require.Len(t, cfg.Rewards.ReferralLevelRates, 3)
	assert.True(t, cfg.Rewards.ReferralLevelRates[0].Equal(decimal.RequireFromString("0.05")))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("ADMIN_IDS", "10,20")
	t.Setenv("REFERRAL_LEVEL_RATES", "0.1,0.05")
	t.Setenv("SWAP_FEE_RATE", "0.005")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsAdmin(20))
	assert.False(t, cfg.IsAdmin(30))
	require.Len(t, cfg.Rewards.ReferralLevelRates, 2)
	assert.True(t, cfg.Rewards.SwapFeeRate.Equal(decimal.RequireFromString("0.005")))
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("storage", func(t *testing.T) {
		t.Setenv("STORAGE", "mongo")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("fee rate", func(t *testing.T) {
		t.Setenv("STORAGE", "memory")
		t.Setenv("WITHDRAW_FEE_RATE", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("too many levels", func(t *testing.T) {
		t.Setenv("STORAGE", "memory")
		t.Setenv("REFERRAL_LEVEL_RATES", "0.05,0.02,0.01,0.01")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestApplyOverrides(t *testing.T) {
	base := DefaultRewards()

	out, err := base.ApplyOverrides(map[string]string{
		"mining_daily_rate":         "0.02",
		"REFERRAL_LEVEL_RATES":      "0.07, 0.03",
		"REFERRAL_ON_MINING_PROFIT": "true",
	})
	require.NoError(t, err)
	assert.True(t, out.MiningDailyRate.Equal(decimal.RequireFromString("0.02")))
	assert.Len(t, out.ReferralLevelRates, 2)
	assert.True(t, out.ReferralOnMiningProfit)
	// base is untouched
	assert.Len(t, base.ReferralLevelRates, 3)
	assert.True(t, base.MiningDailyRate.Equal(decimal.RequireFromString("0.01")))

	_, err = base.ApplyOverrides(map[string]string{"BONUS_MULTIPLIER": "2"})
	assert.Error(t, err)

	_, err = base.ApplyOverrides(map[string]string{"SWAP_RATE_TON_TERA": "0"})
	assert.Error(t, err)
}
