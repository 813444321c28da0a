package rewards

import (
	"time"

	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/config"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/deposit"
	dledger "tera-rewards-backend/internal/domain/ledger"
	dmining "tera-rewards-backend/internal/domain/mining"
	dreferral "tera-rewards-backend/internal/domain/referral"
	dswap "tera-rewards-backend/internal/domain/swap"
	"tera-rewards-backend/internal/domain/txn"
	"tera-rewards-backend/internal/domain/withdrawal"
	"tera-rewards-backend/internal/service/events"
	ledgersvc "tera-rewards-backend/internal/service/ledger"
	miningsvc "tera-rewards-backend/internal/service/mining"
	referralsvc "tera-rewards-backend/internal/service/referral"
	"tera-rewards-backend/internal/service/requests"
	"tera-rewards-backend/internal/service/stats"
	swapsvc "tera-rewards-backend/internal/service/swap"
)

// Store is the set of repositories one backend (postgres or memory) provides.
type Store struct {
	Tx          txn.Manager
	Accounts    account.Repository
	Sessions    dmining.Repository
	Deposits    deposit.Repository
	Withdrawals withdrawal.Repository
	Swaps       dswap.Repository
	Referrals   dreferral.Repository
	Ledger      dledger.Repository
}

// Options carries the optional collaborators.
type Options struct {
	StatsCache stats.Cache
	Events     events.Publisher
	// Clock overrides time.Now in every engine; used by tests.
	Clock func() time.Time
}

// New wires the engines over store using the validated settings.
func New(store Store, settings config.Rewards, opts Options) *API {
	ledger := ledgersvc.NewService(store.Tx, store.Accounts, store.Ledger)
	referrals := referralsvc.NewService(store.Tx, store.Accounts, store.Referrals, ledger, settings.ReferralLevelRates)
	mining := miningsvc.NewService(store.Tx, store.Accounts, store.Sessions, ledger, settings.MiningDailyRate)
	ledger.SetActivityListener(mining)
	if settings.ReferralOnMiningProfit {
		mining.SetProfitReferrer(referrals)
	}

	deposits := requests.NewDepositService(store.Tx, store.Deposits, store.Accounts, ledger, referrals, requests.DepositLimits{
		Min:     settings.DepositMin,
		Max:     settings.DepositMax,
		FeeRate: settings.DepositFeeRate,
	})
	withdrawals := requests.NewWithdrawalService(store.Tx, store.Withdrawals, store.Accounts, ledger, requests.WithdrawalLimits{
		Min:     settings.WithdrawMin,
		FeeRate: settings.WithdrawFeeRate,
	})
	swaps := swapsvc.NewService(store.Tx, ledger, store.Swaps, swapsvc.Rates{
		TonToTera: settings.SwapRateTonTera,
		TeraToTon: settings.SwapRateTeraTon,
		FeeRate:   settings.SwapFeeRate,
	})

	if opts.Clock != nil {
		ledger.SetClock(opts.Clock)
		referrals.SetClock(opts.Clock)
		mining.SetClock(opts.Clock)
		deposits.SetClock(opts.Clock)
		withdrawals.SetClock(opts.Clock)
		swaps.SetClock(opts.Clock)
	}

	return &API{
		tx:          store.Tx,
		ledger:      ledger,
		mining:      mining,
		deposits:    deposits,
		withdrawals: withdrawals,
		swaps:       swaps,
		referrals:   referrals,
		stats:       stats.NewService(store.Accounts, store.Deposits, store.Withdrawals, store.Swaps, opts.StatsCache),
		events:      opts.Events,
		log:         logger.Component("rewards"),
	}
}
