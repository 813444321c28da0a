// Package rewards is the synchronous API of the rewards core. HTTP handlers, the
// command worker and the mining sweep all call into API; none of them touch the
// engines directly.
package rewards

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/validation"
	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/deposit"
	dledger "tera-rewards-backend/internal/domain/ledger"
	dmining "tera-rewards-backend/internal/domain/mining"
	dreferral "tera-rewards-backend/internal/domain/referral"
	"tera-rewards-backend/internal/domain/request"
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

// SwapResult is what Swap reports to the caller.
type SwapResult struct {
	NetAmount   decimal.Decimal    `json:"net_amount"`
	ToCurrency  dswap.Currency     `json:"to_currency"`
	Transaction *dswap.Transaction `json:"transaction"`
}

// API composes the engines.
type API struct {
	tx          txn.Manager
	ledger      *ledgersvc.Service
	mining      *miningsvc.Service
	deposits    *requests.DepositService
	withdrawals *requests.WithdrawalService
	swaps       *swapsvc.Service
	referrals   *referralsvc.Service
	stats       *stats.Service
	events      events.Publisher
	log         zerolog.Logger
}

// RegisterAccount creates the account (or returns the existing one) and links
// the referrer when a code is given for a new account.
func (a *API) RegisterAccount(ctx context.Context, accountID int64, walletAddress, referralCode string) (*account.Account, bool, error) {
	var (
		acc     *account.Account
		created bool
	)
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		acc, created, err = a.ledger.Register(ctx, accountID, walletAddress)
		if err != nil {
			return err
		}
		if created && referralCode != "" {
			edge, err := a.referrals.Link(ctx, accountID, referralCode)
			if err != nil {
				return err
			}
			referrer := edge.ReferrerID
			acc.ReferredBy = &referrer
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		a.publish(ctx, events.AccountRegistered, accountID, acc)
	}
	return acc, created, nil
}

// GetAccount returns an account snapshot.
func (a *API) GetAccount(ctx context.Context, accountID int64) (*account.Account, error) {
	return a.ledger.Get(ctx, accountID)
}

// ApplyReferralCode links the owner of code as the referrer of accountID.
func (a *API) ApplyReferralCode(ctx context.Context, accountID int64, code string) (*dreferral.Edge, error) {
	edge, err := a.referrals.Link(ctx, accountID, code)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.ReferrerLinked, accountID, edge)
	return edge, nil
}

// AccountHistory returns ledger entries, newest first.
func (a *API) AccountHistory(ctx context.Context, accountID int64, limit, offset int) ([]dledger.Entry, error) {
	return a.ledger.History(ctx, accountID, limit, offset)
}

// ReferralTree returns the direct referrals of the account.
func (a *API) ReferralTree(ctx context.Context, accountID int64) ([]referralsvc.Node, error) {
	if _, err := a.ledger.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return a.referrals.Tree(ctx, accountID)
}

func (a *API) StartMining(ctx context.Context, accountID int64) (*dmining.Session, error) {
	sess, err := a.mining.Start(ctx, accountID)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.MiningStarted, accountID, sess)
	return sess, nil
}

func (a *API) StopMining(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	earned, err := a.mining.Stop(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	a.publish(ctx, events.MiningStopped, accountID, map[string]string{"earned": earned.String()})
	return earned, nil
}

func (a *API) PreviewMining(ctx context.Context, accountID int64) (*miningsvc.Preview, error) {
	return a.mining.Preview(ctx, accountID)
}

// ExpiredMiningSessions lists open sessions older than maxAge.
func (a *API) ExpiredMiningSessions(ctx context.Context, maxAge time.Duration) ([]dmining.Session, error) {
	return a.mining.ListExpired(ctx, maxAge)
}

func (a *API) SubmitDeposit(ctx context.Context, accountID int64, amount decimal.Decimal, txHash string) (*deposit.Request, error) {
	d, err := a.deposits.Submit(ctx, accountID, amount, txHash)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.DepositSubmitted, accountID, d)
	return d, nil
}

func (a *API) ApproveDeposit(ctx context.Context, requestID, note string) (*deposit.Request, error) {
	d, err := a.deposits.Approve(ctx, requestID, note)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.DepositApproved, d.AccountID, d)
	return d, nil
}

func (a *API) RejectDeposit(ctx context.Context, requestID, note string) (*deposit.Request, error) {
	d, err := a.deposits.Reject(ctx, requestID, note)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.DepositRejected, d.AccountID, d)
	return d, nil
}

func (a *API) ListDeposits(ctx context.Context, f request.Filter) ([]deposit.Request, error) {
	return a.deposits.List(ctx, f)
}

func (a *API) SubmitWithdrawal(ctx context.Context, accountID int64, amount decimal.Decimal, walletAddress string, wType withdrawal.Type) (*withdrawal.Request, error) {
	w, err := a.withdrawals.Submit(ctx, accountID, amount, walletAddress, wType)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.WithdrawalCreated, accountID, w)
	return w, nil
}

func (a *API) ApproveWithdrawal(ctx context.Context, requestID, note string) (*withdrawal.Request, error) {
	w, err := a.withdrawals.Approve(ctx, requestID, note)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.WithdrawalApproved, w.AccountID, w)
	return w, nil
}

func (a *API) RejectWithdrawal(ctx context.Context, requestID, note string) (*withdrawal.Request, error) {
	w, err := a.withdrawals.Reject(ctx, requestID, note)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.WithdrawalRejected, w.AccountID, w)
	return w, nil
}

func (a *API) ListWithdrawals(ctx context.Context, f request.Filter) ([]withdrawal.Request, error) {
	return a.withdrawals.List(ctx, f)
}

func (a *API) Swap(ctx context.Context, accountID int64, from dswap.Currency, amount decimal.Decimal) (*SwapResult, error) {
	t, err := a.swaps.Swap(ctx, accountID, from, amount)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.SwapExecuted, accountID, t)
	return &SwapResult{NetAmount: t.NetAmount, ToCurrency: t.ToCurrency, Transaction: t}, nil
}

func (a *API) QuoteSwap(from dswap.Currency, amount decimal.Decimal) (*swapsvc.Quote, error) {
	return a.swaps.Quote(from, amount)
}

func (a *API) SwapHistory(ctx context.Context, accountID int64, limit, offset int) ([]dswap.Transaction, error) {
	return a.swaps.History(ctx, accountID, limit, offset)
}

// AdjustBalance is the privileged manual correction used by operators.
func (a *API) AdjustBalance(ctx context.Context, accountID int64, kind account.BalanceKind, delta decimal.Decimal, operatorID int64) (decimal.Decimal, error) {
	if delta.IsZero() {
		return decimal.Zero, apperrors.NewValidationError("delta", "must not be zero")
	}
	if err := validation.ValidateAmountScale(delta, "delta"); err != nil {
		return decimal.Zero, apperrors.NewValidationError("delta", err.Error())
	}
	op := operatorID
	balance, err := a.ledger.Adjust(ctx, accountID, kind, delta, ledgersvc.Meta{Reason: dledger.ReasonAdjust, OperatorID: &op})
	if err != nil {
		return decimal.Zero, err
	}
	a.log.Info().
		Int64("account_id", accountID).
		Int64("operator_id", operatorID).
		Str("kind", string(kind)).
		Str("delta", delta.String()).
		Msg("Balance adjusted by operator")
	a.publish(ctx, events.BalanceAdjusted, accountID, map[string]string{
		"kind":    string(kind),
		"delta":   delta.String(),
		"balance": balance.String(),
	})
	return balance, nil
}

func (a *API) ToggleAccountStatus(ctx context.Context, accountID int64) (*account.Account, error) {
	acc, err := a.ledger.Toggle(ctx, accountID)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.AccountToggled, accountID, map[string]bool{"is_active": acc.IsActive})
	return acc, nil
}

func (a *API) GetAdminStats(ctx context.Context) (*stats.Snapshot, error) {
	return a.stats.Get(ctx)
}

// publish never fails the operation that already committed.
func (a *API) publish(ctx context.Context, t events.Type, accountID int64, payload interface{}) {
	if a.events == nil {
		return
	}
	e := events.Event{Type: t, AccountID: accountID, Payload: payload, At: time.Now().UTC()}
	if err := a.events.Publish(ctx, e); err != nil {
		a.log.Warn().Err(err).Str("event", string(t)).Int64("account_id", accountID).Msg("Failed to publish event")
	}
}
