package swap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/common/validation"
	"tera-rewards-backend/internal/domain/account"
	dledger "tera-rewards-backend/internal/domain/ledger"
	domain "tera-rewards-backend/internal/domain/swap"
	"tera-rewards-backend/internal/domain/txn"
	ledgersvc "tera-rewards-backend/internal/service/ledger"
)

// Ledger is the balance mutation the engine needs.
type Ledger interface {
	Adjust(ctx context.Context, accountID int64, kind account.BalanceKind, delta decimal.Decimal, meta ledgersvc.Meta) (decimal.Decimal, error)
}

// Rates is the fixed exchange table.
type Rates struct {
	TonToTera decimal.Decimal
	TeraToTon decimal.Decimal
	FeeRate   decimal.Decimal
}

// Rate returns the multiplier applied to amounts leaving from.
func (r Rates) Rate(from domain.Currency) decimal.Decimal {
	switch from {
	case domain.CurrencyTON:
		return r.TonToTera
	case domain.CurrencyTERA:
		return r.TeraToTon
	}
	return decimal.Zero
}

// Quote is the result of pricing a swap.
type Quote struct {
	From   domain.Currency `json:"from_currency"`
	To     domain.Currency `json:"to_currency"`
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
	Rate   decimal.Decimal `json:"rate"`
	Net    decimal.Decimal `json:"net_amount"`
}

// Service converts between TON and TERA balances.
type Service struct {
	tx     txn.Manager
	ledger Ledger
	swaps  domain.Repository
	rates  Rates
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(tx txn.Manager, ledger Ledger, swaps domain.Repository, rates Rates) *Service {
	return &Service{
		tx:     tx,
		ledger: ledger,
		swaps:  swaps,
		rates:  rates,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logger.Component("swap"),
	}
}

// Quote prices a swap: fee = amount × feeRate, net = (amount − fee) × rate.
func (s *Service) Quote(from domain.Currency, amount decimal.Decimal) (*Quote, error) {
	from, err := domain.ParseCurrency(string(from))
	if err != nil {
		return nil, apperrors.NewValidationError("from_currency", err.Error())
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be positive")
	}
	if err := validation.ValidateAmountScale(amount, "amount"); err != nil {
		return nil, apperrors.NewValidationError("amount", err.Error())
	}
	fee := amount.Mul(s.rates.FeeRate).Truncate(9)
	rate := s.rates.Rate(from)
	net := amount.Sub(fee).Mul(rate).Truncate(9)
	if !net.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "too small to swap")
	}
	return &Quote{From: from, To: from.Counterpart(), Amount: amount, Fee: fee, Rate: rate, Net: net}, nil
}

// Swap debits from by amount and credits the counterpart by the net amount in
// one transaction.
func (s *Service) Swap(ctx context.Context, accountID int64, from domain.Currency, amount decimal.Decimal) (*domain.Transaction, error) {
	q, err := s.Quote(from, amount)
	if err != nil {
		return nil, err
	}
	t := &domain.Transaction{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		FromCurrency: q.From,
		ToCurrency:   q.To,
		Amount:       q.Amount,
		Fee:          q.Fee,
		Rate:         q.Rate,
		NetAmount:    q.Net,
		CreatedAt:    s.now(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		debit := ledgersvc.Meta{Reason: dledger.ReasonSwapDebit, Reference: t.ID}
		if _, err := s.ledger.Adjust(ctx, accountID, q.From.Balance(), q.Amount.Neg(), debit); err != nil {
			return err
		}
		credit := ledgersvc.Meta{Reason: dledger.ReasonSwapCredit, Reference: t.ID}
		if _, err := s.ledger.Adjust(ctx, accountID, q.To.Balance(), q.Net, credit); err != nil {
			return err
		}
		if err := s.swaps.Create(ctx, t); err != nil {
			return apperrors.NewDatabaseError("record swap", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("account_id", accountID).
		Str("from", string(t.FromCurrency)).
		Str("amount", t.Amount.String()).
		Str("net_amount", t.NetAmount.String()).
		Msg("Swap executed")
	return t, nil
}

// History lists the swaps of an account, newest first.
func (s *Service) History(ctx context.Context, accountID int64, limit, offset int) ([]domain.Transaction, error) {
	out, err := s.swaps.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list swaps", err)
	}
	return out, nil
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }
