package referral

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tera-rewards-backend/internal/common/errors"
	"tera-rewards-backend/internal/common/logger"
	"tera-rewards-backend/internal/common/validation"
	"tera-rewards-backend/internal/domain/account"
	dledger "tera-rewards-backend/internal/domain/ledger"
	domain "tera-rewards-backend/internal/domain/referral"
	"tera-rewards-backend/internal/domain/txn"
	ledgersvc "tera-rewards-backend/internal/service/ledger"
)

// maxChainDepth bounds the ancestor walk of the cycle check.
const maxChainDepth = 10000

// Ledger is the balance mutation the engine needs.
type Ledger interface {
	Adjust(ctx context.Context, accountID int64, kind account.BalanceKind, delta decimal.Decimal, meta ledgersvc.Meta) (decimal.Decimal, error)
}

// Credit is one commission paid by a cascade.
type Credit struct {
	Level      int             `json:"level"`
	AccountID  int64           `json:"account_id"`
	ReferredID int64           `json:"referred_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// Node is a direct referral with the bonus its referrer earned through it.
type Node struct {
	AccountID   int64           `json:"account_id"`
	BonusAmount decimal.Decimal `json:"bonus_amount"`
	IsRewarded  bool            `json:"is_rewarded"`
	JoinedAt    time.Time       `json:"joined_at"`
}

// Service maintains the referrer forest and pays cascading commissions.
type Service struct {
	tx       txn.Manager
	accounts account.Repository
	edges    domain.Repository
	ledger   Ledger
	rates    []decimal.Decimal
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates the engine; rates[i] is the commission of level i+1.
func NewService(tx txn.Manager, accounts account.Repository, edges domain.Repository, ledger Ledger, rates []decimal.Decimal) *Service {
	if len(rates) > domain.MaxLevels {
		rates = rates[:domain.MaxLevels]
	}
	return &Service{
		tx:       tx,
		accounts: accounts,
		edges:    edges,
		ledger:   ledger,
		rates:    append([]decimal.Decimal(nil), rates...),
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Component("referral"),
	}
}

// Link makes the owner of code the referrer of accountID. It runs once per
// account and refuses self-referral and links that would close a cycle.
func (s *Service) Link(ctx context.Context, accountID int64, code string) (*domain.Edge, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validation.ValidateReferralCode(code); err != nil {
		return nil, apperrors.NewValidationError("referral_code", err.Error())
	}
	var edge *domain.Edge
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return apperrors.NewDatabaseError("lock account", err)
		}
		if a == nil {
			return apperrors.NewNotFoundError("account", accountID)
		}
		if a.ReferredBy != nil {
			return apperrors.NewValidationError("referral_code", "account already has a referrer")
		}
		referrer, err := s.accounts.GetByReferralCode(ctx, code)
		if err != nil {
			return apperrors.NewDatabaseError("get referrer", err)
		}
		if referrer == nil {
			return apperrors.NewNotFoundError("referral code", code)
		}
		if referrer.ID == accountID {
			return apperrors.NewValidationError("referral_code", "self-referral is not allowed")
		}
		if err := s.ensureNotDescendant(ctx, accountID, referrer); err != nil {
			return err
		}

		if err := s.accounts.SetReferrer(ctx, accountID, referrer.ID); err != nil {
			return apperrors.NewDatabaseError("set referrer", err)
		}
		now := s.now()
		edge = &domain.Edge{
			ReferrerID:  referrer.ID,
			ReferredID:  accountID,
			BonusAmount: decimal.Zero,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.edges.Create(ctx, edge); err != nil {
			return apperrors.NewDatabaseError("create referral edge", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", accountID).Int64("referrer_id", edge.ReferrerID).Msg("Referrer linked")
	return edge, nil
}

// ensureNotDescendant walks up from the prospective referrer; meeting accountID
// means the referrer is one of its descendants.
func (s *Service) ensureNotDescendant(ctx context.Context, accountID int64, referrer *account.Account) error {
	cur := referrer
	for depth := 0; cur != nil && cur.ReferredBy != nil; depth++ {
		if *cur.ReferredBy == accountID {
			return apperrors.NewValidationError("referral_code", "referrer is a descendant of this account")
		}
		if depth >= maxChainDepth {
			return apperrors.New(apperrors.ErrCodeInternal, "referral chain too deep")
		}
		next, err := s.accounts.GetByID(ctx, *cur.ReferredBy)
		if err != nil {
			return apperrors.NewDatabaseError("walk referral chain", err)
		}
		cur = next
	}
	return nil
}

// ProcessEvent pays eventAmount × rate[level] to each ancestor of accountID, up
// to the configured depth. The walk stops at the first missing or inactive
// ancestor.
func (s *Service) ProcessEvent(ctx context.Context, accountID int64, eventAmount decimal.Decimal, reference string) ([]Credit, error) {
	if !eventAmount.IsPositive() {
		return nil, nil
	}
	var credits []Credit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		child, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return apperrors.NewDatabaseError("get account", err)
		}
		if child == nil {
			return apperrors.NewNotFoundError("account", accountID)
		}
		for level, rate := range s.rates {
			if child.ReferredBy == nil {
				break
			}
			ancestor, err := s.accounts.GetByID(ctx, *child.ReferredBy)
			if err != nil {
				return apperrors.NewDatabaseError("get ancestor", err)
			}
			if ancestor == nil || !ancestor.IsActive {
				break
			}
			bonus := eventAmount.Mul(rate).Truncate(9)
			if bonus.IsPositive() {
				meta := ledgersvc.Meta{Reason: dledger.ReasonReferralBonus, Reference: reference}
				if _, err := s.ledger.Adjust(ctx, ancestor.ID, account.BalanceEarningReferral, bonus, meta); err != nil {
					return err
				}
				if err := s.edges.AddBonus(ctx, child.ID, bonus); err != nil {
					return apperrors.NewDatabaseError("add referral bonus", err)
				}
				credits = append(credits, Credit{Level: level + 1, AccountID: ancestor.ID, ReferredID: child.ID, Amount: bonus})
			}
			child = ancestor
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(credits) > 0 {
		s.log.Info().Int64("account_id", accountID).Str("amount", eventAmount.String()).Int("levels", len(credits)).Msg("Referral commissions paid")
	}
	return credits, nil
}

// OnProfit cascades settled mining profit.
func (s *Service) OnProfit(ctx context.Context, accountID int64, profit decimal.Decimal, reference string) error {
	_, err := s.ProcessEvent(ctx, accountID, profit, reference)
	return err
}

// OnDeposit cascades an approved deposit amount.
func (s *Service) OnDeposit(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) error {
	_, err := s.ProcessEvent(ctx, accountID, amount, reference)
	return err
}

// Tree lists the direct referrals of accountID.
func (s *Service) Tree(ctx context.Context, accountID int64) ([]Node, error) {
	edges, err := s.edges.ListByReferrer(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list referrals", err)
	}
	out := make([]Node, 0, len(edges))
	for _, e := range edges {
		out = append(out, Node{AccountID: e.ReferredID, BonusAmount: e.BonusAmount, IsRewarded: e.IsRewarded, JoinedAt: e.CreatedAt})
	}
	return out, nil
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }
