// Package memory is a process-local implementation of every repository. A single
// mutex serializes transactions; a failed transaction restores the snapshot taken
// when it began, so no partial mutation is ever observable.
package memory

import (
	"context"
	"sync"

	"tera-rewards-backend/internal/domain/account"
	"tera-rewards-backend/internal/domain/deposit"
	"tera-rewards-backend/internal/domain/ledger"
	"tera-rewards-backend/internal/domain/mining"
	"tera-rewards-backend/internal/domain/referral"
	"tera-rewards-backend/internal/domain/swap"
	"tera-rewards-backend/internal/domain/withdrawal"
)

type txKey struct{}

type state struct {
	accounts      map[int64]*account.Account
	referralCodes map[string]int64
	sessions      map[string]*mining.Session
	deposits      map[string]*deposit.Request
	txHashes      map[string]string
	withdrawals   map[string]*withdrawal.Request
	swaps         []swap.Transaction
	edges         map[int64]*referral.Edge
	entries       []ledger.Entry
}

func newState() *state {
	return &state{
		accounts:      make(map[int64]*account.Account),
		referralCodes: make(map[string]int64),
		sessions:      make(map[string]*mining.Session),
		deposits:      make(map[string]*deposit.Request),
		txHashes:      make(map[string]string),
		withdrawals:   make(map[string]*withdrawal.Request),
		edges:         make(map[int64]*referral.Edge),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v.Clone()
	}
	for k, v := range s.referralCodes {
		c.referralCodes[k] = v
	}
	for k, v := range s.sessions {
		cp := *v
		c.sessions[k] = &cp
	}
	for k, v := range s.deposits {
		cp := *v
		c.deposits[k] = &cp
	}
	for k, v := range s.txHashes {
		c.txHashes[k] = v
	}
	for k, v := range s.withdrawals {
		cp := *v
		c.withdrawals[k] = &cp
	}
	// swaps and entries are append-only: the snapshot shares the backing array
	// with its capacity capped, so rolled back appends are never visible to it.
	c.swaps = s.swaps[:len(s.swaps):len(s.swaps)]
	for k, v := range s.edges {
		cp := *v
		c.edges[k] = &cp
	}
	c.entries = s.entries[:len(s.entries):len(s.entries)]
	return c
}

// Store holds all tables in memory.
type Store struct {
	mu   sync.Mutex
	data *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

// WithinTx implements txn.Manager.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// view runs fn with the store locked unless ctx already holds the lock.
func (s *Store) view(ctx context.Context, fn func(d *state) error) error {
	if inTx(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// Mining returns the mining session repository view of the store.
func (s *Store) Mining() *MiningRepository { return &MiningRepository{s: s} }

// Deposits returns the deposit request repository view of the store.
func (s *Store) Deposits() *DepositRepository { return &DepositRepository{s: s} }

// Withdrawals returns the withdrawal request repository view of the store.
func (s *Store) Withdrawals() *WithdrawalRepository { return &WithdrawalRepository{s: s} }

// Swaps returns the swap audit repository view of the store.
func (s *Store) Swaps() *SwapRepository { return &SwapRepository{s: s} }

// Referrals returns the referral edge repository view of the store.
func (s *Store) Referrals() *ReferralRepository { return &ReferralRepository{s: s} }

// Ledger returns the ledger entry repository view of the store.
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
