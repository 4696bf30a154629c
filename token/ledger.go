// Package token implements the WASHA governance token: a conserved balance
// table whose voting weight follows delegation rather than raw balances.
package token

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"washika-dao/access"
	"washika-dao/logger"
	"washika-dao/models"
	"washika-dao/repository"
)

// Store is the part of the repository the ledger reads and writes
type Store interface {
	repository.ChainStore
	repository.TokenStore
	repository.CheckpointStore
	Authority() (models.Principal, error)
}

// Ledger applies token operations to a single transaction-bound store.
// It performs no locking; atomicity comes from the enclosing transaction.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Mint creates amount new tokens for to. Only the governance authority may mint.
func (l *Ledger) Mint(caller, to models.Principal, amount uint64) error {
	authority, err := l.store.Authority()
	if err != nil {
		return err
	}
	if err := access.Check(access.OpMint, caller, authority, ""); err != nil {
		return err
	}
	if !to.Valid() {
		return models.ErrInvalidPrincipal
	}
	if amount == 0 {
		return models.ErrInvalidAmount
	}

	supply, err := l.store.TotalSupply()
	if err != nil {
		return err
	}
	if supply > math.MaxUint64-amount {
		return fmt.Errorf("%w: total supply overflow", models.ErrInvalidAmount)
	}
	balance, err := l.store.Balance(to)
	if err != nil {
		return err
	}
	if err := l.store.SetBalance(to, balance+amount); err != nil {
		return err
	}
	if err := l.store.SetTotalSupply(supply + amount); err != nil {
		return err
	}

	delegatee, err := l.store.Delegate(to)
	if err != nil {
		return err
	}
	if err := l.moveDelegates(models.NoDelegate, delegatee, amount); err != nil {
		return err
	}

	logger.Logger.Info("Minted tokens",
		zap.String("to", string(to)), zap.Uint64("amount", amount))
	return nil
}

// Burn destroys amount of the caller's own tokens
func (l *Ledger) Burn(caller models.Principal, amount uint64) error {
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	balance, err := l.store.Balance(caller)
	if err != nil {
		return err
	}
	if amount > balance {
		return models.ErrInsufficientBalance
	}
	supply, err := l.store.TotalSupply()
	if err != nil {
		return err
	}
	if err := l.store.SetBalance(caller, balance-amount); err != nil {
		return err
	}
	if err := l.store.SetTotalSupply(supply - amount); err != nil {
		return err
	}

	delegatee, err := l.store.Delegate(caller)
	if err != nil {
		return err
	}
	if err := l.moveDelegates(delegatee, models.NoDelegate, amount); err != nil {
		return err
	}

	logger.Logger.Info("Burned tokens",
		zap.String("from", string(caller)), zap.Uint64("amount", amount))
	return nil
}

// Transfer moves amount from from to to. Voting weight moves between their
// delegatees, not between from and to themselves.
func (l *Ledger) Transfer(caller models.Principal, amount uint64, from, to models.Principal, memo string) error {
	if err := access.Check(access.OpTransfer, caller, "", from); err != nil {
		return err
	}
	if !to.Valid() {
		return models.ErrInvalidPrincipal
	}
	if amount == 0 {
		return models.ErrInvalidAmount
	}
	fromBalance, err := l.store.Balance(from)
	if err != nil {
		return err
	}
	if amount > fromBalance {
		return models.ErrInsufficientBalance
	}
	if err := l.store.SetBalance(from, fromBalance-amount); err != nil {
		return err
	}
	// read after the debit so a self-transfer nets to zero
	toBalance, err := l.store.Balance(to)
	if err != nil {
		return err
	}
	if err := l.store.SetBalance(to, toBalance+amount); err != nil {
		return err
	}

	fromDelegatee, err := l.store.Delegate(from)
	if err != nil {
		return err
	}
	toDelegatee, err := l.store.Delegate(to)
	if err != nil {
		return err
	}
	if err := l.moveDelegates(fromDelegatee, toDelegatee, amount); err != nil {
		return err
	}

	logger.Logger.Info("Transferred tokens",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Uint64("amount", amount),
		zap.String("memo", memo))
	return nil
}

// Delegate points the caller's voting weight at to. Repeating the current
// delegatee fails with ErrSelfRedelegation; any other target, including the
// caller itself, is accepted.
func (l *Ledger) Delegate(caller, to models.Principal) error {
	if !to.Valid() {
		return models.ErrInvalidPrincipal
	}
	current, err := l.store.Delegate(caller)
	if err != nil {
		return err
	}
	if to == current {
		return models.ErrSelfRedelegation
	}
	balance, err := l.store.Balance(caller)
	if err != nil {
		return err
	}
	if err := l.store.SetDelegate(caller, to); err != nil {
		return err
	}
	if err := l.moveDelegates(current, to, balance); err != nil {
		return err
	}

	logger.Logger.Info("Delegated voting power",
		zap.String("delegator", string(caller)),
		zap.String("from", string(current)),
		zap.String("to", string(to)),
		zap.Uint64("votes", balance))
	return nil
}

func (l *Ledger) Balance(p models.Principal) (uint64, error) {
	return l.store.Balance(p)
}

func (l *Ledger) TotalSupply() (uint64, error) {
	return l.store.TotalSupply()
}

func (l *Ledger) DelegateOf(p models.Principal) (models.Principal, error) {
	return l.store.Delegate(p)
}

// Account gathers the dashboard view of p
func (l *Ledger) Account(p models.Principal) (models.Account, error) {
	acct := models.Account{Principal: p}
	var err error
	if acct.Balance, err = l.store.Balance(p); err != nil {
		return acct, err
	}
	if acct.Delegate, err = l.store.Delegate(p); err != nil {
		return acct, err
	}
	if acct.CurrentVotes, err = l.CurrentVotes(p); err != nil {
		return acct, err
	}
	return acct, nil
}
