/*
coordinator.go - Atomic balance-affecting operations

PURPOSE:
  Deposit, withdrawal, and transfer, each executed as one all-or-nothing
  unit: append the entry (or both transfer legs), then recalculate the
  affected balance(s), all inside a single store transaction. A partial
  failure rolls the whole unit back; a transfer can never surface with only
  its debit leg written.

PRECONDITIONS:
  - amount > 0 for every operation          -> ErrInvalidAmount
  - withdraw/transfer: balance >= amount    -> ErrInsufficientFunds
  - transfer: from != to                    -> ErrSameAccountTransfer
  - all referenced accounts exist           -> ErrAccountNotFound

  The funds check runs against the balance recalculated inside the unit,
  never against the cached column, so a stale cache cannot authorize an
  overdraft.
*/
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Coordinator orchestrates the balance-affecting operations.
type Coordinator struct {
	Store TxStore
	Calc  *BalanceCalculator

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func NewCoordinator(store TxStore, calc *BalanceCalculator) *Coordinator {
	return &Coordinator{Store: store, Calc: calc}
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Deposit appends one DEPOSIT entry (+amount) and recalculates the balance.
func (c *Coordinator) Deposit(ctx context.Context, id AccountID, amount decimal.Decimal) (Account, error) {
	if !amount.IsPositive() {
		return Account{}, &InvalidAmountError{Op: "deposit", Amount: amount}
	}

	var acct Account
	err := c.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.Account(ctx, id); err != nil {
			return err
		}
		if err := s.AppendEntry(ctx, NewEntry(id, amount, KindDeposit, c.now())); err != nil {
			return err
		}
		var err error
		acct, err = c.Calc.Recalculate(ctx, s, id)
		return err
	})
	return acct, err
}

// Withdraw appends one WITHDRAWAL entry (-amount) and recalculates.
func (c *Coordinator) Withdraw(ctx context.Context, id AccountID, amount decimal.Decimal) (Account, error) {
	if !amount.IsPositive() {
		return Account{}, &InvalidAmountError{Op: "withdraw", Amount: amount}
	}

	var acct Account
	err := c.Store.WithTx(ctx, func(s Store) error {
		fresh, err := c.Calc.Recalculate(ctx, s, id)
		if err != nil {
			return err
		}
		if fresh.Balance.LessThan(amount) {
			return &InsufficientFundsError{AccountID: id, Available: fresh.Balance, Requested: amount}
		}
		if err := s.AppendEntry(ctx, NewEntry(id, amount.Neg(), KindWithdrawal, c.now())); err != nil {
			return err
		}
		acct, err = c.Calc.Recalculate(ctx, s, id)
		return err
	})
	return acct, err
}

// TransferResult carries both accounts with their post-transfer balances.
type TransferResult struct {
	From Account
	To   Account
}

// Transfer moves amount from one account to another. Exactly two entries
// are appended, additive inverses of each other, each referencing the other
// account as counterparty. Both become durable together or neither does.
func (c *Coordinator) Transfer(ctx context.Context, fromID, toID AccountID, amount decimal.Decimal) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, &InvalidAmountError{Op: "transfer", Amount: amount}
	}
	if fromID == toID {
		return TransferResult{}, ErrSameAccountTransfer
	}

	var res TransferResult
	err := c.Store.WithTx(ctx, func(s Store) error {
		from, err := c.Calc.Recalculate(ctx, s, fromID)
		if err != nil {
			return err
		}
		if _, err := s.Account(ctx, toID); err != nil {
			return err
		}
		if from.Balance.LessThan(amount) {
			return &InsufficientFundsError{AccountID: fromID, Available: from.Balance, Requested: amount}
		}

		at := c.now()
		if err := s.AppendEntry(ctx, NewTransferEntry(fromID, toID, amount.Neg(), at)); err != nil {
			return err
		}
		if err := s.AppendEntry(ctx, NewTransferEntry(toID, fromID, amount, at)); err != nil {
			return err
		}

		if res.From, err = c.Calc.Recalculate(ctx, s, fromID); err != nil {
			return err
		}
		res.To, err = c.Calc.Recalculate(ctx, s, toID)
		return err
	})
	return res, err
}
