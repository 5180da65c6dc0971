/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All business failures in one closed set. Callers branch on sentinels with
  errors.Is() and pull details out of structured errors with errors.As().
  The core never signals a business-rule violation any other way, and it
  never retries or silently corrects one.

ERROR CATEGORIES:
  1. Precondition violations - InvalidAmount, InsufficientFunds, ...
  2. Archive failures        - ArchiveInconsistency (fatal, aborts deletion)
  3. Enrichment failures     - ExternalLookup (non-fatal, degrades to "N/A")
*/
package wallet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an operation amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientFunds is returned when a debit exceeds the current balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when an account id does not resolve.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when the owner already has an account.
	ErrAccountExists = errors.New("owner already has an account")

	// ErrSameAccountTransfer is returned for a transfer where source and
	// destination are the same account.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	// ErrArchiveInconsistency is fatal: summaries or archived copies could
	// not be made durable, so the deletion step must not run.
	ErrArchiveInconsistency = errors.New("archive inconsistency")

	// ErrExternalLookup marks a failed directory lookup. Non-fatal: history
	// enrichment substitutes a placeholder instead of propagating it.
	ErrExternalLookup = errors.New("external lookup failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports how short the debit was.
type InsufficientFundsError struct {
	AccountID AccountID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %s: available %s, requested %s",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InvalidAmountError reports the rejected amount.
type InvalidAmountError struct {
	Op     string
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s: invalid amount %s", e.Op, e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// ArchiveError reports which account a failed compaction belonged to and
// which step refused.
type ArchiveError struct {
	AccountID AccountID
	Step      string // "summaries", "copies", "delete"
	Err       error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s for %s: %v", e.Step, e.AccountID, e.Err)
}

func (e *ArchiveError) Unwrap() error { return ErrArchiveInconsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSameAccountTransfer) ||
		errors.Is(err, ErrAccountExists)
}

// IsNotFound returns true if the error indicates a missing account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
