/*
Package wallet provides the ledger core: an append-only transaction log per
account, balances derived from that log, and periodic compaction of old
entries into period summaries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: identity + cached balance (derived, never caller-mutated)
  - Entry: an immutable ledger record (signed amount, kind, counterparty)
  - PeriodSummary: the compacted value of a batch of archived entries
  - ArchivedEntry: a relocated entry kept for history, not for balances

DESIGN PRINCIPLES:
  1. The log is the truth: Account.Balance is a cache rewritten only by the
     balance calculator, and for every account
       balance == sum(summary totals) + sum(unarchived entry amounts)
  2. Immutability: entries are never updated; compaction relocates them.
  3. Precision: shopspring/decimal for all money, never float64.
  4. Type safety: distinct ID types so account and entry IDs cannot mix.

SEE ALSO:
  - store.go: persistence contract the core runs against
  - balance.go: balance recalculation
  - archive.go: compaction of old entries
*/
package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string
type SummaryID string

// NewAccountID returns a fresh random account identifier.
func NewAccountID() AccountID { return AccountID(uuid.NewString()) }

func NewEntryID() EntryID     { return EntryID(uuid.NewString()) }
func NewSummaryID() SummaryID { return SummaryID(uuid.NewString()) }

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is the unit of ownership. Balance is a derived value: it is
// rewritten by BalanceCalculator.Recalculate and by nothing else.
type Account struct {
	ID        AccountID
	OwnerID   string // directory user this account belongs to
	Balance   decimal.Decimal
	Currency  string
	Active    bool
	CreatedAt time.Time
}

// =============================================================================
// ENTRY - Immutable ledger record
// =============================================================================

type EntryKind string

const (
	KindDeposit    EntryKind = "DEPOSIT"
	KindWithdrawal EntryKind = "WITHDRAWAL"
	KindTransfer   EntryKind = "TRANSFER"
)

// Entry is one record in the append-only log. Amount is signed: positive
// credits the account, negative debits it. CounterpartyID is set only for
// transfers and points one way (no back-pointer on the account).
type Entry struct {
	ID             EntryID
	AccountID      AccountID
	Amount         decimal.Decimal
	Kind           EntryKind
	CounterpartyID AccountID // empty unless Kind == KindTransfer
	Timestamp      time.Time
}

// NewEntry builds an entry with a fresh ID.
func NewEntry(accountID AccountID, amount decimal.Decimal, kind EntryKind, at time.Time) Entry {
	return Entry{
		ID:        NewEntryID(),
		AccountID: accountID,
		Amount:    amount,
		Kind:      kind,
		Timestamp: at,
	}
}

// NewTransferEntry builds one leg of a transfer.
func NewTransferEntry(accountID, counterparty AccountID, amount decimal.Decimal, at time.Time) Entry {
	e := NewEntry(accountID, amount, KindTransfer, at)
	e.CounterpartyID = counterparty
	return e
}

// =============================================================================
// PERIOD SUMMARY - Compacted value of archived entries
// =============================================================================

// PeriodSummary carries the total signed amount of a contiguous batch of
// archived entries. Created only by the Archiver, immutable, never deleted.
// Summaries for one account are gap-free and non-overlapping.
type PeriodSummary struct {
	ID          SummaryID
	AccountID   AccountID
	TotalAmount decimal.Decimal
	PeriodStart time.Time // earliest entry timestamp in the batch
	PeriodEnd   time.Time // latest entry timestamp in the batch
	CreatedAt   time.Time
}

// =============================================================================
// ARCHIVED ENTRY - Relocated copy kept for historical query
// =============================================================================

// ArchivedEntry preserves a compacted entry for history listings. Its value
// is already captured in a PeriodSummary, so it never feeds the balance.
type ArchivedEntry struct {
	Entry
	ArchivedAt time.Time
}
