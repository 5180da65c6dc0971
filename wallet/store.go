/*
store.go - Persistence contract for the ledger core

PURPOSE:
  Defines the interface between the ledger logic and the database. The core
  never talks to a driver directly; every multi-step operation runs against
  a Store handed to it inside one transactional scope.

APPEND-ONLY CONTRACT:
  Entries have no update path. The only deletion is DeleteEntries, and the
  Archiver calls it strictly after summaries and archived copies are durable.
  UpdateBalance rewrites the cached balance column and nothing else.

TRANSACTIONAL SCOPE:
  TxStore.WithTx executes a function against a Store view whose writes
  commit together or not at all. Deposit, withdraw, transfer, and the
  archive-then-sum recalculation each run as one such unit. Implementations
  must serialize concurrent units touching the same account.

IMPLEMENTATIONS:
  - wallet/store:   in-memory (tests, dev)
  - store/sqlite:   SQLite, WAL mode, single-writer
  - store/postgres: PostgreSQL, serializable isolation
*/
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence collaborator. All time ranges are half-open on
// the archive boundary: EntriesOlderThan is strict (< cutoff),
// EntriesNewerThanOrEqual is inclusive (>= cutoff), so the two partitions
// are disjoint and complete.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, a Account) error
	Account(ctx context.Context, id AccountID) (Account, error)
	AccountByOwner(ctx context.Context, ownerID string) (Account, error)
	ListAccountIDs(ctx context.Context) ([]AccountID, error)
	// UpdateBalance rewrites the cached balance. Only the balance
	// calculator calls this.
	UpdateBalance(ctx context.Context, id AccountID, balance decimal.Decimal) error

	// Entries (append-only log)
	AppendEntry(ctx context.Context, e Entry) error
	EntriesBetween(ctx context.Context, id AccountID, from, to time.Time) ([]Entry, error)
	EntriesOlderThan(ctx context.Context, id AccountID, cutoff time.Time) ([]Entry, error)
	EntriesNewerThanOrEqual(ctx context.Context, id AccountID, cutoff time.Time) ([]Entry, error)

	// Summaries (created by the archiver, immutable, never deleted)
	SaveSummaries(ctx context.Context, summaries []PeriodSummary) error
	SummariesByAccount(ctx context.Context, id AccountID) ([]PeriodSummary, error)

	// Archived copies (history only)
	SaveArchivedCopies(ctx context.Context, copies []ArchivedEntry) error
	ArchivedBetween(ctx context.Context, id AccountID, from, to time.Time) ([]ArchivedEntry, error)

	// DeleteEntries removes compacted originals. The archiver calls this
	// last; it must be safe to retry (missing ids are not an error).
	DeleteEntries(ctx context.Context, ids []EntryID) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within one transaction. If fn returns an error the
	// transaction is rolled back in full; no partial entries stay visible.
	WithTx(ctx context.Context, fn func(Store) error) error
}
