/*
Package sqlite provides a SQLite-backed implementation of wallet.TxStore.

KEY TABLES:
  accounts:         identity + cached balance (rewritten only via UpdateBalance)
  entries:          the live append-only ledger
  period_summaries: compacted totals, never deleted
  archived_entries: relocated entries kept for history

APPEND-ONLY ENFORCEMENT:
  No UPDATE statement touches entries. The only DELETE is DeleteEntries,
  which the archiver runs strictly after summaries and copies are durable.

WAL MODE:
  The database is opened with WAL for better concurrency: readers don't
  block, one writer at a time, better crash recovery.

CONCURRENCY:
  WithTx holds a writer mutex for the whole unit on top of the SQL
  transaction. Every multi-step unit is serialized, which is the store-level
  serialization the ledger core requires; with a single writer, transfer
  lock ordering cannot deadlock.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// Store implements wallet.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
	mu sync.Mutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, queries: queries{db: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL,
		currency TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Live ledger (append-only; deletion happens only through compaction)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		counterparty_id TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_account_timestamp
		ON entries(account_id, timestamp);

	CREATE TABLE IF NOT EXISTS period_summaries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		total_amount TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_account
		ON period_summaries(account_id);

	CREATE TABLE IF NOT EXISTS archived_entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		counterparty_id TEXT,
		timestamp TEXT NOT NULL,
		archived_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archived_account_timestamp
		ON archived_entries(account_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a single SQL transaction under the writer lock.
func (s *Store) WithTx(ctx context.Context, fn func(wallet.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// QUERIES - Store methods shared by the connection and transaction views
// =============================================================================

type queries struct {
	db dbtx
}

func (q *queries) CreateAccount(ctx context.Context, a wallet.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, balance, currency, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Balance.String(), a.Currency, a.Active, fmtTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (q *queries) Account(ctx context.Context, id wallet.AccountID) (wallet.Account, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, owner_id, balance, currency, active, created_at
		FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (q *queries) AccountByOwner(ctx context.Context, ownerID string) (wallet.Account, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, owner_id, balance, currency, active, created_at
		FROM accounts WHERE owner_id = ?`, ownerID)
	return scanAccount(row)
}

func (q *queries) ListAccountIDs(ctx context.Context) ([]wallet.AccountID, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var ids []wallet.AccountID
	for rows.Next() {
		var id wallet.AccountID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *queries) UpdateBalance(ctx context.Context, id wallet.AccountID, balance decimal.Decimal) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ?`, balance.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wallet.ErrAccountNotFound
	}
	return nil
}

func (q *queries) AppendEntry(ctx context.Context, e wallet.Entry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO entries (id, account_id, amount, kind, counterparty_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, e.Amount.String(), e.Kind,
		nullString(string(e.CounterpartyID)), fmtTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

const entryColumns = `id, account_id, amount, kind, counterparty_id, timestamp`

func (q *queries) EntriesBetween(ctx context.Context, id wallet.AccountID, from, to time.Time) ([]wallet.Entry, error) {
	return q.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE account_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`, id, fmtTime(from), fmtTime(to))
}

func (q *queries) EntriesOlderThan(ctx context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	return q.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE account_id = ? AND timestamp < ?
		ORDER BY timestamp ASC`, id, fmtTime(cutoff))
}

func (q *queries) EntriesNewerThanOrEqual(ctx context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	return q.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE account_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC`, id, fmtTime(cutoff))
}

func (q *queries) SaveSummaries(ctx context.Context, summaries []wallet.PeriodSummary) error {
	for _, ps := range summaries {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO period_summaries (id, account_id, total_amount, period_start, period_end, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ps.ID, ps.AccountID, ps.TotalAmount.String(),
			fmtTime(ps.PeriodStart), fmtTime(ps.PeriodEnd), fmtTime(ps.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to save summary: %w", err)
		}
	}
	return nil
}

func (q *queries) SummariesByAccount(ctx context.Context, id wallet.AccountID) ([]wallet.PeriodSummary, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, account_id, total_amount, period_start, period_end, created_at
		FROM period_summaries WHERE account_id = ?
		ORDER BY period_start ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var result []wallet.PeriodSummary
	for rows.Next() {
		var ps wallet.PeriodSummary
		var total, start, end, created string
		if err := rows.Scan(&ps.ID, &ps.AccountID, &total, &start, &end, &created); err != nil {
			return nil, err
		}
		if ps.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		if ps.PeriodStart, err = parseTime(start); err != nil {
			return nil, err
		}
		if ps.PeriodEnd, err = parseTime(end); err != nil {
			return nil, err
		}
		if ps.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		result = append(result, ps)
	}
	return result, rows.Err()
}

func (q *queries) SaveArchivedCopies(ctx context.Context, copies []wallet.ArchivedEntry) error {
	for _, c := range copies {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO archived_entries (id, account_id, amount, kind, counterparty_id, timestamp, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.AccountID, c.Amount.String(), c.Kind,
			nullString(string(c.CounterpartyID)), fmtTime(c.Timestamp), fmtTime(c.ArchivedAt))
		if err != nil {
			return fmt.Errorf("failed to save archived entry: %w", err)
		}
	}
	return nil
}

func (q *queries) ArchivedBetween(ctx context.Context, id wallet.AccountID, from, to time.Time) ([]wallet.ArchivedEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, account_id, amount, kind, counterparty_id, timestamp, archived_at
		FROM archived_entries
		WHERE account_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`, id, fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query archived entries: %w", err)
	}
	defer rows.Close()

	var result []wallet.ArchivedEntry
	for rows.Next() {
		var a wallet.ArchivedEntry
		var amount, ts, archivedAt string
		var counterparty sql.NullString
		if err := rows.Scan(&a.ID, &a.AccountID, &amount, &a.Kind, &counterparty, &ts, &archivedAt); err != nil {
			return nil, err
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		a.CounterpartyID = wallet.AccountID(counterparty.String)
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if a.ArchivedAt, err = parseTime(archivedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (q *queries) DeleteEntries(ctx context.Context, ids []wallet.EntryID) error {
	for _, id := range ids {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func (q *queries) queryEntries(ctx context.Context, query string, args ...any) ([]wallet.Entry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var result []wallet.Entry
	for rows.Next() {
		var e wallet.Entry
		var amount, ts string
		var counterparty sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &amount, &e.Kind, &counterparty, &ts); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		e.CounterpartyID = wallet.AccountID(counterparty.String)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanAccount(row *sql.Row) (wallet.Account, error) {
	var a wallet.Account
	var balance, created string
	err := row.Scan(&a.ID, &a.OwnerID, &balance, &a.Currency, &a.Active, &created)
	if err == sql.ErrNoRows {
		return wallet.Account{}, wallet.ErrAccountNotFound
	}
	if err != nil {
		return wallet.Account{}, fmt.Errorf("failed to scan account: %w", err)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return wallet.Account{}, err
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return wallet.Account{}, err
	}
	return a, nil
}

// timeLayout keeps a fixed-width fraction so stored timestamps compare
// correctly as strings (RFC3339Nano drops trailing zeros and would not).
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
