/*
Package postgres provides a PostgreSQL-backed implementation of
wallet.TxStore for multi-node deployments.

Unlike the sqlite store there is no process-level writer lock: units run as
SQL transactions at Serializable isolation, so concurrent units touching
the same account conflict at commit instead of interleaving. Serialization
failures surface to the caller; retrying is caller policy, the core never
retries on its own.

Schema (apply once, e.g. via a migration tool):

	CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL UNIQUE,
		balance NUMERIC NOT NULL,
		currency TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		amount NUMERIC NOT NULL,
		kind TEXT NOT NULL,
		counterparty_id TEXT,
		timestamp TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX idx_entries_account_timestamp ON entries(account_id, timestamp);
	CREATE TABLE period_summaries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		total_amount NUMERIC NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX idx_summaries_account ON period_summaries(account_id);
	CREATE TABLE archived_entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		amount NUMERIC NOT NULL,
		kind TEXT NOT NULL,
		counterparty_id TEXT,
		timestamp TIMESTAMPTZ NOT NULL,
		archived_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX idx_archived_account_timestamp ON archived_entries(account_id, timestamp);
*/
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// Store implements wallet.TxStore using PostgreSQL.
type Store struct {
	queries
	db *sql.DB
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New connects with a lib/pq connection string (or DATABASE_URL value).
func New(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db, queries: queries{db: db}}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside one serializable transaction.
func (s *Store) WithTx(ctx context.Context, fn func(wallet.Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type queries struct {
	db dbtx
}

func (q *queries) CreateAccount(ctx context.Context, a wallet.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, balance, currency, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.OwnerID, a.Balance.String(), a.Currency, a.Active, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (q *queries) Account(ctx context.Context, id wallet.AccountID) (wallet.Account, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, owner_id, balance, currency, active, created_at
		FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (q *queries) AccountByOwner(ctx context.Context, ownerID string) (wallet.Account, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, owner_id, balance, currency, active, created_at
		FROM accounts WHERE owner_id = $1`, ownerID)
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
		`UPDATE accounts SET balance = $1 WHERE id = $2`, balance.String(), id)
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
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		e.ID, e.AccountID, e.Amount.String(), e.Kind, string(e.CounterpartyID), e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

const entryColumns = `id, account_id, amount, kind, counterparty_id, timestamp`

func (q *queries) EntriesBetween(ctx context.Context, id wallet.AccountID, from, to time.Time) ([]wallet.Entry, error) {
	return q.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE account_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC`, id, from.UTC(), to.UTC())
}

func (q *queries) EntriesOlderThan(ctx context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	return q.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE account_id = $1 AND timestamp < $2
		ORDER BY timestamp ASC`, id, cutoff.UTC())
}

func (q *queries) EntriesNewerThanOrEqual(ctx context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	return q.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE account_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC`, id, cutoff.UTC())
}

func (q *queries) SaveSummaries(ctx context.Context, summaries []wallet.PeriodSummary) error {
	for _, ps := range summaries {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO period_summaries (id, account_id, total_amount, period_start, period_end, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ps.ID, ps.AccountID, ps.TotalAmount.String(),
			ps.PeriodStart.UTC(), ps.PeriodEnd.UTC(), ps.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to save summary: %w", err)
		}
	}
	return nil
}

func (q *queries) SummariesByAccount(ctx context.Context, id wallet.AccountID) ([]wallet.PeriodSummary, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, account_id, total_amount, period_start, period_end, created_at
		FROM period_summaries WHERE account_id = $1
		ORDER BY period_start ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var result []wallet.PeriodSummary
	for rows.Next() {
		var ps wallet.PeriodSummary
		var total string
		if err := rows.Scan(&ps.ID, &ps.AccountID, &total, &ps.PeriodStart, &ps.PeriodEnd, &ps.CreatedAt); err != nil {
			return nil, err
		}
		if ps.TotalAmount, err = decimal.NewFromString(total); err != nil {
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
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
			c.ID, c.AccountID, c.Amount.String(), c.Kind,
			string(c.CounterpartyID), c.Timestamp.UTC(), c.ArchivedAt.UTC())
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
		WHERE account_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC`, id, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query archived entries: %w", err)
	}
	defer rows.Close()

	var result []wallet.ArchivedEntry
	for rows.Next() {
		var a wallet.ArchivedEntry
		var amount string
		var counterparty sql.NullString
		if err := rows.Scan(&a.ID, &a.AccountID, &amount, &a.Kind, &counterparty, &a.Timestamp, &a.ArchivedAt); err != nil {
			return nil, err
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		a.CounterpartyID = wallet.AccountID(counterparty.String)
		result = append(result, a)
	}
	return result, rows.Err()
}

func (q *queries) DeleteEntries(ctx context.Context, ids []wallet.EntryID) error {
	for _, id := range ids {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
	}
	return nil
}

func (q *queries) queryEntries(ctx context.Context, query string, args ...any) ([]wallet.Entry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var result []wallet.Entry
	for rows.Next() {
		var e wallet.Entry
		var amount string
		var counterparty sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &amount, &e.Kind, &counterparty, &e.Timestamp); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		e.CounterpartyID = wallet.AccountID(counterparty.String)
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanAccount(row *sql.Row) (wallet.Account, error) {
	var a wallet.Account
	var balance string
	err := row.Scan(&a.ID, &a.OwnerID, &balance, &a.Currency, &a.Active, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return wallet.Account{}, wallet.ErrAccountNotFound
	}
	if err != nil {
		return wallet.Account{}, fmt.Errorf("failed to scan account: %w", err)
	}
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return wallet.Account{}, err
	}
	return a, nil
}
