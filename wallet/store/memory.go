// Package store provides an in-memory TxStore for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements wallet.TxStore. WithTx takes the writer lock for the
// whole unit and rolls back to a snapshot on error, so units are serialized
// exactly like the single-writer production stores.
type Memory struct {
	mu        sync.RWMutex
	accounts  map[wallet.AccountID]wallet.Account
	byOwner   map[string]wallet.AccountID
	entries   map[wallet.AccountID][]wallet.Entry
	summaries map[wallet.AccountID][]wallet.PeriodSummary
	archived  map[wallet.AccountID][]wallet.ArchivedEntry
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[wallet.AccountID]wallet.Account),
		byOwner:   make(map[string]wallet.AccountID),
		entries:   make(map[wallet.AccountID][]wallet.Entry),
		summaries: make(map[wallet.AccountID][]wallet.PeriodSummary),
		archived:  make(map[wallet.AccountID][]wallet.ArchivedEntry),
	}
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

func (m *Memory) CreateAccount(_ context.Context, a wallet.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(a)
}

func (m *Memory) createAccountLocked(a wallet.Account) error {
	if _, ok := m.byOwner[a.OwnerID]; ok {
		return wallet.ErrAccountExists
	}
	m.accounts[a.ID] = a
	m.byOwner[a.OwnerID] = a.ID
	return nil
}

func (m *Memory) Account(_ context.Context, id wallet.AccountID) (wallet.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(id)
}

func (m *Memory) accountLocked(id wallet.AccountID) (wallet.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return wallet.Account{}, wallet.ErrAccountNotFound
	}
	return a, nil
}

func (m *Memory) AccountByOwner(_ context.Context, ownerID string) (wallet.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountByOwnerLocked(ownerID)
}

func (m *Memory) accountByOwnerLocked(ownerID string) (wallet.Account, error) {
	id, ok := m.byOwner[ownerID]
	if !ok {
		return wallet.Account{}, wallet.ErrAccountNotFound
	}
	return m.accounts[id], nil
}

func (m *Memory) ListAccountIDs(_ context.Context) ([]wallet.AccountID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccountIDsLocked()
}

func (m *Memory) listAccountIDsLocked() ([]wallet.AccountID, error) {
	ids := make([]wallet.AccountID, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) UpdateBalance(_ context.Context, id wallet.AccountID, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateBalanceLocked(id, balance)
}

func (m *Memory) updateBalanceLocked(id wallet.AccountID, balance decimal.Decimal) error {
	a, ok := m.accounts[id]
	if !ok {
		return wallet.ErrAccountNotFound
	}
	a.Balance = balance
	m.accounts[id] = a
	return nil
}

// -----------------------------------------------------------------------------
// Entries
// -----------------------------------------------------------------------------

func (m *Memory) AppendEntry(_ context.Context, e wallet.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntryLocked(e)
}

func (m *Memory) appendEntryLocked(e wallet.Entry) error {
	txs := m.entries[e.AccountID]

	// Keep entries ordered by timestamp: binary search for the slot.
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].Timestamp.After(e.Timestamp)
	})
	txs = append(txs, wallet.Entry{})
	copy(txs[i+1:], txs[i:])
	txs[i] = e
	m.entries[e.AccountID] = txs
	return nil
}

func (m *Memory) EntriesBetween(_ context.Context, id wallet.AccountID, from, to time.Time) ([]wallet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesBetweenLocked(id, from, to), nil
}

func (m *Memory) entriesBetweenLocked(id wallet.AccountID, from, to time.Time) []wallet.Entry {
	var result []wallet.Entry
	for _, e := range m.entries[id] {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			result = append(result, e)
		}
	}
	return result
}

func (m *Memory) EntriesOlderThan(_ context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesOlderThanLocked(id, cutoff), nil
}

func (m *Memory) entriesOlderThanLocked(id wallet.AccountID, cutoff time.Time) []wallet.Entry {
	var result []wallet.Entry
	for _, e := range m.entries[id] {
		if e.Timestamp.Before(cutoff) {
			result = append(result, e)
		}
	}
	return result
}

func (m *Memory) EntriesNewerThanOrEqual(_ context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entriesNewerLocked(id, cutoff), nil
}

func (m *Memory) entriesNewerLocked(id wallet.AccountID, cutoff time.Time) []wallet.Entry {
	var result []wallet.Entry
	for _, e := range m.entries[id] {
		if !e.Timestamp.Before(cutoff) {
			result = append(result, e)
		}
	}
	return result
}

// -----------------------------------------------------------------------------
// Summaries and archive
// -----------------------------------------------------------------------------

func (m *Memory) SaveSummaries(_ context.Context, summaries []wallet.PeriodSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveSummariesLocked(summaries)
	return nil
}

func (m *Memory) saveSummariesLocked(summaries []wallet.PeriodSummary) {
	for _, ps := range summaries {
		m.summaries[ps.AccountID] = append(m.summaries[ps.AccountID], ps)
	}
}

func (m *Memory) SummariesByAccount(_ context.Context, id wallet.AccountID) ([]wallet.PeriodSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]wallet.PeriodSummary, len(m.summaries[id]))
	copy(result, m.summaries[id])
	return result, nil
}

func (m *Memory) SaveArchivedCopies(_ context.Context, copies []wallet.ArchivedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveArchivedLocked(copies)
	return nil
}

func (m *Memory) saveArchivedLocked(copies []wallet.ArchivedEntry) {
	for _, c := range copies {
		m.archived[c.AccountID] = append(m.archived[c.AccountID], c)
	}
}

func (m *Memory) ArchivedBetween(_ context.Context, id wallet.AccountID, from, to time.Time) ([]wallet.ArchivedEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.archivedBetweenLocked(id, from, to), nil
}

func (m *Memory) archivedBetweenLocked(id wallet.AccountID, from, to time.Time) []wallet.ArchivedEntry {
	var result []wallet.ArchivedEntry
	for _, a := range m.archived[id] {
		if !a.Timestamp.Before(from) && !a.Timestamp.After(to) {
			result = append(result, a)
		}
	}
	return result
}

func (m *Memory) DeleteEntries(_ context.Context, ids []wallet.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteEntriesLocked(ids)
	return nil
}

func (m *Memory) deleteEntriesLocked(ids []wallet.EntryID) {
	drop := make(map[wallet.EntryID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for acct, txs := range m.entries {
		kept := txs[:0]
		for _, e := range txs {
			if !drop[e.ID] {
				kept = append(kept, e)
			}
		}
		m.entries[acct] = kept
	}
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes fn while holding the writer lock. On error the state is
// restored from a snapshot, simulating a database rollback.
func (m *Memory) WithTx(_ context.Context, fn func(wallet.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts  map[wallet.AccountID]wallet.Account
	byOwner   map[string]wallet.AccountID
	entries   map[wallet.AccountID][]wallet.Entry
	summaries map[wallet.AccountID][]wallet.PeriodSummary
	archived  map[wallet.AccountID][]wallet.ArchivedEntry
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		accounts:  make(map[wallet.AccountID]wallet.Account, len(m.accounts)),
		byOwner:   make(map[string]wallet.AccountID, len(m.byOwner)),
		entries:   make(map[wallet.AccountID][]wallet.Entry, len(m.entries)),
		summaries: make(map[wallet.AccountID][]wallet.PeriodSummary, len(m.summaries)),
		archived:  make(map[wallet.AccountID][]wallet.ArchivedEntry, len(m.archived)),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.byOwner {
		s.byOwner[k] = v
	}
	for k, v := range m.entries {
		s.entries[k] = append([]wallet.Entry(nil), v...)
	}
	for k, v := range m.summaries {
		s.summaries[k] = append([]wallet.PeriodSummary(nil), v...)
	}
	for k, v := range m.archived {
		s.archived[k] = append([]wallet.ArchivedEntry(nil), v...)
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.byOwner = s.byOwner
	m.entries = s.entries
	m.summaries = s.summaries
	m.archived = s.archived
}

// txView routes Store calls to the parent's unlocked internals while the
// parent holds the writer lock.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateAccount(_ context.Context, a wallet.Account) error {
	return tv.parent.createAccountLocked(a)
}

func (tv *txView) Account(_ context.Context, id wallet.AccountID) (wallet.Account, error) {
	return tv.parent.accountLocked(id)
}

func (tv *txView) AccountByOwner(_ context.Context, ownerID string) (wallet.Account, error) {
	return tv.parent.accountByOwnerLocked(ownerID)
}

func (tv *txView) ListAccountIDs(_ context.Context) ([]wallet.AccountID, error) {
	return tv.parent.listAccountIDsLocked()
}

func (tv *txView) UpdateBalance(_ context.Context, id wallet.AccountID, balance decimal.Decimal) error {
	return tv.parent.updateBalanceLocked(id, balance)
}

func (tv *txView) AppendEntry(_ context.Context, e wallet.Entry) error {
	return tv.parent.appendEntryLocked(e)
}

func (tv *txView) EntriesBetween(_ context.Context, id wallet.AccountID, from, to time.Time) ([]wallet.Entry, error) {
	return tv.parent.entriesBetweenLocked(id, from, to), nil
}

func (tv *txView) EntriesOlderThan(_ context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	return tv.parent.entriesOlderThanLocked(id, cutoff), nil
}

func (tv *txView) EntriesNewerThanOrEqual(_ context.Context, id wallet.AccountID, cutoff time.Time) ([]wallet.Entry, error) {
	return tv.parent.entriesNewerLocked(id, cutoff), nil
}

func (tv *txView) SaveSummaries(_ context.Context, summaries []wallet.PeriodSummary) error {
	tv.parent.saveSummariesLocked(summaries)
	return nil
}

func (tv *txView) SummariesByAccount(_ context.Context, id wallet.AccountID) ([]wallet.PeriodSummary, error) {
	return append([]wallet.PeriodSummary(nil), tv.parent.summaries[id]...), nil
}

func (tv *txView) SaveArchivedCopies(_ context.Context, copies []wallet.ArchivedEntry) error {
	tv.parent.saveArchivedLocked(copies)
	return nil
}

func (tv *txView) ArchivedBetween(_ context.Context, id wallet.AccountID, from, to time.Time) ([]wallet.ArchivedEntry, error) {
	return tv.parent.archivedBetweenLocked(id, from, to), nil
}

func (tv *txView) DeleteEntries(_ context.Context, ids []wallet.EntryID) error {
	tv.parent.deleteEntriesLocked(ids)
	return nil
}
