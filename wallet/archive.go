/*
archive.go - Compaction of old ledger entries into period summaries

PURPOSE:
  Entries older than the retention window are folded into one PeriodSummary
  per calendar month and relocated to the archive table. Compaction never
  changes the account's total: the sum of summary totals plus remaining
  entries equals the sum before the run.

ORDERING REQUIREMENT:
  summary-write -> archived-copy-write -> delete-original.
  A crash mid-archive can duplicate value into summaries while the originals
  survive, which the next run repairs by finding nothing older than the
  cutoff only after deletion succeeded; it can never lose value, because
  deletion is the last step and runs only once the first two are durable.
  A retried archive with no old entries is a no-op.

GROUPING:
  Calendar month of the entry timestamp (UTC). This is policy, not
  correctness: any partition works as long as per-account summaries are
  gap-free and non-overlapping.
*/
package wallet

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NomcciDubs/nomcci-wallet/metrics"
)

// Archiver compacts entries that fell out of the retention window.
type Archiver struct {
	// Metrics receives compaction counts; nil disables reporting.
	Metrics metrics.Collector

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (a *Archiver) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// Archive compacts the given entries (all older than the caller's cutoff)
// for one account. Empty input is a no-op, which makes a repeated archive
// of already-compacted data safe.
func (a *Archiver) Archive(ctx context.Context, s Store, accountID AccountID, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := a.now()

	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[monthKey(e.Timestamp)] = append(groups[monthKey(e.Timestamp)], e)
	}

	// Deterministic order across runs
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	summaries := make([]PeriodSummary, 0, len(keys))
	for _, k := range keys {
		summaries = append(summaries, summarize(accountID, groups[k], now))
	}

	if err := s.SaveSummaries(ctx, summaries); err != nil {
		return &ArchiveError{AccountID: accountID, Step: "summaries", Err: err}
	}

	copies := make([]ArchivedEntry, 0, len(entries))
	ids := make([]EntryID, 0, len(entries))
	for _, e := range entries {
		copies = append(copies, ArchivedEntry{Entry: e, ArchivedAt: now})
		ids = append(ids, e.ID)
	}
	if err := s.SaveArchivedCopies(ctx, copies); err != nil {
		return &ArchiveError{AccountID: accountID, Step: "copies", Err: err}
	}

	// Only now is it safe to drop the originals.
	if err := s.DeleteEntries(ctx, ids); err != nil {
		return &ArchiveError{AccountID: accountID, Step: "delete", Err: err}
	}

	if a.Metrics != nil {
		a.Metrics.RecordArchiveRun(len(entries), len(summaries))
	}
	return nil
}

// monthKey truncates a timestamp to year-month granularity.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func summarize(accountID AccountID, entries []Entry, now time.Time) PeriodSummary {
	start, end := entries[0].Timestamp, entries[0].Timestamp
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
		if e.Timestamp.Before(start) {
			start = e.Timestamp
		}
		if e.Timestamp.After(end) {
			end = e.Timestamp
		}
	}
	return PeriodSummary{
		ID:          NewSummaryID(),
		AccountID:   accountID,
		TotalAmount: total,
		PeriodStart: start,
		PeriodEnd:   end,
		CreatedAt:   now,
	}
}
