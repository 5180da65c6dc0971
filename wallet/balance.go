/*
balance.go - Balance recalculation from the transaction log

PURPOSE:
  The account's authoritative balance is always derived:

    balance = sum(period summary totals) + sum(unarchived entry amounts)

  Recalculate performs the derivation and writes the result back as the
  cached balance. It deliberately recomputes from scratch on every mutating
  call rather than maintaining an incremental counter; that is what keeps
  the identity above true across crashes and partial archiving, at the cost
  of O(unarchived entries) work per call.

ARCHIVE-THEN-SUM:
  Entries older than the retention cutoff are compacted before the sums are
  taken, so summaries and remaining entries are always disjoint and
  complete. Within one transactional unit the two reads therefore observe a
  consistent snapshot.

IDEMPOTENCE:
  Two recalculations with no intervening writes yield the same balance, and
  the second one archives nothing (nothing precedes the cutoff anymore).
*/
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRetentionWindow is how long entries stay in the live log before
// compaction.
const DefaultRetentionWindow = 30 * 24 * time.Hour

// BalanceCalculator derives the cached balance from summaries plus recent
// entries, archiving whatever fell out of the retention window first.
type BalanceCalculator struct {
	Archiver  *Archiver
	Retention time.Duration // zero means DefaultRetentionWindow

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func NewBalanceCalculator() *BalanceCalculator {
	return &BalanceCalculator{Archiver: &Archiver{}}
}

func (bc *BalanceCalculator) now() time.Time {
	if bc.Now != nil {
		return bc.Now()
	}
	return time.Now().UTC()
}

func (bc *BalanceCalculator) retention() time.Duration {
	if bc.Retention > 0 {
		return bc.Retention
	}
	return DefaultRetentionWindow
}

// Recalculate derives and persists the balance of one account. It must run
// inside the caller's transactional scope (the store it receives is the
// transactional view). Returns the account with its fresh balance.
func (bc *BalanceCalculator) Recalculate(ctx context.Context, s Store, id AccountID) (Account, error) {
	acct, err := s.Account(ctx, id)
	if err != nil {
		return Account{}, err
	}

	cutoff := bc.now().Add(-bc.retention())

	// Compact first so the sums below see disjoint partitions.
	old, err := s.EntriesOlderThan(ctx, id, cutoff)
	if err != nil {
		return Account{}, err
	}
	if len(old) > 0 {
		if err := bc.Archiver.Archive(ctx, s, id, old); err != nil {
			return Account{}, err
		}
	}

	summaries, err := s.SummariesByAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	summarized := decimal.Zero
	for _, ps := range summaries {
		summarized = summarized.Add(ps.TotalAmount)
	}

	recent, err := s.EntriesNewerThanOrEqual(ctx, id, cutoff)
	if err != nil {
		return Account{}, err
	}
	recentSum := decimal.Zero
	for _, e := range recent {
		recentSum = recentSum.Add(e.Amount)
	}

	balance := summarized.Add(recentSum)
	if err := s.UpdateBalance(ctx, id, balance); err != nil {
		return Account{}, err
	}

	acct.Balance = balance
	return acct, nil
}
