package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
	"github.com/NomcciDubs/nomcci-wallet/wallet/store"
)

func testAccount(id wallet.AccountID, owner string) wallet.Account {
	return wallet.Account{
		ID:        id,
		OwnerID:   owner,
		Balance:   decimal.Zero,
		Currency:  "USD",
		Active:    true,
		CreatedAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemory_WithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A committed account
	// WHEN: A unit appends an entry and updates the balance, then fails
	// THEN: Neither write survives

	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateAccount(ctx, testAccount("acct-1", "owner-1")))

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s wallet.Store) error {
		e := wallet.NewEntry("acct-1", decimal.NewFromInt(10), wallet.KindDeposit, time.Now().UTC())
		if err := s.AppendEntry(ctx, e); err != nil {
			return err
		}
		if err := s.UpdateBalance(ctx, "acct-1", decimal.NewFromInt(10)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	acct, err := mem.Account(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.IsZero())

	entries, err := mem.EntriesBetween(ctx, "acct-1", time.Unix(0, 0), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemory_WithTx_CommitOnSuccess(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateAccount(ctx, testAccount("acct-1", "owner-1")))

	err := mem.WithTx(ctx, func(s wallet.Store) error {
		return s.UpdateBalance(ctx, "acct-1", decimal.NewFromInt(42))
	})
	require.NoError(t, err)

	acct, err := mem.Account(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(42)))
}

func TestMemory_AppendEntry_KeepsTimestampOrder(t *testing.T) {
	// GIVEN: Entries appended out of chronological order
	// WHEN: Reading them back
	// THEN: They come out ordered by timestamp

	mem := store.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		e := wallet.NewEntry("acct-1", decimal.NewFromInt(1), wallet.KindDeposit, base.Add(offset))
		require.NoError(t, mem.AppendEntry(ctx, e))
	}

	entries, err := mem.EntriesBetween(ctx, "acct-1", base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestMemory_CutoffPartition(t *testing.T) {
	// GIVEN: Entries before, at, and after a cutoff
	// WHEN: Querying both sides
	// THEN: The two sets are disjoint and complete; the entry exactly at
	//       the cutoff lands on the newer side

	mem := store.NewMemory()
	ctx := context.Background()
	cutoff := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)

	before := wallet.NewEntry("acct-1", decimal.NewFromInt(1), wallet.KindDeposit, cutoff.Add(-time.Second))
	at := wallet.NewEntry("acct-1", decimal.NewFromInt(2), wallet.KindDeposit, cutoff)
	after := wallet.NewEntry("acct-1", decimal.NewFromInt(3), wallet.KindDeposit, cutoff.Add(time.Second))
	for _, e := range []wallet.Entry{before, at, after} {
		require.NoError(t, mem.AppendEntry(ctx, e))
	}

	old, err := mem.EntriesOlderThan(ctx, "acct-1", cutoff)
	require.NoError(t, err)
	recent, err := mem.EntriesNewerThanOrEqual(ctx, "acct-1", cutoff)
	require.NoError(t, err)

	require.Len(t, old, 1)
	assert.Equal(t, before.ID, old[0].ID)
	require.Len(t, recent, 2)
	assert.Equal(t, at.ID, recent[0].ID)
	assert.Equal(t, after.ID, recent[1].ID)
}

func TestMemory_AccountByOwner(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateAccount(ctx, testAccount("acct-1", "owner-1")))

	acct, err := mem.AccountByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, wallet.AccountID("acct-1"), acct.ID)

	_, err = mem.AccountByOwner(ctx, "nobody")
	assert.ErrorIs(t, err, wallet.ErrAccountNotFound)

	err = mem.CreateAccount(ctx, testAccount("acct-2", "owner-1"))
	assert.ErrorIs(t, err, wallet.ErrAccountExists)
}

func TestMemory_DeleteEntries(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	keep := wallet.NewEntry("acct-1", decimal.NewFromInt(1), wallet.KindDeposit, base)
	drop := wallet.NewEntry("acct-1", decimal.NewFromInt(2), wallet.KindDeposit, base.Add(time.Hour))
	require.NoError(t, mem.AppendEntry(ctx, keep))
	require.NoError(t, mem.AppendEntry(ctx, drop))

	require.NoError(t, mem.DeleteEntries(ctx, []wallet.EntryID{drop.ID}))

	entries, err := mem.EntriesBetween(ctx, "acct-1", base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, keep.ID, entries[0].ID)
}
