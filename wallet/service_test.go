package wallet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeDirectory struct {
	names  map[string]string // ownerID -> display name
	emails map[string]string // email -> ownerID
	err    error
}

func (f *fakeDirectory) DisplayName(_ context.Context, ownerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.names[ownerID], nil
}

func (f *fakeDirectory) OwnerIDByEmail(_ context.Context, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.emails[email]
	if !ok {
		return "", wallet.ErrExternalLookup
	}
	return id, nil
}

type capturingPublisher struct {
	events []wallet.Event
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, ev wallet.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

func TestCreateAccount_Defaults(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.CreateAccount(context.Background(), "owner-1", "")
	require.NoError(t, err)

	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "owner-1", acct.OwnerID)
	assert.Equal(t, "USD", acct.Currency)
	assert.True(t, acct.Balance.IsZero())
	assert.True(t, acct.Active)
	assert.Equal(t, testNow, acct.CreatedAt)
}

func TestCreateAccount_DuplicateOwner_Rejected(t *testing.T) {
	// GIVEN: An owner who already has an account
	// WHEN: Opening a second one
	// THEN: Rejected with ErrAccountExists

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "owner-1", "USD")
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, "owner-1", "EUR")
	assert.ErrorIs(t, err, wallet.ErrAccountExists)
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_MergesLiveAndArchived(t *testing.T) {
	// GIVEN: An account with entries that were partly compacted
	// WHEN: Listing the history
	// THEN: One uniform listing spans both sources, flags archived lines,
	//       and reports the total across both

	svc, mem := newTestService(t)
	ctx := context.Background()
	acct := newFundedAccount(t, svc, "owner-1", "")

	oldAt := testNow.Add(-50 * 24 * time.Hour)
	require.NoError(t, mem.AppendEntry(ctx, wallet.NewEntry(acct.ID, dec("10"), wallet.KindDeposit, oldAt)))
	require.NoError(t, mem.AppendEntry(ctx, wallet.NewEntry(acct.ID, dec("20"), wallet.KindDeposit, testNow.Add(-time.Hour))))

	// Recalculation compacts the 50-day-old entry.
	_, err := svc.Balance(ctx, acct.ID)
	require.NoError(t, err)

	page, err := svc.History(ctx, acct.ID, wallet.HistoryQuery{})
	require.NoError(t, err)

	require.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Lines, 2)

	// Timestamp descending: recent live entry first, archived one second.
	assert.False(t, page.Lines[0].Archived)
	assert.True(t, page.Lines[0].Amount.Equal(dec("20")))
	assert.True(t, page.Lines[1].Archived)
	assert.True(t, page.Lines[1].Amount.Equal(dec("10")))
}

func TestHistory_Pagination(t *testing.T) {
	// GIVEN: 25 entries
	// WHEN: Paging with size 10
	// THEN: Pages 0 and 1 hold 10 lines, page 2 holds 5, total stays 25

	svc, mem := newTestService(t)
	ctx := context.Background()
	acct := newFundedAccount(t, svc, "owner-1", "")

	for i := 0; i < 25; i++ {
		at := testNow.Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, mem.AppendEntry(ctx, wallet.NewEntry(acct.ID, dec("1"), wallet.KindDeposit, at)))
	}

	for page, want := range map[int]int{0: 10, 1: 10, 2: 5, 3: 0} {
		got, err := svc.History(ctx, acct.ID, wallet.HistoryQuery{Page: page, Size: 10})
		require.NoError(t, err)
		assert.Len(t, got.Lines, want, "page %d", page)
		assert.Equal(t, 25, got.TotalCount)
	}
}

func TestHistory_SortByAmount(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	acct := newFundedAccount(t, svc, "owner-1", "")

	for _, amt := range []string{"5", "50", "0.5"} {
		require.NoError(t, mem.AppendEntry(ctx, wallet.NewEntry(acct.ID, dec(amt), wallet.KindDeposit, testNow.Add(-time.Hour))))
	}

	page, err := svc.History(ctx, acct.ID, wallet.HistoryQuery{SortBy: "amount"})
	require.NoError(t, err)
	require.Len(t, page.Lines, 3)
	assert.True(t, page.Lines[0].Amount.Equal(dec("50")))
	assert.True(t, page.Lines[1].Amount.Equal(dec("5")))
	assert.True(t, page.Lines[2].Amount.Equal(dec("0.5")))
}

func TestHistory_CounterpartyEnrichment(t *testing.T) {
	// GIVEN: A transfer between two accounts and a working directory
	// WHEN: Listing either side's history
	// THEN: Transfer lines carry the counterparty's display name

	dir := &fakeDirectory{names: map[string]string{"alice": "Alice A", "bob": "Bob B"}}
	svc, _ := newTestService(t, wallet.WithDirectory(dir))
	ctx := context.Background()

	alice := newFundedAccount(t, svc, "alice", "100")
	bob := newFundedAccount(t, svc, "bob", "")
	_, err := svc.Transfer(ctx, alice.ID, bob.ID, dec("30"))
	require.NoError(t, err)

	page, err := svc.History(ctx, alice.ID, wallet.HistoryQuery{})
	require.NoError(t, err)

	var names []string
	for _, l := range page.Lines {
		if l.Kind == wallet.KindTransfer {
			names = append(names, l.Counterparty)
		}
	}
	assert.Equal(t, []string{"Bob B"}, names)
}

func TestHistory_DirectoryFailure_FallsBackToNA(t *testing.T) {
	// GIVEN: A transfer and a directory that is down
	// WHEN: Listing the history
	// THEN: The listing still succeeds, with "N/A" as the counterparty

	dir := &fakeDirectory{err: errors.New("directory unreachable")}
	svc, _ := newTestService(t, wallet.WithDirectory(dir))
	ctx := context.Background()

	alice := newFundedAccount(t, svc, "alice", "100")
	bob := newFundedAccount(t, svc, "bob", "")
	_, err := svc.Transfer(ctx, alice.ID, bob.ID, dec("30"))
	require.NoError(t, err)

	page, err := svc.History(ctx, alice.ID, wallet.HistoryQuery{})
	require.NoError(t, err)

	for _, l := range page.Lines {
		if l.Kind == wallet.KindTransfer {
			assert.Equal(t, wallet.CounterpartyUnknown, l.Counterparty)
		}
	}
}

func TestHistory_NonTransferLines_HaveNoCounterparty(t *testing.T) {
	dir := &fakeDirectory{names: map[string]string{"owner-1": "Owner One"}}
	svc, _ := newTestService(t, wallet.WithDirectory(dir))
	ctx := context.Background()
	acct := newFundedAccount(t, svc, "owner-1", "100")

	page, err := svc.History(ctx, acct.ID, wallet.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, page.Lines, 1)
	assert.Equal(t, wallet.CounterpartyUnknown, page.Lines[0].Counterparty)
}

func TestHistory_UnknownAccount_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.History(context.Background(), "ghost", wallet.HistoryQuery{})
	assert.True(t, wallet.IsNotFound(err))
}

// =============================================================================
// EVENTS
// =============================================================================

func TestDeposit_PublishesEvent(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _ := newTestService(t, wallet.WithPublisher(pub))
	ctx := context.Background()
	acct := newFundedAccount(t, svc, "owner-1", "")

	_, err := svc.Deposit(ctx, acct.ID, dec("25"))
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, wallet.KindDeposit, ev.Kind)
	assert.Equal(t, acct.ID, ev.AccountID)
	assert.True(t, ev.Amount.Equal(dec("25")))
	assert.True(t, ev.Balance.Equal(dec("25")))
}

func TestTransfer_PublishesEventWithCounterparty(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _ := newTestService(t, wallet.WithPublisher(pub))
	ctx := context.Background()

	alice := newFundedAccount(t, svc, "alice", "100")
	bob := newFundedAccount(t, svc, "bob", "")

	_, err := svc.Transfer(ctx, alice.ID, bob.ID, dec("40"))
	require.NoError(t, err)

	// One event for the funding deposit, one for the transfer.
	require.Len(t, pub.events, 2)
	ev := pub.events[1]
	assert.Equal(t, wallet.KindTransfer, ev.Kind)
	assert.Equal(t, alice.ID, ev.AccountID)
	assert.Equal(t, bob.ID, ev.CounterpartyID)
	assert.True(t, ev.Amount.Equal(dec("-40")))
}

func TestDeposit_PublishFailure_DoesNotFailOperation(t *testing.T) {
	// GIVEN: A publisher whose broker is unreachable
	// WHEN: Depositing
	// THEN: The deposit still succeeds and the balance is durable

	pub := &capturingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, wallet.WithPublisher(pub))
	ctx := context.Background()
	acct := newFundedAccount(t, svc, "owner-1", "")

	fresh, err := svc.Deposit(ctx, acct.ID, dec("25"))
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(dec("25")))
}

func TestFailedOperation_PublishesNothing(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _ := newTestService(t, wallet.WithPublisher(pub))
	ctx := context.Background()
	acct := newFundedAccount(t, svc, "owner-1", "")

	_, err := svc.Withdraw(ctx, acct.ID, dec("10"))
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	assert.Empty(t, pub.events)
}

// =============================================================================
// TRANSFER BY EMAIL
// =============================================================================

func TestTransferByEmail(t *testing.T) {
	// GIVEN: Bob reachable through the directory by email
	// WHEN: Alice transfers to bob@example.com
	// THEN: The funds land on Bob's account

	dir := &fakeDirectory{emails: map[string]string{"bob@example.com": "bob"}}
	svc, _ := newTestService(t, wallet.WithDirectory(dir))
	ctx := context.Background()

	alice := newFundedAccount(t, svc, "alice", "100")
	bob := newFundedAccount(t, svc, "bob", "")

	res, err := svc.TransferByEmail(ctx, alice.ID, "bob@example.com", dec("60"))
	require.NoError(t, err)

	assert.Equal(t, bob.ID, res.To.ID)
	assert.True(t, res.From.Balance.Equal(dec("40")))
	assert.True(t, res.To.Balance.Equal(dec("60")))
}

func TestTransferByEmail_UnknownEmail_Fails(t *testing.T) {
	dir := &fakeDirectory{emails: map[string]string{}}
	svc, _ := newTestService(t, wallet.WithDirectory(dir))
	alice := newFundedAccount(t, svc, "alice", "100")

	_, err := svc.TransferByEmail(context.Background(), alice.ID, "ghost@example.com", dec("10"))
	assert.ErrorIs(t, err, wallet.ErrExternalLookup)
}

func TestTransferByEmail_NoDirectoryConfigured_Fails(t *testing.T) {
	svc, _ := newTestService(t)
	alice := newFundedAccount(t, svc, "alice", "100")

	_, err := svc.TransferByEmail(context.Background(), alice.ID, "bob@example.com", dec("10"))
	assert.ErrorIs(t, err, wallet.ErrExternalLookup)
}
