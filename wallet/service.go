/*
service.go - Ledger service facade

PURPOSE:
  The single entry point the request-handling layer talks to. Composes the
  coordinator, balance calculator, and archiver, and adds:
  - account creation (one per owner)
  - transfer-by-email (directory resolution kept off the mutation path)
  - merged, paginated transaction history (history.go)
  - event publishing and metrics around completed operations

  Caller identity is always an explicit parameter. The service reads no
  ambient session state.

COLLABORATORS:
  Directory - external user-directory lookups. May fail; history enrichment
              degrades to "N/A" and never aborts anything.
  Publisher - completed-operation events. Best-effort, logged on failure.
*/
package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NomcciDubs/nomcci-wallet/metrics"
)

// Directory is the external user-directory collaborator.
type Directory interface {
	// DisplayName resolves a user's display name for history enrichment.
	DisplayName(ctx context.Context, ownerID string) (string, error)

	// OwnerIDByEmail resolves the owner behind an email address.
	OwnerIDByEmail(ctx context.Context, email string) (string, error)
}

// Service is the ledger facade.
type Service struct {
	store     TxStore
	coord     *Coordinator
	calc      *BalanceCalculator
	directory Directory
	events    Publisher
	metrics   metrics.Collector
	logger    *zap.Logger

	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithDirectory(d Directory) Option        { return func(s *Service) { s.directory = d } }
func WithPublisher(p Publisher) Option        { return func(s *Service) { s.events = p } }
func WithMetrics(c metrics.Collector) Option  { return func(s *Service) { s.metrics = c } }
func WithLogger(l *zap.Logger) Option         { return func(s *Service) { s.logger = l } }
func WithRetention(d time.Duration) Option    { return func(s *Service) { s.calc.Retention = d } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.calc.Now = now
		s.calc.Archiver.Now = now
		s.coord.Now = now
	}
}

// NewService wires the ledger core around a transactional store.
func NewService(store TxStore, opts ...Option) *Service {
	calc := NewBalanceCalculator()
	s := &Service{
		store:   store,
		calc:    calc,
		coord:   NewCoordinator(store, calc),
		events:  NopPublisher{},
		metrics: metrics.NoOpCollector{},
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.calc.Archiver.Metrics = s.metrics
	return s
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

// CreateAccount opens one account for an owner. A second account for the
// same owner fails with ErrAccountExists.
func (s *Service) CreateAccount(ctx context.Context, ownerID, currency string) (Account, error) {
	if currency == "" {
		currency = "USD"
	}
	acct := Account{
		ID:        NewAccountID(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Currency:  currency,
		Active:    true,
		CreatedAt: s.now(),
	}

	err := s.store.WithTx(ctx, func(st Store) error {
		if _, err := st.AccountByOwner(ctx, ownerID); err == nil {
			return ErrAccountExists
		} else if !IsNotFound(err) {
			return err
		}
		return st.CreateAccount(ctx, acct)
	})
	if err != nil {
		return Account{}, err
	}

	s.logger.Info("account created",
		zap.String("account_id", string(acct.ID)),
		zap.String("owner_id", ownerID),
		zap.String("currency", currency))
	return acct, nil
}

// Account returns an account by id.
func (s *Service) Account(ctx context.Context, id AccountID) (Account, error) {
	return s.store.Account(ctx, id)
}

// AccountIDs lists every account id, for sweep jobs.
func (s *Service) AccountIDs(ctx context.Context) ([]AccountID, error) {
	return s.store.ListAccountIDs(ctx)
}

// =============================================================================
// BALANCE-AFFECTING OPERATIONS
// =============================================================================

// Deposit credits the account and returns it with the fresh balance.
func (s *Service) Deposit(ctx context.Context, id AccountID, amount decimal.Decimal) (Account, error) {
	start := s.now()
	acct, err := s.coord.Deposit(ctx, id, amount)
	s.observe("deposit", start, err)
	if err != nil {
		return Account{}, err
	}
	s.publish(ctx, Event{
		Kind: KindDeposit, AccountID: id, Amount: amount,
		Balance: acct.Balance, OccurredAt: s.now(),
	})
	return acct, nil
}

// Withdraw debits the account and returns it with the fresh balance.
func (s *Service) Withdraw(ctx context.Context, id AccountID, amount decimal.Decimal) (Account, error) {
	start := s.now()
	acct, err := s.coord.Withdraw(ctx, id, amount)
	s.observe("withdraw", start, err)
	if err != nil {
		return Account{}, err
	}
	s.publish(ctx, Event{
		Kind: KindWithdrawal, AccountID: id, Amount: amount.Neg(),
		Balance: acct.Balance, OccurredAt: s.now(),
	})
	return acct, nil
}

// Transfer moves amount between two accounts atomically.
func (s *Service) Transfer(ctx context.Context, fromID, toID AccountID, amount decimal.Decimal) (TransferResult, error) {
	start := s.now()
	res, err := s.coord.Transfer(ctx, fromID, toID, amount)
	s.observe("transfer", start, err)
	if err != nil {
		return TransferResult{}, err
	}
	s.publish(ctx, Event{
		Kind: KindTransfer, AccountID: fromID, CounterpartyID: toID,
		Amount: amount.Neg(), Balance: res.From.Balance, OccurredAt: s.now(),
	})
	return res, nil
}

// TransferByEmail resolves the destination owner through the directory and
// then runs a normal transfer. The lookup happens before the transactional
// unit: external calls stay off the path of balance mutation.
func (s *Service) TransferByEmail(ctx context.Context, fromID AccountID, toEmail string, amount decimal.Decimal) (TransferResult, error) {
	if s.directory == nil {
		return TransferResult{}, ErrExternalLookup
	}
	ownerID, err := s.directory.OwnerIDByEmail(ctx, toEmail)
	if err != nil {
		return TransferResult{}, err
	}
	dest, err := s.store.AccountByOwner(ctx, ownerID)
	if err != nil {
		return TransferResult{}, err
	}
	return s.Transfer(ctx, fromID, dest.ID, amount)
}

// Balance recalculates and returns the authoritative balance. Archiving
// runs as a side effect when entries have aged past the retention window.
func (s *Service) Balance(ctx context.Context, id AccountID) (Account, error) {
	start := s.now()
	var acct Account
	err := s.store.WithTx(ctx, func(st Store) error {
		var err error
		acct, err = s.calc.Recalculate(ctx, st, id)
		return err
	})
	s.observe("balance", start, err)
	return acct, err
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *Service) observe(op string, start time.Time, err error) {
	s.metrics.RecordOperation(op, err == nil, s.now().Sub(start))
	if err != nil && !IsClientError(err) && !IsNotFound(err) {
		s.logger.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		// Best-effort: an unreachable broker must not fail the operation.
		s.logger.Warn("event publish failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("account_id", string(ev.AccountID)),
			zap.Error(err))
	}
}
