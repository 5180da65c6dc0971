/*
scheduler.go - Periodic archive sweep

PURPOSE:
  Compaction normally piggybacks on balance recalculation, so a dormant
  account could hold old entries forever. The sweeper walks every account
  on an interval and recalculates it, which archives whatever aged out of
  the retention window. Idle accounts archive nothing and the pass is a
  cheap no-op for them.

DESIGN:
  - Background goroutine, ticker-driven, runs once immediately on Start
  - Bounded concurrency across accounts (errgroup)
  - Per-account failures are logged and do not stop the sweep
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// ArchiveSweeper periodically compacts every account.
type ArchiveSweeper struct {
	Service       *wallet.Service
	Logger        *zap.Logger
	CheckInterval time.Duration // default: 1 hour
	Concurrency   int           // default: 4

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewArchiveSweeper creates a sweeper with default settings.
func NewArchiveSweeper(svc *wallet.Service, logger *zap.Logger) *ArchiveSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveSweeper{
		Service:       svc,
		Logger:        logger,
		CheckInterval: time.Hour,
		Concurrency:   4,
		stop:          make(chan struct{}),
	}
}

// Start begins the sweeper.
func (as *ArchiveSweeper) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)
	go as.run()

	as.Logger.Info("archive sweeper started", zap.Duration("interval", as.CheckInterval))
}

// Stop stops the sweeper and waits for an in-flight sweep to finish.
func (as *ArchiveSweeper) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		as.Logger.Info("archive sweeper stopped")
	}
}

func (as *ArchiveSweeper) run() {
	defer as.wg.Done()

	as.Sweep(context.Background())

	for {
		select {
		case <-as.ticker.C:
			as.Sweep(context.Background())
		case <-as.stop:
			return
		}
	}
}

// Sweep recalculates every account once. Exported for the admin surface
// and tests.
func (as *ArchiveSweeper) Sweep(ctx context.Context) {
	ids, err := as.Service.AccountIDs(ctx)
	if err != nil {
		as.Logger.Error("sweep: failed to list accounts", zap.Error(err))
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(as.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := as.Service.Balance(ctx, id); err != nil {
				as.Logger.Warn("sweep: recalculate failed",
					zap.String("account_id", string(id)), zap.Error(err))
			}
			// Per-account failures never abort the sweep.
			return nil
		})
	}
	g.Wait()

	as.Logger.Debug("sweep completed", zap.Int("accounts", len(ids)))
}
