package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OPERATION EVENTS - Published after a completed operation
// =============================================================================

// Event describes one completed balance-affecting operation. Events are
// best-effort: a failed publish is logged, never surfaced to the caller.
type Event struct {
	Kind           EntryKind       `json:"kind"`
	AccountID      AccountID       `json:"account_id"`
	CounterpartyID AccountID       `json:"counterparty_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// Publisher delivers completed-operation events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
