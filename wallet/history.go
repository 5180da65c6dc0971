/*
history.go - Merged, paginated transaction history

PURPOSE:
  History spans two sources: the live entry log and the archive. Both are
  loaded for the requested range, merged into one uniform line shape,
  sorted, and paged once; the reported total covers both sources.

ENRICHMENT:
  Transfer lines carry the counterparty's display name, resolved through
  the directory collaborator. Resolution is read-only and non-critical: any
  failure yields the "N/A" placeholder and the listing proceeds.
*/
package wallet

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CounterpartyUnknown is the placeholder when no counterparty exists or the
// directory lookup failed.
const CounterpartyUnknown = "N/A"

// HistoryQuery selects a page of an account's history. Zero-valued Start
// defaults to the epoch, zero-valued End to now.
type HistoryQuery struct {
	Start  time.Time
	End    time.Time
	Page   int    // zero-based
	Size   int    // default 20
	SortBy string // "timestamp" (default) or "amount", descending
}

// HistoryLine is the uniform shape for live and archived records.
type HistoryLine struct {
	Timestamp    time.Time       `json:"timestamp"`
	Counterparty string          `json:"counterparty"`
	Kind         EntryKind       `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Archived     bool            `json:"archived"`
}

// HistoryPage is one page plus the total across both sources.
type HistoryPage struct {
	Lines      []HistoryLine `json:"lines"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	Size       int           `json:"size"`
}

// History assembles one page of an account's merged history.
func (s *Service) History(ctx context.Context, id AccountID, q HistoryQuery) (HistoryPage, error) {
	if _, err := s.store.Account(ctx, id); err != nil {
		return HistoryPage{}, err
	}

	if q.Start.IsZero() {
		q.Start = time.Unix(0, 0).UTC()
	}
	if q.End.IsZero() {
		q.End = s.now()
	}
	if q.Size <= 0 {
		q.Size = 20
	}
	if q.Page < 0 {
		q.Page = 0
	}

	live, err := s.store.EntriesBetween(ctx, id, q.Start, q.End)
	if err != nil {
		return HistoryPage{}, err
	}
	archived, err := s.store.ArchivedBetween(ctx, id, q.Start, q.End)
	if err != nil {
		return HistoryPage{}, err
	}

	names := newNameCache(s)
	lines := make([]HistoryLine, 0, len(live)+len(archived))
	for _, e := range live {
		lines = append(lines, s.toLine(ctx, names, e, false))
	}
	for _, a := range archived {
		lines = append(lines, s.toLine(ctx, names, a.Entry, true))
	}

	sortLines(lines, q.SortBy)

	total := len(lines)
	from := q.Page * q.Size
	if from > total {
		from = total
	}
	to := from + q.Size
	if to > total {
		to = total
	}

	return HistoryPage{
		Lines:      lines[from:to],
		TotalCount: total,
		Page:       q.Page,
		Size:       q.Size,
	}, nil
}

func sortLines(lines []HistoryLine, sortBy string) {
	switch sortBy {
	case "amount":
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].Amount.GreaterThan(lines[j].Amount)
		})
	default: // timestamp, descending
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].Timestamp.After(lines[j].Timestamp)
		})
	}
}

func (s *Service) toLine(ctx context.Context, names *nameCache, e Entry, archived bool) HistoryLine {
	name := CounterpartyUnknown
	if e.CounterpartyID != "" {
		name = names.resolve(ctx, e.CounterpartyID)
	}
	return HistoryLine{
		Timestamp:    e.Timestamp,
		Counterparty: name,
		Kind:         e.Kind,
		Amount:       e.Amount,
		Archived:     archived,
	}
}

// nameCache deduplicates directory lookups within one listing.
type nameCache struct {
	svc   *Service
	names map[AccountID]string
}

func newNameCache(svc *Service) *nameCache {
	return &nameCache{svc: svc, names: make(map[AccountID]string)}
}

func (c *nameCache) resolve(ctx context.Context, id AccountID) string {
	if name, ok := c.names[id]; ok {
		return name
	}
	name := c.lookup(ctx, id)
	c.names[id] = name
	return name
}

func (c *nameCache) lookup(ctx context.Context, id AccountID) string {
	if c.svc.directory == nil {
		return CounterpartyUnknown
	}
	acct, err := c.svc.store.Account(ctx, id)
	if err != nil {
		c.svc.metrics.RecordLookupFallback()
		return CounterpartyUnknown
	}
	name, err := c.svc.directory.DisplayName(ctx, acct.OwnerID)
	if err != nil || name == "" {
		c.svc.metrics.RecordLookupFallback()
		return CounterpartyUnknown
	}
	return name
}
