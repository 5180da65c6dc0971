// Package metrics defines the collection interface for ledger operation
// metrics. Implementations export to a backend (Prometheus) or do nothing.
package metrics

import "time"

// Collector receives measurements from the ledger service. The default is
// NoOpCollector; the prometheus subpackage provides the real exporter.
type Collector interface {
	// RecordOperation tracks one deposit/withdraw/transfer/balance call.
	RecordOperation(op string, success bool, duration time.Duration)

	// RecordArchiveRun tracks one compaction: how many entries were folded
	// into how many summaries.
	RecordArchiveRun(entries, summaries int)

	// RecordLookupFallback counts history lines that degraded to the "N/A"
	// placeholder because the directory lookup failed.
	RecordLookupFallback()
}

// NoOpCollector is the default collector when metrics are not needed.
type NoOpCollector struct{}

func (NoOpCollector) RecordOperation(string, bool, time.Duration) {}
func (NoOpCollector) RecordArchiveRun(int, int)                   {}
func (NoOpCollector) RecordLookupFallback()                       {}
