// Package prometheus exports ledger metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Collector backed by Prometheus.
type Collector struct {
	operations      *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
	archivedEntries prometheus.Counter
	summariesMade   prometheus.Counter
	lookupFallbacks prometheus.Counter
}

// NewCollector creates and registers the ledger metrics on the given
// registerer. Pass prometheus.DefaultRegisterer in production.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wallet",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		archivedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "archived_entries_total",
			Help:      "Entries compacted into period summaries.",
		}),
		summariesMade: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "period_summaries_total",
			Help:      "Period summaries created by the archiver.",
		}),
		lookupFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet",
			Name:      "lookup_fallbacks_total",
			Help:      "History lines that fell back to the N/A placeholder.",
		}),
	}

	reg.MustRegister(c.operations, c.opDuration, c.archivedEntries, c.summariesMade, c.lookupFallbacks)
	return c
}

func (c *Collector) RecordOperation(op string, success bool, duration time.Duration) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	c.operations.WithLabelValues(op, outcome).Inc()
	c.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (c *Collector) RecordArchiveRun(entries, summaries int) {
	c.archivedEntries.Add(float64(entries))
	c.summariesMade.Add(float64(summaries))
}

func (c *Collector) RecordLookupFallback() {
	c.lookupFallbacks.Inc()
}
