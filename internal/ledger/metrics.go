package ledger

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mertz1999/ai-money-tracker/internal/common"
)

// PostingsTotal counts atomic ledger units by operation and outcome.
var PostingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tracker",
	Subsystem: "ledger",
	Name:      "postings_total",
	Help:      "Total ledger units by operation and result.",
}, []string{"op", "result"})

// PostingDuration tracks how long each unit takes, lock wait included.
var PostingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "tracker",
	Subsystem: "ledger",
	Name:      "posting_duration_seconds",
	Help:      "Duration of ledger units including entity lock wait.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"op"})

// LockWait tracks time spent waiting for entity locks.
var LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "tracker",
	Subsystem: "ledger",
	Name:      "lock_wait_seconds",
	Help:      "Time spent acquiring per-entity locks.",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
})

// InvariantViolations counts rejected units that would have broken a ledger invariant.
var InvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tracker",
	Subsystem: "ledger",
	Name:      "invariant_violations_total",
	Help:      "Total postings rejected by a ledger invariant check.",
})

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrContended):
		return "contended"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case common.IsInputError(err):
		return "invalid"
	case errors.Is(err, common.ErrLedgerInvariant):
		return "invariant"
	default:
		return "error"
	}
}

func observe(op string, start time.Time, err error) {
	PostingsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	PostingDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
