// Package metrics defines and registers all custom Prometheus metrics for the
// ledger API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on import and
// exposed at /metrics by the router.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/99minutos/ledger-system/internal/core/domain"
)

const namespace = "ledger"

// Operation label values.
const (
	OpPayJob  = "pay_job"
	OpDeposit = "deposit"
)

// ── Operation metrics ─────────────────────────────────────────────────────────

// OperationsTotal counts balance operations by result.
// Labels:
//   - operation: "pay_job" or "deposit"
//   - outcome: "ok", "replayed", "not_found", "forbidden", "validation",
//     "insufficient_funds", "insufficient_reserve", "transaction_failure"
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of balance operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// OperationDuration measures a balance operation end-to-end, lock wait included.
// Label:
//   - operation: "pay_job" or "deposit"
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of balance operations from request to commit or rejection.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// MovedAmountTotal sums the money moved by committed operations. The float is
// an observation only; balances never go through it.
var MovedAmountTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moved_amount_total",
		Help:      "Total amount moved between profiles by committed operations.",
	},
	[]string{"operation"},
)

// Outcome classifies an operation error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientReserve):
		return "insufficient_reserve"
	default:
		return "transaction_failure"
	}
}

// Observe records one finished operation.
func Observe(operation, outcome string, started time.Time, moved decimal.Decimal) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if outcome == "ok" && moved.IsPositive() {
		MovedAmountTotal.WithLabelValues(operation).Add(moved.InexactFloat64())
	}
}
