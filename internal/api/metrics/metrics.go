// Package metrics defines and registers all custom Prometheus metrics for the
// attendance API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry on package init via
// promauto; HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/presensi/attendance-api/internal/core/domain"
)

const namespace = "presensi"

// ── Session metrics ───────────────────────────────────────────────────────────

// CheckInsTotal counts check-in attempts.
// Label:
//   - result: "ok", "validation", "conflict", "not_found", "forbidden",
//     "unauthenticated" or "error"
var CheckInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_ins_total",
		Help:      "Total number of check-in attempts, by result.",
	},
	[]string{"result"},
)

// CheckOutsTotal counts check-out attempts.
// Label:
//   - result: same values as CheckInsTotal
var CheckOutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "check_outs_total",
		Help:      "Total number of check-out attempts, by result.",
	},
	[]string{"result"},
)

// SessionDuration observes how long closed sessions lasted.
var SessionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_duration_hours",
		Help:      "Length of attendance sessions at check-out, in hours.",
		Buckets:   []float64{0.5, 1, 2, 4, 6, 8, 10, 12, 24},
	},
)

// ── Record administration ─────────────────────────────────────────────────────

// RecordOperationsTotal counts corrections and deletions.
// Labels:
//   - operation: "update" or "delete"
//   - result: same values as CheckInsTotal
var RecordOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_operations_total",
		Help:      "Total number of attendance record corrections and deletions.",
	},
	[]string{"operation", "result"},
)

// ── Queries ───────────────────────────────────────────────────────────────────

// QueryRows observes how many rows search and report queries return.
// Label:
//   - query: "search_by_date" or "daily_report"
var QueryRows = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_rows",
		Help:      "Number of rows returned by attendance queries.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"query"},
)

// ── Photos ────────────────────────────────────────────────────────────────────

// PhotoUploadBytes observes the size of accepted selfie uploads.
var PhotoUploadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "photo_upload_bytes",
		Help:      "Size of selfie photos received at check-in.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10), // 16KiB .. 8MiB
	},
)

// Result converts an operation error into a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "error"
	}
}
