package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// StepsTotal tracks executed migration steps per target.
var StepsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "migrator_steps_total",
		Help: "Total migration steps executed",
	},
	[]string{"environment", "database", "direction", "outcome"},
)

// StepDuration tracks the time spent executing a single migration step,
// including its ledger write and transaction control.
var StepDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "migrator_step_duration_seconds",
		Help:    "Time spent executing a migration step",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"environment", "direction"},
)

// TargetRunsTotal tracks per-target migrate and rollback runs.
var TargetRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "migrator_target_runs_total",
		Help: "Total per-database migrate and rollback runs",
	},
	[]string{"environment", "direction", "outcome"},
)

// LedgerDesyncTotal tracks detected ledger/schema inconsistencies.
var LedgerDesyncTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "migrator_ledger_desync_total",
		Help: "Total ledger desynchronizations detected",
	},
	[]string{"environment", "database"},
)

// PendingMigrations tracks the number of discovered migrations not yet applied.
var PendingMigrations = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "migrator_pending_migrations",
		Help: "Discovered migrations not yet applied",
	},
	[]string{"environment", "database"},
)

// RunDuration tracks the wall-clock time of a whole multi-database operation.
var RunDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "migrator_run_duration_seconds",
		Help:    "Wall-clock time of a migrate or rollback operation across all databases",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"environment", "direction"},
)
