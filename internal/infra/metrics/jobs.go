package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sweepRunsTotal, sweepAffectedTotal, sweepErrorsTotal) }

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Sweeper cycles by job and outcome (ok/failed/skipped).",
		},
		[]string{"job", "result"},
	)

	sweepAffectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_affected_total",
			Help: "Entities transitioned or removed by a sweeper job.",
		},
		[]string{"job"},
	)

	sweepErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_item_errors_total",
			Help: "Per-entity failures logged during a sweep.",
		},
		[]string{"job"},
	)
)

func IncSweepRun(job, result string) {
	sweepRunsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}

func AddSweepAffected(job string, n int) {
	sweepAffectedTotal.WithLabelValues(norm(job)).Add(float64(n))
}

func IncSweepItemError(job string) {
	sweepErrorsTotal.WithLabelValues(norm(job)).Inc()
}
