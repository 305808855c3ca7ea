// Package metrics exposes Prometheus collectors for the triage pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sentriage/sentriage/internal/rules"
	"github.com/sentriage/sentriage/internal/triage"
)

var (
	RecordsTriaged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentriage_records_triaged_total",
		Help: "Records evaluated by the rule engine.",
	})

	VerdictsByLabel = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentriage_verdicts_total",
		Help: "Verdicts emitted, by label.",
	}, []string{"label"})

	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentriage_records_skipped_total",
		Help: "Records skipped due to validation failures.",
	})

	ActorsDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentriage_actors_degraded_total",
		Help: "Actors whose timing signal was degraded to neutral.",
	})

	RunsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentriage_runs_total",
		Help: "Completed triage runs.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentriage_run_duration_seconds",
		Help:    "Wall time per triage run.",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveRun records the outcome of one triage run.
func ObserveRun(verdicts []rules.Verdict, rep *triage.Report) {
	RunsCompleted.Inc()
	RunDuration.Observe(rep.Elapsed.Seconds())
	RecordsTriaged.Add(float64(rep.Records))
	RecordsSkipped.Add(float64(len(rep.Skipped)))
	ActorsDegraded.Add(float64(len(rep.Degraded)))
	for _, v := range verdicts {
		VerdictsByLabel.WithLabelValues(string(v.Label)).Inc()
	}
}
