// Package triage orchestrates one batch run: group records by actor,
// derive each actor's timing signal once, then push every record through
// the rule evaluator.
package triage

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sentriage/sentriage/internal/anomaly"
	"github.com/sentriage/sentriage/internal/record"
	"github.com/sentriage/sentriage/internal/rules"
	"github.com/sentriage/sentriage/internal/trust"
)

// SkippedRecord notes a record that failed validation and received no
// verdict.
type SkippedRecord struct {
	Index  int    `json:"index"`
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// DegradedActor notes an actor whose timing signal could not be computed
// and was replaced with a neutral one.
type DegradedActor struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// Report is the side channel returned with every run: nothing in here
// aborts a batch, but none of it is silent either.
type Report struct {
	Records  int             `json:"records"`
	Verdicts int             `json:"verdicts"`
	Skipped  []SkippedRecord `json:"skipped,omitempty"`
	Degraded []DegradedActor `json:"degraded,omitempty"`
	Elapsed  time.Duration   `json:"elapsed"`
}

// Engine runs batches of records through anomaly detection and the rule
// evaluator. It holds only immutable configuration and is safe for
// concurrent Run calls.
type Engine struct {
	eval   *rules.Evaluator
	logger *slog.Logger
	detect func(actor string, times []time.Time, threshold float64) ([]anomaly.IntervalSample, error)
}

// NewEngine builds an engine around an evaluator with the given
// thresholds.
func NewEngine(th rules.Thresholds, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		eval:   rules.NewEvaluator(th),
		logger: logger,
		detect: anomaly.Detect,
	}
}

// Evaluator exposes the underlying rule evaluator.
func (e *Engine) Evaluator() *rules.Evaluator {
	return e.eval
}

// actorSignal holds one actor's precomputed timing state for a run.
type actorSignal struct {
	byEvent  map[time.Time]rules.Signal
	degraded bool
}

// Run triages a batch. Every valid record yields exactly one verdict, in
// input order; invalid records and degraded actors are reported, never
// fatal. The trusted set is treated as an immutable snapshot.
func (e *Engine) Run(recs []record.LogRecord, trusted trust.Set) ([]rules.Verdict, *Report) {
	start := time.Now()
	report := &Report{Records: len(recs)}

	byActor := GroupByActor(recs)

	signals := make(map[string]actorSignal, len(byActor))
	for actor, actorRecs := range byActor {
		signals[actor] = e.actorTiming(actor, actorRecs, report)
	}

	verdicts := make([]rules.Verdict, 0, len(recs))
	for i := range recs {
		rec := &recs[i]

		sig, tags := e.recordSignal(rec, signals[rec.Username])

		v, err := e.eval.Evaluate(rec, trusted, sig)
		if err != nil {
			var ire *record.InvalidRecordError
			if errors.As(err, &ire) {
				e.logger.Warn("record skipped", "index", i, "actor", rec.Username, "reason", ire.Error())
				report.Skipped = append(report.Skipped, SkippedRecord{
					Index:  i,
					Actor:  rec.Username,
					Reason: ire.Error(),
				})
				continue
			}
			// The evaluator only returns validation errors today; treat
			// anything else the same way rather than dropping the batch.
			report.Skipped = append(report.Skipped, SkippedRecord{Index: i, Actor: rec.Username, Reason: err.Error()})
			continue
		}

		v.RationaleTags = append(v.RationaleTags, tags...)
		verdicts = append(verdicts, v)
	}

	report.Verdicts = len(verdicts)
	report.Elapsed = time.Since(start)
	return verdicts, report
}

// actorTiming computes one actor's per-event timing signals. A detector
// failure degrades the actor to a neutral signal and lands in the report.
func (e *Engine) actorTiming(actor string, actorRecs []*record.LogRecord, report *Report) actorSignal {
	times := anomaly.Sequence(actorRecs)

	samples, err := e.detect(actor, times, e.eval.Thresholds().ZScore)
	if err != nil {
		e.logger.Warn("timing signal degraded", "actor", actor, "error", err)
		report.Degraded = append(report.Degraded, DegradedActor{Actor: actor, Reason: err.Error()})
		return actorSignal{degraded: true}
	}
	if len(samples) == 0 {
		return actorSignal{}
	}

	byEvent := make(map[time.Time]rules.Signal, len(samples))
	for _, s := range samples {
		sig := rules.Signal{TimingAnomaly: s.Anomalous, IntervalScore: s.ZScore}
		// Records sharing a timestamp share one signal; keep the most
		// anomalous sample for it so a flagged interval is never masked
		// by a duplicate.
		if prev, ok := byEvent[s.At]; !ok || sig.IntervalScore > prev.IntervalScore {
			byEvent[s.At] = sig
		}
	}
	return actorSignal{byEvent: byEvent}
}

// recordSignal resolves the timing signal for one record plus any
// degradation tags that must ride along on its verdict.
func (e *Engine) recordSignal(rec *record.LogRecord, as actorSignal) (rules.Signal, []string) {
	if !rec.HasTimestamp() {
		return rules.Signal{}, []string{rules.TagNoTimestamp}
	}
	if as.degraded {
		return rules.Signal{}, []string{rules.TagTimingDegraded}
	}
	return as.byEvent[rec.Timestamp], nil
}

// GroupByActor buckets records by username, preserving each actor's
// input order. The returned slices point into recs.
func GroupByActor(recs []record.LogRecord) map[string][]*record.LogRecord {
	out := make(map[string][]*record.LogRecord)
	for i := range recs {
		out[recs[i].Username] = append(out[recs[i].Username], &recs[i])
	}
	return out
}
