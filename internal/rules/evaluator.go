// Package rules implements the ordered rule evaluator at the center of
// triage. The rule list is explicit and evaluated front to back; the
// first predicate that matches decides the verdict.
package rules

import (
	"github.com/sentriage/sentriage/internal/record"
	"github.com/sentriage/sentriage/internal/trust"
)

// Rule identifiers, recorded in Verdict.RationaleTags for auditability.
const (
	RuleForeignExfil       = "foreign-high-volume-malicious"
	RuleDomesticHighVolume = "domestic-high-volume-malicious"
	RuleMaliciousOrForeign = "malicious-or-foreign-low-volume"
	RuleUntrustedDomestic  = "untrusted-domestic-low-volume"
	RuleTimingAnomaly      = "timing-anomaly"
	RuleDefault            = "no-rule-matched"

	// TagTimingDegraded marks verdicts whose actor's timing signal could
	// not be computed and was replaced by a neutral one.
	TagTimingDegraded = "timing-degraded"
	// TagNoTimestamp marks verdicts evaluated without a temporal signal
	// because the record carried no usable timestamp.
	TagNoTimestamp = "no-timestamp"
)

// Signal is the precomputed per-event timing signal for a record's actor.
// The zero value means "no timing information".
type Signal struct {
	TimingAnomaly bool    `json:"timing_anomaly"`
	IntervalScore float64 `json:"interval_score"`
}

// Verdict is the triage outcome for one record.
type Verdict struct {
	Record        *record.LogRecord `json:"record"`
	Label         Label             `json:"label"`
	RationaleTags []string          `json:"rationale_tags"`
}

// Thresholds are the tunable boundaries of the rule set.
type Thresholds struct {
	VolumeMB    float64
	DomesticGeo string
	ZScore      float64
}

// DefaultThresholds returns the stock rule boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VolumeMB:    5000,
		DomesticGeo: "United States",
		ZScore:      2.5,
	}
}

// Rule pairs an identifier and outcome label with its predicate.
type Rule struct {
	ID    string
	Label Label
	Match func(rec *record.LogRecord, trusted trust.Set, sig Signal) bool
}

// Evaluator applies the ordered rule list. It holds no mutable state and
// is safe for concurrent use.
type Evaluator struct {
	th    Thresholds
	rules []Rule
}

// NewEvaluator builds an evaluator with the given thresholds. Zero-value
// threshold fields fall back to the defaults.
func NewEvaluator(th Thresholds) *Evaluator {
	def := DefaultThresholds()
	if th.VolumeMB == 0 {
		th.VolumeMB = def.VolumeMB
	}
	if th.DomesticGeo == "" {
		th.DomesticGeo = def.DomesticGeo
	}
	if th.ZScore == 0 {
		th.ZScore = def.ZScore
	}

	e := &Evaluator{th: th}

	// Precedence order matters: severe, specific combinations must win
	// before the cheaper heuristics get a look. Volume comparisons are
	// strict on both sides, so volume == threshold skips both branches.
	e.rules = []Rule{
		{
			ID:    RuleForeignExfil,
			Label: LabelEscalateHighRisk,
			Match: func(rec *record.LogRecord, _ trust.Set, _ Signal) bool {
				return rec.VolumeMB > th.VolumeMB &&
					rec.GeoLocation != th.DomesticGeo &&
					rec.KnownMalicious
			},
		},
		{
			ID:    RuleDomesticHighVolume,
			Label: LabelDomesticHighVolume,
			Match: func(rec *record.LogRecord, _ trust.Set, _ Signal) bool {
				return rec.VolumeMB > th.VolumeMB &&
					rec.GeoLocation == th.DomesticGeo &&
					rec.KnownMalicious
			},
		},
		{
			ID:    RuleMaliciousOrForeign,
			Label: LabelMaliciousOrForeignLowVolume,
			Match: func(rec *record.LogRecord, trusted trust.Set, _ Signal) bool {
				return ((rec.VolumeMB < th.VolumeMB && rec.GeoLocation != th.DomesticGeo) ||
					rec.KnownMalicious) &&
					!trusted.Contains(rec.Username)
			},
		},
		{
			ID:    RuleUntrustedDomestic,
			Label: LabelSuspiciousDomesticLowVolume,
			Match: func(rec *record.LogRecord, trusted trust.Set, _ Signal) bool {
				return rec.VolumeMB < th.VolumeMB &&
					rec.GeoLocation == th.DomesticGeo &&
					!trusted.Contains(rec.Username)
			},
		},
		{
			ID:    RuleTimingAnomaly,
			Label: LabelSuspiciousTiming,
			Match: func(rec *record.LogRecord, trusted trust.Set, sig Signal) bool {
				return !trusted.Contains(rec.Username) &&
					(sig.TimingAnomaly || sig.IntervalScore > th.ZScore)
			},
		},
	}

	return e
}

// Thresholds returns the boundaries the evaluator was built with.
func (e *Evaluator) Thresholds() Thresholds {
	return e.th
}

// Evaluate runs the record through the rule list and returns exactly one
// verdict. It is a pure function of its inputs.
func (e *Evaluator) Evaluate(rec *record.LogRecord, trusted trust.Set, sig Signal) (Verdict, error) {
	if err := rec.Validate(); err != nil {
		return Verdict{}, err
	}

	for _, r := range e.rules {
		if r.Match(rec, trusted, sig) {
			return Verdict{
				Record:        rec,
				Label:         r.Label,
				RationaleTags: []string{r.ID},
			}, nil
		}
	}

	return Verdict{
		Record:        rec,
		Label:         LabelBenign,
		RationaleTags: []string{RuleDefault},
	}, nil
}
