package rules

import (
	"errors"
	"testing"

	"github.com/sentriage/sentriage/internal/record"
	"github.com/sentriage/sentriage/internal/trust"
)

func evalOne(t *testing.T, rec record.LogRecord, trusted trust.Set, sig Signal) Verdict {
	t.Helper()
	e := NewEvaluator(DefaultThresholds())
	v, err := e.Evaluate(&rec, trusted, sig)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return v
}

func TestEvaluate_ForeignHighVolumeMalicious(t *testing.T) {
	v := evalOne(t, record.LogRecord{
		Username: "mallory", VolumeMB: 6000, GeoLocation: "Germany", KnownMalicious: true,
	}, trust.New(), Signal{})
	if v.Label != LabelEscalateHighRisk {
		t.Errorf("label = %s, want %s", v.Label, LabelEscalateHighRisk)
	}
	if len(v.RationaleTags) != 1 || v.RationaleTags[0] != RuleForeignExfil {
		t.Errorf("rationale = %v", v.RationaleTags)
	}
}

func TestEvaluate_DomesticHighVolumeMalicious(t *testing.T) {
	v := evalOne(t, record.LogRecord{
		Username: "mallory", VolumeMB: 6000, GeoLocation: "United States", KnownMalicious: true,
	}, trust.New(), Signal{})
	if v.Label != LabelDomesticHighVolume {
		t.Errorf("label = %s, want %s", v.Label, LabelDomesticHighVolume)
	}
}

func TestEvaluate_UntrustedDomesticLowVolume(t *testing.T) {
	v := evalOne(t, record.LogRecord{
		Username: "bob", VolumeMB: 100, GeoLocation: "United States",
	}, trust.New(), Signal{})
	if v.Label != LabelSuspiciousDomesticLowVolume {
		t.Errorf("label = %s, want %s", v.Label, LabelSuspiciousDomesticLowVolume)
	}
}

func TestEvaluate_TrustedDomesticLowVolume(t *testing.T) {
	v := evalOne(t, record.LogRecord{
		Username: "alice", VolumeMB: 100, GeoLocation: "United States",
	}, trust.New("alice"), Signal{})
	if v.Label != LabelBenign {
		t.Errorf("label = %s, want %s", v.Label, LabelBenign)
	}
}

func TestEvaluate_ForeignLowVolumeUntrusted(t *testing.T) {
	v := evalOne(t, record.LogRecord{
		Username: "bob", VolumeMB: 10, GeoLocation: "Romania",
	}, trust.New(), Signal{})
	if v.Label != LabelMaliciousOrForeignLowVolume {
		t.Errorf("label = %s, want %s", v.Label, LabelMaliciousOrForeignLowVolume)
	}
}

func TestEvaluate_MaliciousLowVolumeDomestic(t *testing.T) {
	// known_malicious alone pulls an untrusted user into rule 3, even
	// domestically.
	v := evalOne(t, record.LogRecord{
		Username: "bob", VolumeMB: 10, GeoLocation: "United States", KnownMalicious: true,
	}, trust.New(), Signal{})
	if v.Label != LabelMaliciousOrForeignLowVolume {
		t.Errorf("label = %s, want %s", v.Label, LabelMaliciousOrForeignLowVolume)
	}
}

func TestEvaluate_TimingAnomaly(t *testing.T) {
	rec := record.LogRecord{Username: "bob", VolumeMB: 5000, GeoLocation: "United States"}

	v := evalOne(t, rec, trust.New(), Signal{TimingAnomaly: true, IntervalScore: 3.1})
	if v.Label != LabelSuspiciousTiming {
		t.Errorf("label = %s, want %s", v.Label, LabelSuspiciousTiming)
	}

	// Trusted users are exempt from the timing rule.
	v = evalOne(t, rec, trust.New("bob"), Signal{TimingAnomaly: true, IntervalScore: 3.1})
	if v.Label != LabelBenign {
		t.Errorf("trusted label = %s, want %s", v.Label, LabelBenign)
	}
}

func TestEvaluate_VolumeBoundaryGap(t *testing.T) {
	// Exactly 5000 MB matches neither the >5000 nor the <5000 branches.
	// A trusted domestic user at the boundary therefore lands on BENIGN.
	v := evalOne(t, record.LogRecord{
		Username: "alice", VolumeMB: 5000, GeoLocation: "United States", KnownMalicious: true,
	}, trust.New("alice"), Signal{})
	if v.Label != LabelBenign {
		t.Errorf("label = %s, want %s", v.Label, LabelBenign)
	}
}

func TestEvaluate_PrecedenceRuleOneWins(t *testing.T) {
	// A record satisfying rule 1 also satisfies rule 3's malicious arm,
	// but must always escalate.
	v := evalOne(t, record.LogRecord{
		Username: "bob", VolumeMB: 9000, GeoLocation: "Germany", KnownMalicious: true,
	}, trust.New(), Signal{TimingAnomaly: true, IntervalScore: 9})
	if v.Label != LabelEscalateHighRisk {
		t.Errorf("label = %s, want %s", v.Label, LabelEscalateHighRisk)
	}
}

func TestEvaluate_TrustExemptsRulesThreeAndFour(t *testing.T) {
	// Trust does not shield high-volume malicious activity (rules 1-2)...
	v := evalOne(t, record.LogRecord{
		Username: "sysadmin", VolumeMB: 6000, GeoLocation: "Germany", KnownMalicious: true,
	}, trust.New("sysadmin"), Signal{})
	if v.Label != LabelEscalateHighRisk {
		t.Errorf("label = %s, want %s", v.Label, LabelEscalateHighRisk)
	}

	// ...but it does exempt the low-volume heuristics.
	v = evalOne(t, record.LogRecord{
		Username: "sysadmin", VolumeMB: 10, GeoLocation: "Romania", KnownMalicious: true,
	}, trust.New("sysadmin"), Signal{})
	if v.Label != LabelBenign {
		t.Errorf("label = %s, want %s", v.Label, LabelBenign)
	}
}

func TestEvaluate_Totality(t *testing.T) {
	known := make(map[Label]bool)
	for _, l := range Labels() {
		known[l] = true
	}

	recs := []record.LogRecord{
		{Username: "a", VolumeMB: 6000, GeoLocation: "Germany", KnownMalicious: true},
		{Username: "b", VolumeMB: 6000, GeoLocation: "United States", KnownMalicious: true},
		{Username: "c", VolumeMB: 10, GeoLocation: "France"},
		{Username: "d", VolumeMB: 10, GeoLocation: "United States"},
		{Username: "e", VolumeMB: 5000, GeoLocation: "United States"},
		{Username: "f", VolumeMB: 6000, GeoLocation: "Germany"},
	}
	for _, rec := range recs {
		v := evalOne(t, rec, trust.New("e", "f"), Signal{})
		if !known[v.Label] {
			t.Errorf("record %s: label %q outside the closed set", rec.Username, v.Label)
		}
		if len(v.RationaleTags) == 0 {
			t.Errorf("record %s: no rationale tags", rec.Username)
		}
	}
}

func TestEvaluate_InvalidRecord(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())

	cases := []record.LogRecord{
		{Username: "", VolumeMB: 10, GeoLocation: "United States"},
		{Username: "bob", VolumeMB: 10, GeoLocation: ""},
		{Username: "bob", VolumeMB: -1, GeoLocation: "United States"},
	}
	for i, rec := range cases {
		_, err := e.Evaluate(&rec, trust.New(), Signal{})
		var ire *record.InvalidRecordError
		if !errors.As(err, &ire) {
			t.Errorf("case %d: err = %v, want InvalidRecordError", i, err)
		}
	}
}

func TestEvaluate_UnknownGeoIsNotAnError(t *testing.T) {
	v := evalOne(t, record.LogRecord{
		Username: "bob", VolumeMB: 10, GeoLocation: "Atlantis",
	}, trust.New(), Signal{})
	if v.Label != LabelMaliciousOrForeignLowVolume {
		t.Errorf("label = %s, want %s", v.Label, LabelMaliciousOrForeignLowVolume)
	}
}

func TestEvaluate_CustomThresholds(t *testing.T) {
	e := NewEvaluator(Thresholds{VolumeMB: 100, DomesticGeo: "Canada", ZScore: 1.0})
	rec := record.LogRecord{Username: "bob", VolumeMB: 150, GeoLocation: "Germany", KnownMalicious: true}
	v, err := e.Evaluate(&rec, trust.New(), Signal{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Label != LabelEscalateHighRisk {
		t.Errorf("label = %s, want %s", v.Label, LabelEscalateHighRisk)
	}
}
