package anomaly

import (
	"errors"
	"testing"
	"time"

	"github.com/sentriage/sentriage/internal/record"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(seconds ...int) []time.Time {
	out := make([]time.Time, len(seconds))
	for i, s := range seconds {
		out[i] = t0.Add(time.Duration(s) * time.Second)
	}
	return out
}

func TestDetect_PeriodicSequenceScoresZero(t *testing.T) {
	// Constant intervals have zero variance; every z must be defined as 0.
	samples, err := Detect("alice", at(0, 10, 20, 30, 40), 2.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 4 {
		t.Fatalf("samples = %d, want 4", len(samples))
	}
	for i, s := range samples {
		if s.ZScore != 0 {
			t.Errorf("sample %d: z = %g, want 0", i, s.ZScore)
		}
		if s.Anomalous {
			t.Errorf("sample %d: flagged on a periodic sequence", i)
		}
	}
}

func TestDetect_BurstGapFlagged(t *testing.T) {
	// Ten steady 10s intervals, then a 200s gap. The outlier's z is about
	// 3.0 against the population stddev and must be flagged at 2.5.
	times := at(0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 290)
	samples, err := Detect("alice", times, 2.5)
	if err != nil {
		t.Fatal(err)
	}
	last := samples[len(samples)-1]
	if !last.Anomalous {
		t.Errorf("gap interval not flagged, z = %g", last.ZScore)
	}
	if !last.At.Equal(times[len(times)-1]) {
		t.Errorf("sample attributed to %v, want the later event %v", last.At, times[len(times)-1])
	}
	for _, s := range samples[:len(samples)-1] {
		if s.Anomalous {
			t.Errorf("steady interval at %v flagged, z = %g", s.At, s.ZScore)
		}
	}
}

func TestDetect_ThreeIntervalsLowThreshold(t *testing.T) {
	// With only three intervals the population z-score cannot exceed
	// sqrt(2), so the outlier is only visible at a lower threshold.
	samples, err := Detect("alice", at(0, 10, 10, 200), 1.2)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(samples))
	}
	if !samples[2].Anomalous {
		t.Errorf("190s interval not flagged, z = %g", samples[2].ZScore)
	}
	if samples[0].Anomalous || samples[1].Anomalous {
		t.Error("short intervals flagged")
	}
}

func TestDetect_TooFewTimestamps(t *testing.T) {
	for _, times := range [][]time.Time{nil, at(0), at(0, 10)} {
		samples, err := Detect("alice", times, 2.5)
		if err != nil {
			t.Fatal(err)
		}
		if len(samples) != 0 {
			t.Errorf("%d timestamps: samples = %d, want 0", len(times), len(samples))
		}
	}
}

func TestDetect_UnsortedInput(t *testing.T) {
	_, err := Detect("alice", at(0, 30, 20, 40), 2.5)
	var ue *UnsortedInputError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UnsortedInputError", err)
	}
	if ue.Actor != "alice" || ue.Index != 2 {
		t.Errorf("error = %+v", ue)
	}
}

func TestDetect_EqualTimestampsAreSorted(t *testing.T) {
	// Equal adjacent timestamps are valid: ascending, interval 0.
	if _, err := Detect("alice", at(0, 10, 10, 20), 2.5); err != nil {
		t.Fatal(err)
	}
}

func TestDetect_DefaultThreshold(t *testing.T) {
	times := at(0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 290)
	samples, err := Detect("alice", times, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !samples[len(samples)-1].Anomalous {
		t.Error("zero threshold should fall back to the default, flagging the gap")
	}
}

func TestSequence(t *testing.T) {
	recs := []*record.LogRecord{
		{Username: "alice", Timestamp: t0.Add(20 * time.Second)},
		{Username: "alice"}, // no timestamp, excluded
		{Username: "alice", Timestamp: t0},
		{Username: "alice", Timestamp: t0.Add(10 * time.Second)},
	}
	times := Sequence(recs)
	if len(times) != 3 {
		t.Fatalf("times = %d, want 3", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			t.Fatalf("times not ascending: %v", times)
		}
	}
}
