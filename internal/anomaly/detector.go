// Package anomaly derives a timing signal from per-actor login sequences:
// the z-score of each inter-event interval against the actor's own mean.
package anomaly

import (
	"fmt"
	"math"
	"time"
)

// DefaultThreshold is the |z| above which an interval is flagged.
const DefaultThreshold = 2.5

// IntervalSample is the anomaly signal for one inter-event interval.
// The sample is attributed to the later event of the pair, since that is
// the event whose delay or burst is unusual.
type IntervalSample struct {
	Actor           string    `json:"actor"`
	At              time.Time `json:"at"`
	IntervalSeconds float64   `json:"interval_seconds"`
	ZScore          float64   `json:"z_score"`
	Anomalous       bool      `json:"anomalous"`
}

// UnsortedInputError reports a timestamp sequence that is not ascending.
// The detector refuses to resort: out-of-order input means something
// upstream is broken and should be surfaced, not papered over.
type UnsortedInputError struct {
	Actor string
	Index int
}

func (e *UnsortedInputError) Error() string {
	return fmt.Sprintf("timestamps for %s not ascending at index %d", e.Actor, e.Index)
}

// Detect computes interval z-scores over an ascending timestamp sequence.
// Fewer than three timestamps (two intervals) yield no samples: a single
// interval has no distribution to deviate from. A zero-variance sequence
// scores z = 0 everywhere.
func Detect(actor string, times []time.Time, threshold float64) ([]IntervalSample, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return nil, &UnsortedInputError{Actor: actor, Index: i}
		}
	}

	if len(times) < 3 {
		return nil, nil
	}

	intervals := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals[i-1] = times[i].Sub(times[i-1]).Seconds()
	}

	mean, stddev := meanStddev(intervals)

	samples := make([]IntervalSample, len(intervals))
	for i, iv := range intervals {
		z := 0.0
		if stddev > 0 {
			z = math.Abs(iv-mean) / stddev
		}
		samples[i] = IntervalSample{
			Actor:           actor,
			At:              times[i+1],
			IntervalSeconds: iv,
			ZScore:          z,
			Anomalous:       z > threshold,
		}
	}
	return samples, nil
}

// meanStddev returns the population mean and standard deviation.
func meanStddev(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
