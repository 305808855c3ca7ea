// Package risk computes a per-actor composite risk score from weighted
// behavioral sub-signals. The score is an enrichment signal for analysts
// and custom rules; the rule evaluator does not depend on it.
package risk

import (
	"time"

	"github.com/sentriage/sentriage/internal/record"
)

// Sub-score caps. Each factor saturates independently before summing so
// no single noisy signal can dominate the total.
const (
	loginWeight    = 10
	loginCap       = 40
	endpointWeight = 5
	endpointCap    = 30
	volumeWeight   = 2
	volumeCap      = 20
	burstScore     = 10
	burstWindow    = 60 * time.Second
	totalCap       = 100
)

// Score is the composite risk assessment for one actor.
type Score struct {
	Actor         string `json:"actor"`
	LoginScore    int    `json:"login_score"`
	EndpointScore int    `json:"endpoint_score"`
	VolumeScore   int    `json:"volume_score"`
	TimeScore     int    `json:"time_score"`
	TotalScore    int    `json:"total_score"`
}

// Compute scores one actor's records. All records are assumed to belong
// to the same actor; the actor name is taken from the first record.
func Compute(recs []*record.LogRecord) Score {
	var s Score
	if len(recs) == 0 {
		return s
	}
	s.Actor = recs[0].Username

	failed := 0
	endpoints := make(map[string]struct{})
	var first, last time.Time
	for _, r := range recs {
		if r.FailedLogin {
			failed++
		}
		if r.Endpoint != "" {
			endpoints[r.Endpoint] = struct{}{}
		}
		if r.HasTimestamp() {
			if first.IsZero() || r.Timestamp.Before(first) {
				first = r.Timestamp
			}
			if r.Timestamp.After(last) {
				last = r.Timestamp
			}
		}
	}

	s.LoginScore = capped(failed*loginWeight, loginCap)
	s.EndpointScore = capped(len(endpoints)*endpointWeight, endpointCap)
	s.VolumeScore = capped(len(recs)*volumeWeight, volumeCap)

	// Burst concentration: the actor's whole activity packed into under
	// a minute reads as scripted, not human.
	if !first.IsZero() && last.Sub(first) < burstWindow {
		s.TimeScore = burstScore
	}

	s.TotalScore = capped(s.LoginScore+s.EndpointScore+s.VolumeScore+s.TimeScore, totalCap)
	return s
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}
