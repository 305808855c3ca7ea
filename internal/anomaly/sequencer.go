package anomaly

import (
	"sort"
	"time"

	"github.com/sentriage/sentriage/internal/record"
)

// Sequence extracts an actor's event timestamps in ascending order.
// Records without a usable timestamp are excluded; they still flow
// through the non-temporal rules elsewhere.
func Sequence(recs []*record.LogRecord) []time.Time {
	out := make([]time.Time, 0, len(recs))
	for _, r := range recs {
		if r.HasTimestamp() {
			out = append(out, r.Timestamp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
