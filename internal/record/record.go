// Package record defines the log record type shared by the ingestion,
// triage, and scoring layers.
package record

import (
	"fmt"
	"time"
)

// LogRecord is one authentication/activity log event. Records are treated
// as immutable once constructed; the triage engine only ever reads them.
type LogRecord struct {
	Username       string    `json:"username"`
	Timestamp      time.Time `json:"timestamp"`
	VolumeMB       float64   `json:"volume_mb"`
	GeoLocation    string    `json:"geo_location"`
	KnownMalicious bool      `json:"known_malicious"`
	Endpoint       string    `json:"endpoint,omitempty"`
	FailedLogin    bool      `json:"failed_login,omitempty"`
}

// HasTimestamp reports whether the record carries a usable timestamp.
// Records without one are excluded from interval analysis but still
// pass through the non-temporal rules.
func (r *LogRecord) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// InvalidRecordError reports a record that cannot be triaged.
type InvalidRecordError struct {
	Field  string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record: %s %s", e.Field, e.Reason)
}

// Validate checks the fields the rule evaluator depends on.
func (r *LogRecord) Validate() error {
	if r.Username == "" {
		return &InvalidRecordError{Field: "username", Reason: "is empty"}
	}
	if r.GeoLocation == "" {
		return &InvalidRecordError{Field: "geo_location", Reason: "is empty"}
	}
	if r.VolumeMB < 0 {
		return &InvalidRecordError{Field: "volume_MB", Reason: fmt.Sprintf("is negative (%g)", r.VolumeMB)}
	}
	return nil
}
