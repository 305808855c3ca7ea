// Package ingest materializes log records from CSV exports. Only the
// semantic columns matter; extra columns are ignored and column order is
// taken from the header row.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sentriage/sentriage/internal/record"
)

// Accepted timestamp layouts. Access-log style and RFC 3339 both show up
// in the wild, often in the same export.
var timestampLayouts = []string{
	"02/Jan/2006:15:04:05 -0700",
	"2006-01-02T15:04:05Z",
}

// SkippedRow notes a CSV row that could not be turned into a record.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report summarizes one CSV load.
type Report struct {
	Rows          int          `json:"rows"`
	Loaded        int          `json:"loaded"`
	BadTimestamps int          `json:"bad_timestamps"`
	Skipped       []SkippedRow `json:"skipped,omitempty"`
}

// LoadFile reads records from a CSV file.
func LoadFile(path string) ([]record.LogRecord, *Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load reads records from CSV data. Required columns: username,
// timestamp, volume_MB, geo_location, known_malicious. Optional:
// endpoint, failed_login. Rows with malformed numeric or boolean fields
// are skipped into the report; an unparseable timestamp only drops the
// record from interval analysis, not from triage.
func Load(r io.Reader) ([]record.LogRecord, *Report, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"username", "timestamp", "volume_MB", "geo_location", "known_malicious"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("CSV missing required column %q", required)
		}
	}

	report := &Report{}
	var records []record.LogRecord

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}
		report.Rows++

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		volume, err := strconv.ParseFloat(field("volume_MB"), 64)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("bad volume_MB %q", field("volume_MB"))})
			continue
		}

		malicious, err := strconv.ParseBool(field("known_malicious"))
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("bad known_malicious %q", field("known_malicious"))})
			continue
		}

		rec := record.LogRecord{
			Username:       field("username"),
			VolumeMB:       volume,
			GeoLocation:    field("geo_location"),
			KnownMalicious: malicious,
			Endpoint:       field("endpoint"),
		}

		if raw := field("failed_login"); raw != "" {
			failed, err := strconv.ParseBool(raw)
			if err != nil {
				report.Skipped = append(report.Skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("bad failed_login %q", raw)})
				continue
			}
			rec.FailedLogin = failed
		}

		ts, ok := parseTimestamp(field("timestamp"))
		if !ok {
			report.BadTimestamps++
		}
		rec.Timestamp = ts

		records = append(records, rec)
	}

	report.Loaded = len(records)
	return records, report, nil
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
