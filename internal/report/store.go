// Package report persists triage runs to SQLite and aggregates stored
// verdicts for downstream reporting and heatmap rendering.
package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sentriage/sentriage/internal/rules"
	"github.com/sentriage/sentriage/internal/triage"
)

const schema = `
CREATE TABLE IF NOT EXISTS triage_runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	records INTEGER NOT NULL,
	verdicts INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	degraded INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS verdicts (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	timestamp TEXT,
	username TEXT NOT NULL,
	geo_location TEXT NOT NULL,
	volume_mb REAL NOT NULL,
	known_malicious INTEGER NOT NULL,
	label TEXT NOT NULL,
	rationale TEXT
);

CREATE INDEX IF NOT EXISTS idx_verdicts_label ON verdicts(label);
CREATE INDEX IF NOT EXISTS idx_verdicts_username ON verdicts(username);
CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_timestamp ON verdicts(timestamp);
`

// Store manages the SQLite verdict database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the verdict database.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening verdict db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes a run summary and its verdicts in one transaction and
// returns the run ID.
func (s *Store) SaveRun(startedAt time.Time, verdicts []rules.Verdict, rep *triage.Report) (string, error) {
	runID := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting run transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		"INSERT INTO triage_runs (id, started_at, records, verdicts, skipped, degraded, elapsed_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
		runID, startedAt.UTC().Format(time.RFC3339), rep.Records, rep.Verdicts,
		len(rep.Skipped), len(rep.Degraded), rep.Elapsed.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO verdicts (id, run_id, timestamp, username, geo_location, volume_mb, known_malicious, label, rationale) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("preparing verdict insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range verdicts {
		var ts string
		if v.Record.HasTimestamp() {
			ts = v.Record.Timestamp.UTC().Format(time.RFC3339)
		}
		rationale, err := json.Marshal(v.RationaleTags)
		if err != nil {
			return "", fmt.Errorf("encoding rationale: %w", err)
		}
		malicious := 0
		if v.Record.KnownMalicious {
			malicious = 1
		}
		if _, err := stmt.Exec(uuid.New().String(), runID, ts, v.Record.Username,
			v.Record.GeoLocation, v.Record.VolumeMB, malicious, string(v.Label), string(rationale)); err != nil {
			return "", fmt.Errorf("inserting verdict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	s.logger.Info("run saved", "run_id", runID, "verdicts", len(verdicts))
	return runID, nil
}

// StoredVerdict is one persisted verdict row.
type StoredVerdict struct {
	ID             string   `json:"id"`
	RunID          string   `json:"run_id"`
	Timestamp      string   `json:"timestamp,omitempty"`
	Username       string   `json:"username"`
	GeoLocation    string   `json:"geo_location"`
	VolumeMB       float64  `json:"volume_mb"`
	KnownMalicious bool     `json:"known_malicious"`
	Label          string   `json:"label"`
	RationaleTags  []string `json:"rationale_tags,omitempty"`
}

// QueryOpts filters verdict queries. Zero values mean "no filter".
type QueryOpts struct {
	Label string
	Actor string
	Since string // RFC 3339
	Limit int
}

// Query returns stored verdicts matching the given filters, newest first.
func (s *Store) Query(opts QueryOpts) ([]StoredVerdict, error) {
	query := "SELECT id, run_id, timestamp, username, geo_location, volume_mb, known_malicious, label, rationale FROM verdicts WHERE 1=1"
	var args []any

	if opts.Label != "" {
		query += " AND label = ?"
		args = append(args, opts.Label)
	}
	if opts.Actor != "" {
		query += " AND username = ?"
		args = append(args, opts.Actor)
	}
	if opts.Since != "" {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else {
		query += " LIMIT 50"
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredVerdict
	for rows.Next() {
		var v StoredVerdict
		var ts, rationale sql.NullString
		var malicious int
		if err := rows.Scan(&v.ID, &v.RunID, &ts, &v.Username, &v.GeoLocation,
			&v.VolumeMB, &malicious, &v.Label, &rationale); err != nil {
			return nil, fmt.Errorf("scanning verdict: %w", err)
		}
		v.Timestamp = ts.String
		v.KnownMalicious = malicious == 1
		if rationale.Valid && rationale.String != "" {
			if err := json.Unmarshal([]byte(rationale.String), &v.RationaleTags); err != nil {
				s.logger.Warn("bad rationale payload", "verdict_id", v.ID, "error", err)
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
