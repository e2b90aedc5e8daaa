// Package journal records terminal trigger dispositions in SQLite.
//
// The journal is a write-only audit sink consumed by `strobe trace`. It is
// deliberately not trigger-state persistence: pending requests are never
// written, and nothing is restored on restart.
package journal

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/strobelab/strobe/internal/trigger"
)

//go:embed schema.sql
var schemaSQL string

// Disposition values stored in the journal.
const (
	DispositionEmitted = "emitted"
	DispositionDropped = "dropped"
)

// Record is one journaled trigger disposition.
type Record struct {
	Seq           int64
	RequestID     string
	TargetJSON    string
	Disposition   string
	TriggerSample uint64  // valid when Disposition == emitted
	LateDelta     float64 // valid when Disposition == emitted
	RecordedAt    time.Time
}

// Journal provides durable storage for trigger dispositions.
// Uses SQLite with WAL mode for concurrent read access.
type Journal struct {
	db *sql.DB
}

// Open creates or opens a SQLite journal at the given path.
// Applies required pragmas and the schema automatically; idempotent.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: failed to connect: %w", err)
	}

	// SQLite allows one writer at a time; keep the pool at one connection
	// to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: failed to apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record writes one matcher result. The raw target form is stored as JSON
// so `strobe trace` can echo it the way the caller submitted it.
func (j *Journal) Record(r trigger.Result) error {
	targetJSON, err := json.Marshal(r.Request.Raw)
	if err != nil {
		// Raw forms are plain numbers or small slices; failure here means
		// a programming error upstream.
		return fmt.Errorf("journal: failed to encode target: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if r.Dropped {
		_, err = j.db.Exec(
			`INSERT INTO trigger_log (request_id, target_json, disposition, recorded_at)
			 VALUES (?, ?, ?, ?)`,
			r.Request.ID, string(targetJSON), DispositionDropped, now)
	} else {
		_, err = j.db.Exec(
			`INSERT INTO trigger_log (request_id, target_json, disposition, trigger_sample, late_delta, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.Request.ID, string(targetJSON), DispositionEmitted,
			int64(r.Event.TriggerSample), r.Event.LateDelta, now)
	}
	if err != nil {
		return fmt.Errorf("journal: failed to insert record: %w", err)
	}
	return nil
}

// List returns all records in seq order.
func (j *Journal) List() ([]Record, error) {
	rows, err := j.db.Query(
		`SELECT seq, request_id, target_json, disposition,
		        COALESCE(trigger_sample, 0), COALESCE(late_delta, 0), recorded_at
		 FROM trigger_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to query: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec    Record
			sample int64
			at     string
		)
		if err := rows.Scan(&rec.Seq, &rec.RequestID, &rec.TargetJSON,
			&rec.Disposition, &sample, &rec.LateDelta, &at); err != nil {
			return nil, fmt.Errorf("journal: failed to scan row: %w", err)
		}
		rec.TriggerSample = uint64(sample)
		rec.RecordedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("journal: bad timestamp %q: %w", at, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
