package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists scan outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const entryColumns = "id, scan_id, request_id, outcome, started_at, ended_at, elapsed_ms, attrs_json"

// Open creates or connects to the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one entry and returns its row id.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if entry.Outcome == "" {
		return 0, errors.New("record history: outcome is required")
	}
	var attrs sql.NullString
	if len(entry.Attrs) > 0 {
		encoded, err := json.Marshal(entry.Attrs)
		if err != nil {
			return 0, fmt.Errorf("encode attrs: %w", err)
		}
		attrs = sql.NullString{String: string(encoded), Valid: true}
	}
	if entry.EndedAt.IsZero() {
		entry.EndedAt = entry.StartedAt
	}

	res, err := s.exec(ctx,
		`INSERT INTO scan_events (scan_id, request_id, outcome, started_at, ended_at, elapsed_ms, attrs_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ScanID,
		entry.RequestID,
		string(entry.Outcome),
		formatTime(entry.StartedAt),
		formatTime(entry.EndedAt),
		entry.Elapsed.Milliseconds(),
		attrs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history entry id: %w", err)
	}
	return id, nil
}

// List returns entries matching filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.RequestID != "" {
		clauses = append(clauses, "request_id = ?")
		args = append(args, filter.RequestID)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	query := `SELECT ` + entryColumns + ` FROM scan_events`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Stats counts entries per outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Counts: make(map[Outcome]int, len(Outcomes()))}
	rows, err := s.query(ctx, `SELECT outcome, COUNT(1) FROM scan_events GROUP BY outcome`)
	if err != nil {
		return stats, fmt.Errorf("query history stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return stats, fmt.Errorf("scan history stats: %w", err)
		}
		stats.Counts[Outcome(outcome)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate history stats: %w", err)
	}
	return stats, nil
}

// Prune deletes entries that ended before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM scan_events WHERE ended_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history rows: %w", err)
	}
	return n, nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM scan_events`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear history rows: %w", err)
	}
	return n, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry      Entry
		outcome    string
		startedRaw string
		endedRaw   string
		elapsedMS  int64
		attrs      sql.NullString
	)
	if err := scanner.Scan(&entry.ID, &entry.ScanID, &entry.RequestID, &outcome, &startedRaw, &endedRaw, &elapsedMS, &attrs); err != nil {
		return Entry{}, fmt.Errorf("scan history row: %w", err)
	}
	entry.Outcome = Outcome(outcome)
	entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	var err error
	if entry.StartedAt, err = parseTime(startedRaw); err != nil {
		return Entry{}, fmt.Errorf("parse started_at: %w", err)
	}
	if entry.EndedAt, err = parseTime(endedRaw); err != nil {
		return Entry{}, fmt.Errorf("parse ended_at: %w", err)
	}
	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &entry.Attrs); err != nil {
			return Entry{}, fmt.Errorf("decode attrs: %w", err)
		}
	}
	return entry, nil
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
