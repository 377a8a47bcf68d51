// Package sqlite provides SQLite-backed persistence for the session journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/roundtable/internal/chronicle"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides SQLite-backed persistence for journal records.
type Store struct {
	sqlDB *sql.DB
}

// DB returns the underlying sql.DB instance.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens a SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	const schema = `
CREATE TABLE IF NOT EXISTS journal_records (
	seq INTEGER PRIMARY KEY,
	speaker TEXT NOT NULL,
	text TEXT NOT NULL,
	timestamp_ms INTEGER NOT NULL,
	kind TEXT NOT NULL,
	payload_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_journal_records_speaker ON journal_records (speaker);
`
	if _, err := s.sqlDB.Exec(schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// AppendRecord persists a journal record. The record's sequence number is
// assigned by the log and must be unique.
func (s *Store) AppendRecord(ctx context.Context, rec chronicle.Record) error {
	var payload any
	if len(rec.PayloadJSON) > 0 {
		payload = string(rec.PayloadJSON)
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO journal_records (seq, speaker, text, timestamp_ms, kind, payload_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Seq, rec.Speaker, rec.Text, toMillis(rec.Timestamp), string(rec.Kind), payload,
	)
	if err != nil {
		return fmt.Errorf("insert journal record: %w", err)
	}
	return nil
}

// GetRecord loads a single record by sequence number.
func (s *Store) GetRecord(ctx context.Context, seq uint64) (chronicle.Record, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT seq, speaker, text, timestamp_ms, kind, payload_json
		 FROM journal_records WHERE seq = ?`, seq)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chronicle.Record{}, ErrNotFound
	}
	if err != nil {
		return chronicle.Record{}, fmt.Errorf("get journal record: %w", err)
	}
	return rec, nil
}

// ListRecords returns up to limit records with sequence numbers greater than
// afterSeq, in ascending order. A limit of zero or less means no limit.
func (s *Store) ListRecords(ctx context.Context, afterSeq uint64, limit int) ([]chronicle.Record, error) {
	query := `SELECT seq, speaker, text, timestamp_ms, kind, payload_json
		 FROM journal_records WHERE seq > ? ORDER BY seq ASC`
	args := []any{afterSeq}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}
	defer rows.Close()

	var records []chronicle.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (chronicle.Record, error) {
	var (
		rec         chronicle.Record
		timestampMS int64
		kind        string
		payload     sql.NullString
	)
	if err := row.Scan(&rec.Seq, &rec.Speaker, &rec.Text, &timestampMS, &kind, &payload); err != nil {
		return chronicle.Record{}, err
	}
	rec.Timestamp = fromMillis(timestampMS)
	rec.Kind = chronicle.Kind(kind)
	if payload.Valid {
		rec.PayloadJSON = []byte(payload.String)
	}
	return rec, nil
}
