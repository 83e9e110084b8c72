package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kilupskalvis/vhist/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteJournal implements Journal on a SQLite database
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens or creates a SQLite journal at the given path
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(1000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) initialize() error {
	schema := `
	-- Batches (append-only, seq gives replay order)
	CREATE TABLE IF NOT EXISTS batches (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		source TEXT,
		appended_at DATETIME NOT NULL,
		communes INTEGER NOT NULL,
		voies INTEGER NOT NULL,
		links INTEGER NOT NULL,
		data JSON NOT NULL
	);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Append inserts a batch; the row id becomes its sequence number.
// The stored JSON is written after the insert so it carries the assigned seq.
func (j *SQLiteJournal) Append(ctx context.Context, b *models.Batch) (uint64, error) {
	if err := checkBatch(b); err != nil {
		return 0, err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	b.AppendedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO batches (id, source, appended_at, communes, voies, links, data)
		VALUES (?, ?, ?, ?, ?, ?, '{}')`,
		b.ID, b.Source, b.AppendedAt.Format(time.RFC3339Nano),
		len(b.Communes), len(b.Voies), len(b.Links),
	)
	if err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("batch sequence: %w", err)
	}
	b.Seq = uint64(seq)

	data, err := json.Marshal(b)
	if err != nil {
		return 0, fmt.Errorf("marshal batch: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE batches SET data = ? WHERE seq = ?", string(data), seq); err != nil {
		return 0, fmt.Errorf("store batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return b.Seq, nil
}

// Get retrieves a batch by sequence number
func (j *SQLiteJournal) Get(ctx context.Context, seq uint64) (*models.Batch, error) {
	var data string
	err := j.db.QueryRowContext(ctx, "SELECT data FROM batches WHERE seq = ?", seq).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var b models.Batch
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("unmarshal batch %d: %w", seq, err)
	}
	return &b, nil
}

// List returns all batch headers in sequence order
func (j *SQLiteJournal) List(ctx context.Context) ([]models.BatchHeader, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, id, source, appended_at, communes, voies, links
		FROM batches
		ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []models.BatchHeader
	for rows.Next() {
		var h models.BatchHeader
		var source sql.NullString
		var appendedAt string

		if err := rows.Scan(&h.Seq, &h.ID, &source, &appendedAt, &h.Communes, &h.Voies, &h.Links); err != nil {
			return nil, err
		}
		h.Source = source.String
		h.AppendedAt = parseTimestamp(appendedAt)
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// Replay hands every batch to fn in sequence order
func (j *SQLiteJournal) Replay(ctx context.Context, fn func(*models.Batch) error) error {
	rows, err := j.db.QueryContext(ctx, "SELECT seq, data FROM batches ORDER BY seq")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var seq uint64
		var data string
		if err := rows.Scan(&seq, &data); err != nil {
			return err
		}
		var b models.Batch
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return fmt.Errorf("unmarshal batch %d: %w", seq, err)
		}
		if err := fn(&b); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of journaled batches
func (j *SQLiteJournal) Count(ctx context.Context) (int, error) {
	var count int
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches").Scan(&count)
	return count, err
}

// parseTimestamp parses a timestamp string from SQLite in various formats
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
