// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records produced artifacts in a SQLite database so repeated
// exports can be listed and compared.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/readme-export/pkg/types"
)

const defaultLimit = 20

// Ledger manages the export history database.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db, now: time.Now}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS exports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			format TEXT NOT NULL,
			artifact TEXT NOT NULL,
			size INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			images INTEGER NOT NULL DEFAULT 0,
			pages INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL,
			source_sha256 TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exports_format ON exports(format, id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores rec and returns it with ID and CreatedAt filled in. The
// returned flag reports whether the artifact is byte-identical to the
// previous record of the same format.
func (l *Ledger) Record(ctx context.Context, rec types.ExportRecord) (types.ExportRecord, bool, error) {
	prev, err := l.Last(ctx, rec.Format)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return rec, false, err
	}
	unchanged := err == nil && prev.SHA256 == rec.SHA256

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now().UTC()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO exports (format, artifact, size, sha256, images, pages, source, source_sha256, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Format), rec.Path, rec.Size, rec.SHA256, rec.Images, rec.Pages,
		rec.Source, rec.SourceSHA256, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return rec, false, fmt.Errorf("recording %s: %w", rec.Path, err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return rec, false, fmt.Errorf("reading record id: %w", err)
	}
	return rec, unchanged, nil
}

// Last returns the most recent record for format. It returns an error
// wrapping sql.ErrNoRows when there is none.
func (l *Ledger) Last(ctx context.Context, format types.Format) (types.ExportRecord, error) {
	recs, err := l.History(ctx, HistoryOptions{Format: format, Limit: 1})
	if err != nil {
		return types.ExportRecord{}, err
	}
	if len(recs) == 0 {
		return types.ExportRecord{}, fmt.Errorf("no %s exports recorded: %w", format, sql.ErrNoRows)
	}
	return recs[0], nil
}

// HistoryOptions filters History.
type HistoryOptions struct {
	// Format limits results to one artifact format. Empty means all.
	Format types.Format

	// Limit caps the number of records. Zero uses the default of 20;
	// negative means no limit.
	Limit int
}

// History returns records newest first.
func (l *Ledger) History(ctx context.Context, opts HistoryOptions) ([]types.ExportRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, format, artifact, size, sha256, images, pages, source, source_sha256, created_at FROM exports`)
	if opts.Format != "" {
		qb.WriteString(` WHERE format = ?`)
		args = append(args, string(opts.Format))
	}
	qb.WriteString(` ORDER BY id DESC`)

	limit := opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	recs := make([]types.ExportRecord, 0)
	for rows.Next() {
		var (
			rec     types.ExportRecord
			format  string
			created string
		)
		if err := rows.Scan(&rec.ID, &format, &rec.Path, &rec.Size, &rec.SHA256, &rec.Images, &rec.Pages,
			&rec.Source, &rec.SourceSHA256, &created); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		rec.Format = types.Format(format)
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing created_at of record %d: %w", rec.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
