// Package ledger records months that could not be extracted, so operators
// can see why an archive still has gaps after a run. The ledger is advisory:
// reconciliation never reads it and retries every missing month regardless.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/andrewclelland/analyse-ml-fire-projections/internal/config"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

// Dialect selects SQL differences between the supported databases.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var schema = map[Dialect]string{
	DialectSQLite: `CREATE TABLE IF NOT EXISTS extraction_failures (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		region      TEXT NOT NULL,
		source      TEXT NOT NULL,
		month       TEXT NOT NULL,
		reason      TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`,
	DialectPostgres: `CREATE TABLE IF NOT EXISTS extraction_failures (
		id          BIGSERIAL PRIMARY KEY,
		run_id      TEXT NOT NULL,
		region      TEXT NOT NULL,
		source      TEXT NOT NULL,
		month       TEXT NOT NULL,
		reason      TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`,
}

const indexDDL = `CREATE INDEX IF NOT EXISTS extraction_failures_archive
	ON extraction_failures (region, source)`

// Ledger stores extraction failures in a SQL table.
type Ledger struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects the ledger selected by configuration. It returns nil, nil
// when the ledger is disabled.
func Open(ctx context.Context, cfg *config.Config) (*Ledger, error) {
	switch cfg.LedgerDriver {
	case "none":
		return nil, nil
	case "sqlite", "":
		if err := ensureDir(cfg.LedgerDSN); err != nil {
			return nil, err
		}
		return New(ctx, DialectSQLite, cfg.LedgerDSN)
	case "postgres":
		return New(ctx, DialectPostgres, cfg.LedgerDSN)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.LedgerDriver)
	}
}

// New opens dsn with the driver for dialect and creates the schema.
func New(ctx context.Context, dialect Dialect, dsn string) (*Ledger, error) {
	ddl, ok := schema[dialect]
	if !ok {
		return nil, fmt.Errorf("unknown ledger dialect %q", dialect)
	}
	driver := "sqlite"
	if dialect == DialectPostgres {
		driver = "pgx"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One writer; concurrent workers would otherwise hit SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s ledger: %w", dialect, err)
	}
	for _, stmt := range []string{ddl, indexDDL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create ledger schema: %w", err)
		}
	}
	return &Ledger{db: db, dialect: dialect}, nil
}

// RecordFailure appends one failure. It implements pipeline.FailureRecorder.
func (l *Ledger) RecordFailure(ctx context.Context, f domain.ExtractionFailure) error {
	at := f.At
	if at.IsZero() {
		at = domain.Now()
	}
	_, err := l.db.ExecContext(ctx, l.rebind(
		`INSERT INTO extraction_failures (run_id, region, source, month, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		f.RunID, f.Region, f.Source, f.Month.String(), f.Reason, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record failure %s/%s %s: %w", f.Region, f.Source, f.Month, err)
	}
	return nil
}

// Failures lists recorded failures for an archive, oldest first. Empty
// region or source match everything.
func (l *Ledger) Failures(ctx context.Context, region, source string) ([]domain.ExtractionFailure, error) {
	query := `SELECT run_id, region, source, month, reason, recorded_at FROM extraction_failures`
	var (
		conds []string
		args  []any
	)
	if region != "" {
		conds = append(conds, "region = ?")
		args = append(args, region)
	}
	if source != "" {
		conds = append(conds, "source = ?")
		args = append(args, source)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := l.db.QueryContext(ctx, l.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ExtractionFailure
	for rows.Next() {
		var (
			f          domain.ExtractionFailure
			month, rec string
		)
		if err := rows.Scan(&f.RunID, &f.Region, &f.Source, &month, &f.Reason, &rec); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if f.Month, err = domain.ParseMonth(month); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if f.At, err = time.Parse(time.RFC3339Nano, rec); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return out, nil
}

// CheckReadiness pings the database.
func (l *Ledger) CheckReadiness(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// rebind rewrites ? placeholders as $n for Postgres.
func (l *Ledger) rebind(query string) string {
	if l.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ensureDir creates the parent directory of a file-backed SQLite DSN.
func ensureDir(dsn string) error {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == ":memory:" || strings.HasPrefix(dsn, "file::memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	return nil
}
