package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anrid/france-mortality/pkg/stats"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS mortality (
	dataset TEXT NOT NULL,
	date    TEXT NOT NULL,
	age     INTEGER NOT NULL,
	deaths  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS mortality_date ON mortality(date);

CREATE TABLE IF NOT EXISTS population (
	dataset    TEXT NOT NULL,
	year       INTEGER NOT NULL,
	age        INTEGER NOT NULL,
	population INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
	run_id     TEXT NOT NULL,
	dataset    TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	rejected   INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store stages normalized records between import and compute.
type Store struct {
	db *sql.DB
}

// Import describes one dataset loaded into the store.
type Import struct {
	RunID     string
	Dataset   string
	Rows      int
	Rejected  int
	CreatedAt time.Time
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", filepath.Clean(path)+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Reset empties every table before a new import.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"mortality", "population", "imports"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) InsertMortality(ctx context.Context, dataset string, recs []stats.MortalityRecord) error {
	return s.inTx(ctx, `INSERT INTO mortality (dataset, date, age, deaths) VALUES (?, ?, ?, ?)`,
		func(stmt *sql.Stmt) error {
			for _, r := range recs {
				if _, err := stmt.ExecContext(ctx, dataset, r.Date.Format(stats.DateLayout), int(r.Bracket), r.Deaths); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *Store) InsertPopulation(ctx context.Context, dataset string, recs []stats.PopulationRecord) error {
	return s.inTx(ctx, `INSERT INTO population (dataset, year, age, population) VALUES (?, ?, ?, ?)`,
		func(stmt *sql.Stmt) error {
			for _, r := range recs {
				if _, err := stmt.ExecContext(ctx, dataset, r.Year, int(r.Bracket), r.Population); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *Store) RecordImport(ctx context.Context, imp Import) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (run_id, dataset, row_count, rejected, created_at) VALUES (?, ?, ?, ?, ?)`,
		imp.RunID, imp.Dataset, imp.Rows, imp.Rejected, imp.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("record import of %s: %w", imp.Dataset, err)
	}
	return nil
}

// Imports lists the recorded imports, oldest first.
func (s *Store) Imports(ctx context.Context) ([]Import, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, dataset, row_count, rejected, created_at FROM imports ORDER BY created_at, dataset`)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	var res []Import
	for rows.Next() {
		var imp Import
		var created int64
		if err := rows.Scan(&imp.RunID, &imp.Dataset, &imp.Rows, &imp.Rejected, &created); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imp.CreatedAt = time.UnixMilli(created).UTC()
		res = append(res, imp)
	}
	return res, rows.Err()
}

// MortalityBetween returns the records dated from start to end inclusive,
// summed across datasets, ordered by date then age.
func (s *Store) MortalityBetween(ctx context.Context, start, end time.Time) ([]stats.MortalityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, age, SUM(deaths) FROM mortality WHERE date BETWEEN ? AND ? GROUP BY date, age ORDER BY date, age`,
		start.Format(stats.DateLayout), end.Format(stats.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query mortality: %w", err)
	}
	defer rows.Close()

	var res []stats.MortalityRecord
	for rows.Next() {
		var date string
		var age int
		var deaths int64
		if err := rows.Scan(&date, &age, &deaths); err != nil {
			return nil, fmt.Errorf("scan mortality: %w", err)
		}
		t, err := time.Parse(stats.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", date, err)
		}
		res = append(res, stats.MortalityRecord{Date: t, Bracket: stats.AgeBracket(age), Deaths: deaths})
	}
	return res, rows.Err()
}

// Population returns the age pyramid of year ordered by age.
func (s *Store) Population(ctx context.Context, year int) ([]stats.PopulationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT age, SUM(population) FROM population WHERE year = ? GROUP BY age ORDER BY age`, year)
	if err != nil {
		return nil, fmt.Errorf("query population: %w", err)
	}
	defer rows.Close()

	var res []stats.PopulationRecord
	for rows.Next() {
		var age int
		var n int64
		if err := rows.Scan(&age, &n); err != nil {
			return nil, fmt.Errorf("scan population: %w", err)
		}
		res = append(res, stats.PopulationRecord{Year: year, Bracket: stats.AgeBracket(age), Population: n})
	}
	return res, rows.Err()
}

func (s *Store) inTx(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
