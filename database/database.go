package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"phototriage/logging"
	"phototriage/types"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		input_folder TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		unique_count INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		nears INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER REFERENCES runs(id),
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		hash TEXT NOT NULL,
		verdict TEXT NOT NULL,
		duplicate_of TEXT,
		distance INTEGER NOT NULL DEFAULT 0,
		created_at TEXT,
		modified_at TEXT,
		size INTEGER,
		UNIQUE(path, algorithm)
	);
	CREATE INDEX IF NOT EXISTS idx_images_algorithm ON images(algorithm);
	CREATE INDEX IF NOT EXISTS idx_images_hash ON images(hash);`

// InitDatabase opens the catalog at dbPath and creates or upgrades its schema
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	// hash_bits arrived after the first catalogs were written
	var hasHashBits bool
	err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('images') WHERE name='hash_bits'").Scan(&hasHashBits)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error checking for hash_bits column: %w", err)
	}
	if !hasHashBits {
		if _, err := db.Exec("ALTER TABLE images ADD COLUMN hash_bits INTEGER NOT NULL DEFAULT 64;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("error adding hash_bits column: %w", err)
		}
		logging.DebugLog("Added 'hash_bits' column to catalog schema")
	}

	return db, nil
}

// Catalog records duplicate runs and the hashes they computed
type Catalog struct {
	db *sql.DB
}

// Open initializes the catalog at dbPath
func Open(dbPath string) (*Catalog, error) {
	db, err := InitDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// RecordRun stores a run and upserts every image it hashed, in one
// transaction. Images keep one row per path and algorithm, owned by the
// latest run that saw them.
func (c *Catalog) RecordRun(run types.RunInfo, images []types.ImageInfo) (runID int64, err error) {
	tx, err := c.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.Exec(`
		INSERT INTO runs (
			input_folder, algorithm, threshold, started_at, processed, unique_count, duplicates, nears, failures, cancelled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.InputFolder, run.Algorithm, run.Threshold, run.StartedAt,
		run.Processed, run.Unique, run.Duplicates, run.Nears, run.Failures, run.Cancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("cannot insert run: %w", err)
	}
	runID, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO images (
			run_id, path, name, algorithm, hash, hash_bits, verdict, duplicate_of, distance, created_at, modified_at, size
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("cannot prepare image insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(time.RFC3339)
	for _, img := range images {
		_, err = stmt.Exec(
			runID, img.Path, img.Name, img.Algorithm, img.Hash, img.HashBits, img.Verdict,
			nullIfEmpty(img.DuplicateOf), img.Distance, now, img.ModifiedAt, img.Size,
		)
		if err != nil {
			return 0, fmt.Errorf("cannot insert data for %s: %w", img.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// QueryCandidates returns every catalogued image hashed with algorithm,
// ordered by path
func (c *Catalog) QueryCandidates(algorithm string) ([]types.ImageInfo, error) {
	rows, err := c.db.Query(`
		SELECT id, run_id, path, name, algorithm, hash, hash_bits, verdict, COALESCE(duplicate_of, ''), distance,
			COALESCE(modified_at, ''), COALESCE(size, 0)
		FROM images WHERE algorithm = ? ORDER BY path`, algorithm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ImageInfo
	for rows.Next() {
		var img types.ImageInfo
		if err := rows.Scan(&img.ID, &img.RunID, &img.Path, &img.Name, &img.Algorithm, &img.Hash, &img.HashBits,
			&img.Verdict, &img.DuplicateOf, &img.Distance, &img.ModifiedAt, &img.Size); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// LatestRun returns the most recent run, or nil when none was recorded
func (c *Catalog) LatestRun() (*types.RunInfo, error) {
	var run types.RunInfo
	err := c.db.QueryRow(`
		SELECT id, input_folder, algorithm, threshold, started_at, processed, unique_count, duplicates, nears, failures, cancelled
		FROM runs ORDER BY id DESC LIMIT 1`).Scan(
		&run.ID, &run.InputFolder, &run.Algorithm, &run.Threshold, &run.StartedAt,
		&run.Processed, &run.Unique, &run.Duplicates, &run.Nears, &run.Failures, &run.Cancelled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ScanStats contains catalog totals
type ScanStats struct {
	Runs         int
	TotalImages  int
	UniqueHashes int
	Duplicates   int
}

// GetScanStats retrieves statistics about catalogued images. An empty
// algorithm counts every algorithm.
func (c *Catalog) GetScanStats(algorithm string) (*ScanStats, error) {
	var stats ScanStats

	where, args := "", []any{}
	if algorithm != "" {
		where, args = " WHERE algorithm = ?", []any{algorithm}
	}

	if err := c.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.Runs); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM images"+where, args...).Scan(&stats.TotalImages); err != nil {
		return nil, fmt.Errorf("failed to get total images: %w", err)
	}
	if err := c.db.QueryRow("SELECT COUNT(DISTINCT hash) FROM images"+where, args...).Scan(&stats.UniqueHashes); err != nil {
		return nil, fmt.Errorf("failed to get unique hashes: %w", err)
	}

	dupWhere := " WHERE verdict <> 'unique'"
	if algorithm != "" {
		dupWhere += " AND algorithm = ?"
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM images"+dupWhere, args...).Scan(&stats.Duplicates); err != nil {
		return nil, fmt.Errorf("failed to count duplicates: %w", err)
	}
	return &stats, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
