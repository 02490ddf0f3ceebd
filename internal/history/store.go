// Package history persists one row per audit run in a local SQLite
// database, so label quality can be compared across runs.
package history

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ARTIFACTIQ/gt-audit/internal/report"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store wraps the SQLite run-history database. WAL mode, foreign keys, and
// a single writer connection; schema managed by versioned migrations.
type Store struct {
	conn *sql.DB
	path string
}

// Run is one recorded audit run.
type Run struct {
	ID            string
	CreatedAt     time.Time
	DatasetPath   string
	Source        string
	Confidence    float64
	IoU           float64
	TotalImages   int
	ImagesAudited int
	TotalIssues   int
	HighCount     int
	MediumCount   int
	LowCount      int
	Verdict       string
}

// Open creates or opens the history database at the given path and brings
// its schema up to date.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite allows one writer at a time.
	conn.SetMaxOpenConns(1)

	var walMode string
	if err := conn.QueryRow("PRAGMA journal_mode=WAL").Scan(&walMode); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if walMode != "wal" {
		conn.Close()
		return nil, fmt.Errorf("failed to set WAL mode: got %s", walMode)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	var fkEnabled int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if fkEnabled != 1 {
		conn.Close()
		return nil, fmt.Errorf("foreign keys not enabled")
	}

	store := &Store{
		conn: conn,
		path: dbPath,
	}

	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// migrate applies versioned migrations in filename order. Applying twice is
// a no-op.
func (s *Store) migrate() error {
	if err := s.initMigrationsTable(); err != nil {
		return fmt.Errorf("failed to init migrations table: %w", err)
	}

	migrations, err := s.migrationFiles()
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		if err := s.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration, err)
		}
	}

	return nil
}

func (s *Store) initMigrationsTable() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`)
	return err
}

func (s *Store) migrationFiles() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrations = append(migrations, entry.Name())
		}
	}

	return migrations, nil
}

func (s *Store) applyMigration(filename string) error {
	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", filename).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if count > 0 {
		return nil
	}

	content, err := migrationFS.ReadFile("migrations/" + filename)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", filename, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// Record stores the outcome of one finished run.
func (s *Store) Record(result *report.Result) error {
	createdAt := time.Now().Unix()
	if t, err := time.Parse(time.RFC3339, result.GeneratedAt); err == nil {
		createdAt = t.Unix()
	}

	_, err := s.conn.Exec(`
		INSERT INTO runs (
			id, created_at, dataset_path, source,
			confidence_threshold, iou_threshold,
			total_images, images_audited, total_issues,
			high_count, medium_count, low_count, verdict
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		createdAt,
		result.DatasetPath,
		result.Source,
		result.Thresholds.Confidence,
		result.Thresholds.IoU,
		result.Summary.TotalImages,
		result.Summary.ImagesAudited,
		result.Summary.TotalIssues,
		result.Summary.HighCount(),
		result.Summary.MediumCount(),
		result.Summary.LowCount(),
		result.Verdict,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.conn.Query(`
		SELECT id, created_at, dataset_path, source,
		       confidence_threshold, iou_threshold,
		       total_images, images_audited, total_issues,
		       high_count, medium_count, low_count, verdict
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt int64
		if err := rows.Scan(
			&run.ID, &createdAt, &run.DatasetPath, &run.Source,
			&run.Confidence, &run.IoU,
			&run.TotalImages, &run.ImagesAudited, &run.TotalIssues,
			&run.HighCount, &run.MediumCount, &run.LowCount, &run.Verdict,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	return runs, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}
