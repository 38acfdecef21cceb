package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"todosync/internal/utils"
)

// DefaultFileName is the database created in the data dir when no path is set
const DefaultFileName = "tasks.db"

// Database is the cache database: a single-connection sql.DB with the schema
// migrated to LatestVersion.
type Database struct {
	*sql.DB
	path string
}

// OpenDatabase opens the database at path, creating the file and its
// directory when needed, and migrates the schema. An empty path selects
// $XDG_DATA_HOME/todosync/tasks.db.
func OpenDatabase(path string) (*Database, error) {
	dbPath, err := DatabasePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pragmas are per connection
	sqlDB.SetMaxOpenConns(1)

	db := &Database{DB: sqlDB, path: dbPath}
	if err := db.prepare(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// DatabasePath expands a configured path (~, $VAR) or returns the default
func DatabasePath(path string) (string, error) {
	if path != "" {
		return utils.ExpandPath(path)
	}
	dataDir, err := utils.AppDir(utils.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, DefaultFileName), nil
}

func (db *Database) prepare() error {
	for _, pragma := range connectionPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaVersionTableSQL); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := db.Version()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := db.apply(m); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (db *Database) apply(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", m.version, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// Version returns the highest applied schema version, 0 for an empty database
func (db *Database) Version() (int, error) {
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// Path returns the database file
func (db *Database) Path() string {
	return db.path
}

// DestinationStats describes one saved row-set
type DestinationStats struct {
	Name    string
	Items   int
	SavedAt time.Time
}

// String renders the stats for status output
func (s DestinationStats) String() string {
	return fmt.Sprintf("%s: %d tasks, saved %s", s.Name, s.Items, s.SavedAt.Format("2006-01-02 15:04:05"))
}

// Stats returns the bookkeeping row of destination. A destination that was
// never saved reports sql.ErrNoRows.
func (db *Database) Stats(destination string) (DestinationStats, error) {
	stats := DestinationStats{Name: destination}
	var savedAt int64
	err := db.QueryRow("SELECT item_count, saved_at FROM destinations WHERE name = ?", destination).
		Scan(&stats.Items, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, err
	}
	if err != nil {
		return stats, fmt.Errorf("failed to read destination %s: %w", destination, err)
	}
	stats.SavedAt = time.Unix(savedAt, 0)
	return stats, nil
}

// RowCount returns the number of task rows across every destination
func (db *Database) RowCount() (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
