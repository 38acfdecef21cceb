// Package sqlite implements the Local Cache on an embedded SQLite database.
// Each destination is a row-set of the tasks table.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"todosync/backend"
)

// TypeName is the cache backend type used in configuration
const TypeName = "sqlite"

// Store keeps tasks in memory and persists them as rows keyed by
// (destination, id).
type Store struct {
	backend.TaskIndex

	db      *Database
	skipped int
}

// NewStore opens (or creates) the database at dbPath
func NewStore(dbPath string) (*Store, error) {
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewFromOptions adapts NewStore to backend.StoreConstructor
func NewFromOptions(opts backend.StoreOptions) (backend.TaskStore, error) {
	return NewStore(opts.DBPath)
}

// Register adds the sqlite backend to a registry
func Register(r *backend.Registry) {
	r.Register(TypeName, NewFromOptions)
}

func (s *Store) Type() string { return TypeName }

// DB returns the underlying database
func (s *Store) DB() *Database { return s.db }

// Skipped returns how many rows the last Load dropped as malformed
func (s *Store) Skipped() int { return s.skipped }

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) storeErr(op, destination string, sentinel, cause error) error {
	return &backend.StoreError{Op: op, Destination: destination, Err: sentinel, Cause: cause}
}

// Load replaces the contents with the row-set stored under destination
func (s *Store) Load(destination string) error {
	if destination == "" {
		return s.storeErr("Load", destination, backend.ErrInvalidPath, errors.New("empty destination"))
	}
	if s.db == nil {
		return s.storeErr("Load", destination, backend.ErrInvalidPath, errors.New("database is closed"))
	}

	var name string
	err := s.db.QueryRow("SELECT name FROM destinations WHERE name = ?", destination).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return s.storeErr("Load", destination, backend.ErrInvalidPath, fmt.Errorf("destination %q was never saved", destination))
	}
	if err != nil {
		return s.storeErr("Load", destination, backend.ErrInvalidPath, err)
	}

	rows, err := s.db.Query(`
		SELECT id, text, is_done, priority, created_at, deadline, edited_at
		FROM tasks WHERE destination = ?
		ORDER BY created_at, id`, destination)
	if err != nil {
		return s.storeErr("Load", destination, backend.ErrUnparsable, err)
	}
	defer rows.Close()

	tasks := make([]backend.Task, 0)
	skipped := 0
	for rows.Next() {
		task, ok := scanTask(rows)
		if !ok {
			skipped++
			continue
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return s.storeErr("Load", destination, backend.ErrUnparsable, err)
	}

	s.Reset(tasks)
	s.skipped = skipped
	return nil
}

func scanTask(rows *sql.Rows) (backend.Task, bool) {
	var (
		id, text  sql.NullString
		isDone    sql.NullBool
		priority  sql.NullInt64
		createdAt sql.NullFloat64
		deadline  sql.NullFloat64
		editedAt  sql.NullFloat64
	)
	if err := rows.Scan(&id, &text, &isDone, &priority, &createdAt, &deadline, &editedAt); err != nil {
		return backend.Task{}, false
	}
	if !id.Valid || id.String == "" || !text.Valid || !createdAt.Valid {
		return backend.Task{}, false
	}

	record := backend.Record{
		ID:        id.String,
		Text:      text.String,
		IsDone:    isDone.Valid && isDone.Bool,
		CreatedAt: createdAt.Float64,
	}
	if priority.Valid {
		p := int(priority.Int64)
		record.Priority = &p
	}
	if deadline.Valid {
		d := deadline.Float64
		record.Deadline = &d
	}
	if editedAt.Valid {
		e := editedAt.Float64
		record.EditedAt = &e
	}
	return record.Task()
}

// Save replaces the row-set of destination in a single transaction
func (s *Store) Save(destination string) error {
	if destination == "" {
		return s.storeErr("Save", destination, backend.ErrInvalidPath, errors.New("empty destination"))
	}
	if s.db == nil {
		return s.storeErr("Save", destination, backend.ErrInvalidPath, errors.New("database is closed"))
	}

	items := s.Items()

	tx, err := s.db.Begin()
	if err != nil {
		return s.storeErr("Save", destination, backend.ErrInvalidPath, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO destinations (name, saved_at, item_count) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at, item_count = excluded.item_count`,
		destination, time.Now().Unix(), len(items))
	if err != nil {
		return s.storeErr("Save", destination, backend.ErrInvalidPath, err)
	}

	if _, err := tx.Exec("DELETE FROM tasks WHERE destination = ?", destination); err != nil {
		return s.storeErr("Save", destination, backend.ErrInvalidPath, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tasks (destination, id, text, is_done, priority, created_at, deadline, edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return s.storeErr("Save", destination, backend.ErrInvalidPath, err)
	}
	defer stmt.Close()

	for _, task := range items {
		r := backend.ToRecord(task)
		_, err := stmt.Exec(destination, r.ID, r.Text, r.IsDone,
			nullInt(r.Priority), r.CreatedAt, nullFloat(r.Deadline), nullFloat(r.EditedAt))
		if err != nil {
			return &backend.StoreError{Op: "Save", Destination: destination, TaskUID: task.ID, Err: backend.ErrInvalidPath, Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return s.storeErr("Save", destination, backend.ErrInvalidPath, err)
	}
	return nil
}

// Destinations lists the saved row-sets
func (s *Store) Destinations() ([]string, error) {
	if s.db == nil {
		return nil, errors.New("database is closed")
	}
	rows, err := s.db.Query("SELECT name FROM destinations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan destination: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
