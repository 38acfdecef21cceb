package sqlite

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"todosync/backend"
)

// createTestStore creates a store on a temporary database
func createTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}

	cleanup := func() {
		store.Close()
	}
	return store, cleanup
}

func testTasks() []backend.Task {
	base := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	return []backend.Task{
		backend.NewTask("first", backend.PriorityLow, backend.WithID("t1"), backend.WithCreatedAt(base)),
		backend.NewTask("second", backend.PriorityHigh, backend.WithID("t2"), backend.WithCreatedAt(base.Add(time.Second)),
			backend.WithDeadline(base.Add(48*time.Hour)), backend.WithEditedAt(base.Add(time.Hour))),
		backend.NewTask("third", backend.PriorityNormal, backend.WithID("t3"), backend.WithCreatedAt(base.Add(time.Second)),
			backend.WithDone(true)),
	}
}

func TestNewStoreInitializesSchema(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	version, err := store.DB().Version()
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("schema version = %d, want %d", version, LatestVersion())
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	for i := 0; i < 2; i++ {
		db, err := OpenDatabase(dbPath)
		if err != nil {
			t.Fatalf("OpenDatabase() #%d error = %v", i, err)
		}
		var applied int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&applied); err != nil {
			t.Fatalf("count schema_version: %v", err)
		}
		if applied != len(migrations) {
			t.Errorf("open #%d: %d migrations recorded, want %d", i, applied, len(migrations))
		}
		db.Close()
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	for _, task := range testTasks() {
		store.Add(task)
	}
	if err := store.Save("default"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	fresh := &Store{db: store.DB()}
	if err := fresh.Load("default"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := testTasks()
	got := fresh.Items()
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Text != want[i].Text || got[i].Priority != want[i].Priority || got[i].IsDone != want[i].IsDone {
			t.Errorf("task %d: got %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("task %d: CreatedAt = %v, want %v", i, got[i].CreatedAt, want[i].CreatedAt)
		}
	}
	if got[1].Deadline == nil || !got[1].Deadline.Equal(*want[1].Deadline) {
		t.Errorf("deadline not preserved: %v", got[1].Deadline)
	}
	if got[1].EditedAt == nil || !got[1].EditedAt.Equal(*want[1].EditedAt) {
		t.Errorf("editedAt not preserved: %v", got[1].EditedAt)
	}
	if got[2].Deadline != nil || got[2].EditedAt != nil {
		t.Errorf("absent fields should stay absent: %+v", got[2])
	}
}

func TestSaveReplacesRowSet(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	for _, task := range testTasks() {
		store.Add(task)
	}
	if err := store.Save("default"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := store.Delete("t1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Save("default"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rows, err := store.DB().RowCount()
	if err != nil {
		t.Fatalf("RowCount() error = %v", err)
	}
	if rows != 2 {
		t.Errorf("expected 2 rows after resave, got %d", rows)
	}
	stats, err := store.DB().Stats("default")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Items != 2 || stats.SavedAt.IsZero() {
		t.Errorf("Stats() = %+v", stats)
	}
	if _, err := store.DB().Stats("never-saved"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Stats(never-saved) error = %v, want sql.ErrNoRows", err)
	}
}

func TestDestinationsAreIsolated(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	tasks := testTasks()
	store.Add(tasks[0])
	if err := store.Save("work"); err != nil {
		t.Fatalf("Save(work) error = %v", err)
	}

	backend.ReplaceAll(store, tasks[1:])
	if err := store.Save("home"); err != nil {
		t.Fatalf("Save(home) error = %v", err)
	}

	if err := store.Load("work"); err != nil {
		t.Fatalf("Load(work) error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("work should hold 1 task, got %d", store.Len())
	}

	names, err := store.Destinations()
	if err != nil {
		t.Fatalf("Destinations() error = %v", err)
	}
	if len(names) != 2 || names[0] != "home" || names[1] != "work" {
		t.Errorf("Destinations() = %v", names)
	}
}

func TestLoadUnknownDestination(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	for _, dest := range []string{"", "never-saved"} {
		if err := store.Load(dest); !errors.Is(err, backend.ErrInvalidPath) {
			t.Errorf("Load(%q) error = %v, want ErrInvalidPath", dest, err)
		}
	}
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	store.Add(testTasks()[0])
	if err := store.Save("default"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, err := store.DB().Exec(`INSERT INTO tasks (destination, id, text, is_done, priority, created_at)
		VALUES ('default', 'bad', 'unknown priority', 0, 9, 1700000000)`)
	if err != nil {
		t.Fatalf("failed to insert malformed row: %v", err)
	}

	if err := store.Load("default"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected malformed row to be skipped, got %d tasks", store.Len())
	}
	if store.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", store.Skipped())
	}
}

func TestClosedStore(t *testing.T) {
	store, _ := createTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Save("default"); !errors.Is(err, backend.ErrInvalidPath) {
		t.Errorf("Save() on closed store error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStatsString(t *testing.T) {
	stats := DestinationStats{Name: "tasks.json", Items: 3, SavedAt: time.Date(2026, 3, 1, 9, 5, 0, 0, time.Local)}
	want := "tasks.json: 3 tasks, saved 2026-03-01 09:05:00"
	if stats.String() != want {
		t.Errorf("String() = %q, want %q", stats.String(), want)
	}
}
