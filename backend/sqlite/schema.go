package sqlite

// migration is one schema step. Steps run in order inside a transaction and
// each applied version is recorded in schema_version.
type migration struct {
	version    int
	statements []string
}

// migrations lists every schema step. Append only.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			// Every row-set saved at least once. A destination absent from
			// this table cannot be loaded.
			`CREATE TABLE IF NOT EXISTS destinations (
    name TEXT PRIMARY KEY,
    saved_at INTEGER NOT NULL,
    item_count INTEGER NOT NULL DEFAULT 0
)`,
			// Column semantics follow the flat record format: priority is
			// NULL for normal, deadline and edited_at are NULL when absent,
			// timestamps are fractional epoch seconds.
			`CREATE TABLE IF NOT EXISTS tasks (
    destination TEXT NOT NULL,
    id TEXT NOT NULL,
    text TEXT NOT NULL,
    is_done INTEGER NOT NULL DEFAULT 0,
    priority INTEGER,
    created_at REAL NOT NULL,
    deadline REAL,
    edited_at REAL,

    PRIMARY KEY(destination, id),
    FOREIGN KEY(destination) REFERENCES destinations(name) ON DELETE CASCADE
)`,
			// Display order used by Load
			`CREATE INDEX IF NOT EXISTS idx_tasks_order ON tasks(destination, created_at, id)`,
		},
	},
}

// LatestVersion is the schema version a freshly opened database ends at
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

const schemaVersionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`

// connectionPragmas run once on the single pooled connection
var connectionPragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}
