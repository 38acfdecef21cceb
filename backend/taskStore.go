package backend

// TaskStore is the Local Cache contract. Every implementation keeps its
// contents in memory and persists the full mapping on Save.
//
// A TaskStore is not safe for concurrent use; the sync coordinator
// serializes access to it.
type TaskStore interface {
	// Add inserts or overwrites the task with the same id
	Add(task Task)
	// Update has the same last-write-wins semantics as Add
	Update(task Task)
	// Delete removes and returns the task, or fails with ErrNotFound
	Delete(id string) (Task, error)
	// Get returns the task, or fails with ErrNotFound
	Get(id string) (Task, error)
	// Items returns all tasks ordered by (CreatedAt, ID)
	Items() []Task
	Len() int

	// Load replaces the in-memory contents with what is stored at
	// destination. It fails with ErrInvalidPath or ErrUnparsable and leaves
	// the contents unchanged in that case.
	Load(destination string) error
	// Save writes the full mapping to destination
	Save(destination string) error

	// Type returns the backend type name used in configuration
	Type() string
	Close() error
}

// ReplaceAll deletes every task in the store and inserts tasks
func ReplaceAll(store TaskStore, tasks []Task) {
	for _, t := range store.Items() {
		_, _ = store.Delete(t.ID)
	}
	for _, t := range tasks {
		store.Add(t)
	}
}
