package backend

// TaskIndex is the in-memory part of every TaskStore: a map keyed by task id
// plus an ordered view that is rebuilt lazily after a mutation.
// It is not safe for concurrent use.
type TaskIndex struct {
	byID    map[string]Task
	ordered []Task
	dirty   bool
}

// NewTaskIndex creates an empty index
func NewTaskIndex() *TaskIndex {
	return &TaskIndex{
		byID:  make(map[string]Task),
		dirty: true,
	}
}

// Add inserts or overwrites the task with the same id
func (ix *TaskIndex) Add(task Task) {
	ix.init()
	ix.byID[task.ID] = task
	ix.dirty = true
}

// Update has the same last-write-wins semantics as Add
func (ix *TaskIndex) Update(task Task) {
	ix.Add(task)
}

// Delete removes and returns the task with the given id
func (ix *TaskIndex) Delete(id string) (Task, error) {
	ix.init()
	task, ok := ix.byID[id]
	if !ok {
		return Task{}, &StoreError{Op: "Delete", TaskUID: id, Err: ErrNotFound}
	}
	delete(ix.byID, id)
	ix.dirty = true
	return task, nil
}

// Get returns the task with the given id
func (ix *TaskIndex) Get(id string) (Task, error) {
	ix.init()
	task, ok := ix.byID[id]
	if !ok {
		return Task{}, &StoreError{Op: "Get", TaskUID: id, Err: ErrNotFound}
	}
	return task, nil
}

// Items returns every task sorted by (CreatedAt, ID). The returned slice is
// a copy owned by the caller.
func (ix *TaskIndex) Items() []Task {
	ix.init()
	if ix.dirty {
		ix.ordered = make([]Task, 0, len(ix.byID))
		for _, task := range ix.byID {
			ix.ordered = append(ix.ordered, task)
		}
		SortTasks(ix.ordered)
		ix.dirty = false
	}
	out := make([]Task, len(ix.ordered))
	copy(out, ix.ordered)
	return out
}

// Len returns the number of tasks
func (ix *TaskIndex) Len() int {
	return len(ix.byID)
}

// Reset replaces the whole content
func (ix *TaskIndex) Reset(tasks []Task) {
	ix.byID = make(map[string]Task, len(tasks))
	for _, task := range tasks {
		ix.byID[task.ID] = task
	}
	ix.dirty = true
}

func (ix *TaskIndex) init() {
	if ix.byID == nil {
		ix.byID = make(map[string]Task)
		ix.dirty = true
	}
}
