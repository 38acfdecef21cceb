package backend

// Shared test doubles. They are exported so that tests of other packages
// (the sync coordinator, the CLI wiring) can drive them.

import (
	"context"
	"sync"
)

// MockRemote is an in-memory RemoteClient with revision semantics.
// Mutating calls presenting a revision other than the current one fail with
// ErrStaleRevision when StrictRevision is set. Each successful mutation
// bumps the revision by one.
type MockRemote struct {
	mu       sync.Mutex
	items    map[string]Task
	revision int64

	StrictRevision bool

	// Canonical, when set, computes the list a bulk update answers with from
	// the server's current contents and the uploaded tasks. By default the
	// uploaded list replaces the server contents.
	Canonical func(current, uploaded []Task) []Task

	// OnCall runs at the start of every call, outside the lock
	OnCall func(ctx context.Context, op string)

	errs     map[string]error
	onceErrs map[string][]error
	calls    map[string]int
	seen     map[string][]int64
}

// NewMockRemote creates a mock service holding tasks at revision
func NewMockRemote(revision int64, tasks ...Task) *MockRemote {
	m := &MockRemote{
		items:    make(map[string]Task),
		revision: revision,
		errs:     make(map[string]error),
		onceErrs: make(map[string][]error),
		calls:    make(map[string]int),
		seen:     make(map[string][]int64),
	}
	for _, t := range tasks {
		m.items[t.ID] = t
	}
	return m
}

// SetError makes every call of op fail with err until cleared with nil
func (m *MockRemote) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// FailNext makes the next call of op fail with err
func (m *MockRemote) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onceErrs[op] = append(m.onceErrs[op], err)
}

// Calls returns how many times op was invoked
func (m *MockRemote) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// SeenRevisions returns the revisions presented to op, in call order
func (m *MockRemote) SeenRevisions(op string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.seen[op]))
	copy(out, m.seen[op])
	return out
}

// Revision returns the current server revision
func (m *MockRemote) Revision() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// Items returns the server contents in display order
func (m *MockRemote) Items() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked()
}

// Put stores a task directly, as another client would, and bumps the revision
func (m *MockRemote) Put(task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[task.ID] = task
	m.revision++
}

func (m *MockRemote) List(ctx context.Context, revision int64) (ListResult, error) {
	if err := m.begin(ctx, OpList, revision, false); err != nil {
		return ListResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return ListResult{Items: m.sortedLocked(), Revision: m.revision}, nil
}

func (m *MockRemote) BulkUpdate(ctx context.Context, revision int64, tasks []Task) (ListResult, error) {
	if err := m.begin(ctx, OpBulkUpdate, revision, true); err != nil {
		return ListResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	canonical := tasks
	if m.Canonical != nil {
		canonical = m.Canonical(m.sortedLocked(), tasks)
	}
	m.items = make(map[string]Task, len(canonical))
	for _, t := range canonical {
		m.items[t.ID] = t
	}
	m.revision++
	return ListResult{Items: m.sortedLocked(), Revision: m.revision}, nil
}

func (m *MockRemote) Get(ctx context.Context, revision int64, id string) (ItemResult, error) {
	if err := m.begin(ctx, OpGet, revision, false); err != nil {
		return ItemResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.items[id]
	if !ok {
		return ItemResult{}, NewBackendError(OpGet, 404, "element not found").WithTaskUID(id)
	}
	return ItemResult{Item: task, Revision: m.revision}, nil
}

func (m *MockRemote) Add(ctx context.Context, revision int64, task Task) (ItemResult, error) {
	if err := m.begin(ctx, OpAdd, revision, true); err != nil {
		return ItemResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[task.ID] = task
	m.revision++
	return ItemResult{Item: task, Revision: m.revision}, nil
}

func (m *MockRemote) Edit(ctx context.Context, revision int64, task Task) (ItemResult, error) {
	if err := m.begin(ctx, OpEdit, revision, true); err != nil {
		return ItemResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[task.ID]; !ok {
		return ItemResult{}, NewBackendError(OpEdit, 404, "element not found").WithTaskUID(task.ID)
	}
	m.items[task.ID] = task
	m.revision++
	return ItemResult{Item: task, Revision: m.revision}, nil
}

func (m *MockRemote) Delete(ctx context.Context, revision int64, id string) (ItemResult, error) {
	if err := m.begin(ctx, OpDelete, revision, true); err != nil {
		return ItemResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.items[id]
	if !ok {
		return ItemResult{}, NewBackendError(OpDelete, 404, "element not found").WithTaskUID(id)
	}
	delete(m.items, id)
	m.revision++
	return ItemResult{Item: task, Revision: m.revision}, nil
}

// begin records the call, runs the hook and returns any injected failure
func (m *MockRemote) begin(ctx context.Context, op string, revision int64, mutating bool) error {
	if m.OnCall != nil {
		m.OnCall(ctx, op)
	}
	if err := ctx.Err(); err != nil {
		return NewTransportError(op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	m.seen[op] = append(m.seen[op], revision)

	if queued := m.onceErrs[op]; len(queued) > 0 {
		m.onceErrs[op] = queued[1:]
		return queued[0]
	}
	if err, ok := m.errs[op]; ok {
		return err
	}
	if mutating && m.StrictRevision && revision != m.revision {
		return NewBackendError(op, 400, "unsynchronized data")
	}
	return nil
}

func (m *MockRemote) sortedLocked() []Task {
	out := make([]Task, 0, len(m.items))
	for _, t := range m.items {
		out = append(out, t)
	}
	SortTasks(out)
	return out
}

// MockStore is an in-memory TaskStore. Saved snapshots are kept per
// destination so that a later Load can read them back.
type MockStore struct {
	TaskIndex

	mu    sync.Mutex
	saved map[string][]Task
	saves int

	SaveErr error
	LoadErr error
}

// NewMockStore creates an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{saved: make(map[string][]Task)}
}

// Seed stores tasks at destination without touching the in-memory contents
func (s *MockStore) Seed(destination string, tasks []Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[destination] = append([]Task(nil), tasks...)
}

// Saved returns the last snapshot written to destination
func (s *MockStore) Saved(destination string) ([]Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, ok := s.saved[destination]
	return append([]Task(nil), tasks...), ok
}

// Saves returns how many successful saves happened
func (s *MockStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MockStore) Load(destination string) error {
	if s.LoadErr != nil {
		return s.LoadErr
	}
	s.mu.Lock()
	tasks, ok := s.saved[destination]
	s.mu.Unlock()
	if !ok {
		return &StoreError{Op: "Load", Destination: destination, Err: ErrInvalidPath}
	}
	s.Reset(tasks)
	return nil
}

func (s *MockStore) Save(destination string) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	items := s.Items()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[destination] = items
	s.saves++
	return nil
}

func (s *MockStore) Type() string { return "memory" }

func (s *MockStore) Close() error { return nil }
