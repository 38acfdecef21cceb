package backend

import (
	"fmt"
	"sort"
	"sync"
)

// StoreOptions carries the settings a store constructor may need
type StoreOptions struct {
	CacheDir string // Base directory for relative file destinations
	DBPath   string // Database file for relational stores
}

// StoreConstructor creates a TaskStore from options
type StoreConstructor func(opts StoreOptions) (TaskStore, error)

// Registry maps cache backend types ("file", "sqlite") to constructors.
// The application builds one and registers the backends it links in.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]StoreConstructor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]StoreConstructor)}
}

// Register adds or replaces the constructor for a backend type
func (r *Registry) Register(storeType string, constructor StoreConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[storeType] = constructor
}

// Open creates a store of the given type
func (r *Registry) Open(storeType string, opts StoreOptions) (TaskStore, error) {
	r.mu.RLock()
	constructor, ok := r.constructors[storeType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported cache backend: %s (available: %v)", storeType, r.Types())
	}
	return constructor(opts)
}

// Types returns the registered backend types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
