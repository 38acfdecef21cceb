package sync

import (
	"sync"

	"todosync/backend"
)

// Listener is notified whenever the ordered item list changes
type Listener interface {
	ReloadNeeded(items []backend.Task)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(items []backend.Task)

func (f ListenerFunc) ReloadNeeded(items []backend.Task) { f(items) }

// listenerSet holds registrations. The coordinator does not own listeners;
// a registration lives until its unsubscribe func is called.
type listenerSet struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{listeners: make(map[int]Listener)}
}

func (s *listenerSet) add(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

func (s *listenerSet) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}
