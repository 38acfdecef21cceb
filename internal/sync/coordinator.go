package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"todosync/backend"
	"todosync/internal/utils"
)

// ErrClosed is returned by every operation after Shutdown
var ErrClosed = errors.New("sync coordinator is shut down")

// Policy decides what happens to unacknowledged local records when a
// canonical snapshot arrives.
type Policy string

const (
	// PolicyServerWins replaces local state with the snapshot outright
	PolicyServerWins Policy = "server_wins"
	// PolicyKeepPending retains records whose latest local mutation was never
	// acknowledged by the remote; they stay dirty until a later exchange
	PolicyKeepPending Policy = "keep_pending"
)

// ParsePolicy converts a configuration value into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyServerWins:
		return PolicyServerWins, nil
	case PolicyKeepPending:
		return PolicyKeepPending, nil
	default:
		return PolicyServerWins, fmt.Errorf("unknown sync policy %q (valid: server_wins, keep_pending)", s)
	}
}

// State is the reconciliation state of a coordinator
type State int

const (
	StateDirty State = iota
	StateClean
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateSyncing:
		return "syncing"
	default:
		return "dirty"
	}
}

// Snapshot is an immutable view of the coordinator, replaced as a whole
// after every state change.
type Snapshot struct {
	Items    []backend.Task
	Revision int64
	Dirty    bool
	State    State
	InFlight int // Remote mutations not yet answered
	Pending  int // Local mutations the remote rejected or never saw
}

// Options configures a Coordinator
type Options struct {
	Destination   string        // Local cache destination, required
	Policy        Policy        // Defaults to PolicyServerWins
	AutoResync    bool          // Trigger a background sync after a failed mutation
	TombstoneTTL  time.Duration // How long a local delete shields an id from Refresh
	TombstoneSize int
	Logger        *utils.Logger
}

const (
	defaultTombstoneTTL  = 10 * time.Minute
	defaultTombstoneSize = 1024
)

type mutationKind int

const (
	mutationAdd mutationKind = iota
	mutationUpdate
	mutationDelete
)

func (k mutationKind) String() string {
	switch k {
	case mutationAdd:
		return "add"
	case mutationUpdate:
		return "update"
	default:
		return "delete"
	}
}

// journalEntry records a local mutation applied while a sync was in flight
type journalEntry struct {
	seq  uint64
	kind mutationKind
	task backend.Task
	id   string
}

// Coordinator keeps a Local Cache consistent with the remote list service.
//
// Every Local Cache access and every state change runs on a single serial
// queue. Remote calls run one at a time on a separate lane; each call reads
// the revision when it starts and its completion is applied on the serial
// queue before the next call starts, so no two calls race the revision.
type Coordinator struct {
	store  backend.TaskStore
	remote backend.RemoteClient
	opts   Options
	logger *utils.Logger

	queue    *workQueue
	lane     *workQueue
	notifier *workQueue

	baseCtx  context.Context
	cancel   context.CancelFunc
	stopping chan struct{} // closed when Shutdown begins

	revision atomic.Int64

	// Owned by the serial queue
	synced     bool
	syncFailed bool
	syncing    int
	inflight   map[string]int
	unacked    map[string]mutationKind
	journal    []journalEntry
	journalSeq uint64

	tombstones *expirable.LRU[string, struct{}]
	snapshot   atomic.Pointer[Snapshot]
	listeners  *listenerSet

	lifecycle     sync.Mutex
	wg            sync.WaitGroup
	syncTriggered atomic.Bool
	closed        atomic.Bool
}

// NewCoordinator creates a coordinator over store and remote. It does not
// touch either until Bootstrap or an operation is called.
func NewCoordinator(store backend.TaskStore, remote backend.RemoteClient, opts Options) (*Coordinator, error) {
	if store == nil || remote == nil {
		return nil, fmt.Errorf("store and remote client are required")
	}
	if opts.Destination == "" {
		return nil, fmt.Errorf("cache destination is required")
	}
	if opts.Policy == "" {
		opts.Policy = PolicyServerWins
	}
	if opts.TombstoneTTL <= 0 {
		opts.TombstoneTTL = defaultTombstoneTTL
	}
	if opts.TombstoneSize <= 0 {
		opts.TombstoneSize = defaultTombstoneSize
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	logger = logger.With("component", "sync", "destination", opts.Destination)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		store:      store,
		remote:     remote,
		opts:       opts,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
		stopping:   make(chan struct{}),
		inflight:   make(map[string]int),
		unacked:    make(map[string]mutationKind),
		tombstones: expirable.NewLRU[string, struct{}](opts.TombstoneSize, nil, opts.TombstoneTTL),
		listeners:  newListenerSet(),
	}
	c.revision.Store(backend.UnknownRevision)

	onPanic := func(name string) func(interface{}) {
		return func(r interface{}) {
			c.logger.Error("Panic in %s: %v", name, r)
		}
	}
	c.queue = newWorkQueue(onPanic("serial queue"))
	c.lane = newWorkQueue(onPanic("remote lane"))
	c.notifier = newWorkQueue(onPanic("listener"))

	c.snapshot.Store(&Snapshot{Revision: backend.UnknownRevision, Dirty: true, State: StateDirty})
	return c, nil
}

// Policy returns the snapshot policy in effect
func (c *Coordinator) Policy() Policy { return c.opts.Policy }

// Destination returns the cache destination
func (c *Coordinator) Destination() string { return c.opts.Destination }

// Status returns the latest published snapshot
func (c *Coordinator) Status() Snapshot {
	s := *c.snapshot.Load()
	s.Items = append([]backend.Task(nil), s.Items...)
	return s
}

// Items returns the ordered local items
func (c *Coordinator) Items() []backend.Task {
	return append([]backend.Task(nil), c.snapshot.Load().Items...)
}

// Revision returns the last known remote revision, or UnknownRevision
func (c *Coordinator) Revision() int64 {
	return c.snapshot.Load().Revision
}

// IsDirty reports whether local and remote are not known to be reconciled
func (c *Coordinator) IsDirty() bool {
	return c.snapshot.Load().Dirty
}

// State returns the current reconciliation state
func (c *Coordinator) State() State {
	return c.snapshot.Load().State
}

// Subscribe registers a listener and returns a func removing it
func (c *Coordinator) Subscribe(l Listener) func() {
	return c.listeners.add(l)
}

// Shutdown stops accepting work and gives a background sync already running
// until timeout to finish. It then cancels in-flight remote calls, waits for
// queued work to drain and stops listener delivery. Later calls return
// ErrClosed.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.lifecycle.Lock()
	if c.closed.Load() {
		c.lifecycle.Unlock()
		return nil
	}
	c.closed.Store(true)
	close(c.stopping)
	c.lifecycle.Unlock()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), timeout)
	defer cancelWait()

	background := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(background)
	}()
	select {
	case <-background:
	case <-waitCtx.Done():
		c.logger.Warn("Background sync still running after %v, cancelling it", timeout)
	}
	c.cancel()

	done := make(chan struct{})
	go func() {
		<-background
		c.lane.close()
		<-c.lane.done
		c.queue.close()
		<-c.queue.done
		c.notifier.close()
		<-c.notifier.done
		close(done)
	}()

	select {
	case <-done:
		c.logger.Debug("Coordinator stopped")
		return nil
	case <-time.After(timeout):
		c.logger.Warn("Pending work did not complete within %v", timeout)
		return fmt.Errorf("shutdown timed out after %v", timeout)
	}
}

// onQueue runs fn on the serial queue and waits for it
func (c *Coordinator) onQueue(fn func()) error {
	done := make(chan struct{})
	if !c.queue.submit(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	<-done
	return nil
}

// remoteJob is one exchange with the remote service
type remoteJob struct {
	op       string
	prepare  func()                                          // serial queue, before the call
	call     func(ctx context.Context, revision int64) error // remote lane
	complete func(err error) error                           // serial queue, after the call
}

// runRemote schedules job on the remote lane and waits for its completion to
// be applied. If ctx ends first the caller stops waiting; the exchange still
// completes in the background and its outcome is recorded.
func (c *Coordinator) runRemote(ctx context.Context, job remoteJob) error {
	result := make(chan error, 1)
	accepted := c.lane.submit(func() {
		if job.prepare != nil {
			if err := c.onQueue(job.prepare); err != nil {
				result <- err
				return
			}
		}

		revision := c.revision.Load()
		c.logger.Debug("Remote %s at revision %d", job.op, revision)
		callCtx, stop := c.callContext(ctx)
		err := job.call(callCtx, revision)
		stop()
		if err != nil {
			c.logger.Debug("Remote %s failed: %v", job.op, err)
		}

		var out error
		if qerr := c.onQueue(func() { out = job.complete(err) }); qerr != nil {
			out = qerr
		}
		result <- out
	})
	if !accepted {
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callContext merges the caller's context with the coordinator lifetime
func (c *Coordinator) callContext(ctx context.Context) (context.Context, func()) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.baseCtx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// advanceRevision moves the revision forward, never back. Serial queue only.
func (c *Coordinator) advanceRevision(revision int64) {
	if revision > c.revision.Load() {
		c.revision.Store(revision)
	}
}

func (c *Coordinator) dirty() bool {
	return !c.synced || c.syncFailed || len(c.inflight) > 0 || len(c.unacked) > 0
}

// publish replaces the read snapshot. Serial queue only.
func (c *Coordinator) publish() {
	state := StateClean
	switch {
	case c.syncing > 0:
		state = StateSyncing
	case c.dirty():
		state = StateDirty
	}

	inflight := 0
	for _, n := range c.inflight {
		inflight += n
	}

	c.snapshot.Store(&Snapshot{
		Items:    c.store.Items(),
		Revision: c.revision.Load(),
		Dirty:    c.dirty(),
		State:    state,
		InFlight: inflight,
		Pending:  len(c.unacked),
	})
}

// notify delivers the current items to listeners on the notifier goroutine
func (c *Coordinator) notify() {
	items := c.snapshot.Load().Items
	listeners := c.listeners.snapshot()
	if len(listeners) == 0 {
		return
	}
	c.notifier.submit(func() {
		for _, l := range listeners {
			l.ReloadNeeded(append([]backend.Task(nil), items...))
		}
	})
}

// persist saves the cache. Local writes are best effort: a failure is logged
// and never rejects the operation.
func (c *Coordinator) persist() {
	if err := c.store.Save(c.opts.Destination); err != nil {
		c.logger.Warn("Failed to persist cache: %v", err)
	}
}

func (c *Coordinator) checkOpen() error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}
