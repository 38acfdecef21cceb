package sync

import (
	"sync"
)

// workQueue runs submitted jobs one at a time in FIFO order on a single
// goroutine. Submission never blocks. After close, queued jobs still run and
// the worker exits once the queue is empty.
type workQueue struct {
	mu     sync.Mutex
	jobs   []func()
	closed bool

	wake    chan struct{}
	done    chan struct{}
	onPanic func(recovered interface{})
}

func newWorkQueue(onPanic func(recovered interface{})) *workQueue {
	q := &workQueue{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		onPanic: onPanic,
	}
	go q.run()
	return q
}

// submit enqueues job and reports whether the queue accepted it
func (q *workQueue) submit(job func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.signal()
	return true
}

// close stops accepting jobs. It does not wait; use done for that.
func (q *workQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *workQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *workQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.jobs) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			q.mu.Lock()
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		q.execute(job)
	}
}

func (q *workQueue) execute(job func()) {
	defer func() {
		if r := recover(); r != nil && q.onPanic != nil {
			q.onPanic(r)
		}
	}()
	job()
}
