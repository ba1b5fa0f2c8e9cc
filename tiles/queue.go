package tiles

import (
	"context"
	"sync"
)

// Dispatcher hands a callback over to the goroutine that owns the view state
type Dispatcher interface {
	Post(fn func())
}

// Queue collects callbacks posted from fetch goroutines until the owning
// goroutine drains them.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
	notify  func()
}

// NewQueue returns an empty queue. notify, if not nil, is called after every
// Post, from the posting goroutine.
func NewQueue(notify func()) *Queue {
	return &Queue{
		ready:  make(chan struct{}, 1),
		notify: notify,
	}
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	if q.notify != nil {
		q.notify()
	}
}

// Drain runs every pending callback on the calling goroutine and returns how
// many ran.
func (q *Queue) Drain() int {
	q.mu.Lock()
	fns := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Wait blocks until a callback has been posted since the last Wait, or ctx is done
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
