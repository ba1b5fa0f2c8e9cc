package worker

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultQueueSize = 100
)

// Pool runs tasks on a bounded number of goroutines
type Pool struct {
	workers chan struct{}
	tasks   chan Task
	quit    chan struct{}
	timeout time.Duration
	running sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

type Task struct {
	Ctx  context.Context
	Name string
	Work func(ctx context.Context) error
}

// Context returns the task context, never nil
func (t Task) Context() context.Context {
	if t.Ctx == nil {
		return context.Background()
	}
	return t.Ctx
}

type Option func(*Pool)

// WithTimeout bounds how long a single task may run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) { p.timeout = d }
}

func WithQueueSize(n int) Option {
	return func(p *Pool) { p.tasks = make(chan Task, n) }
}

func NewPool(maxWorkers int, opts ...Option) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	p := &Pool{
		workers: make(chan struct{}, maxWorkers),
		tasks:   make(chan Task, DefaultQueueSize),
		quit:    make(chan struct{}),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	go p.dispatcher()
	return p
}

func (p *Pool) dispatcher() {
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			select {
			case p.workers <- struct{}{}:
			case <-p.quit:
				return
			}
			if !p.start() {
				<-p.workers
				return
			}
			go p.run(task)
		}
	}
}

// start registers a task as running unless the pool is shut down
func (p *Pool) start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.running.Add(1)
	return true
}

func (p *Pool) run(task Task) {
	defer p.running.Done()
	defer func() { <-p.workers }()

	ctx := task.Context()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if ctx.Err() != nil {
		return
	}
	_ = task.Work(ctx)
}

// Submit queues a task. It never blocks the caller; when the queue is full
// the task is handed over from a separate goroutine.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.quit:
		return
	default:
	}
	select {
	case p.tasks <- task:
	default:
		go func() {
			select {
			case p.tasks <- task:
			case <-p.quit:
			}
		}()
	}
}

// Shutdown stops dispatching and waits for running tasks to return.
// Queued tasks that have not started are dropped.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.quit)
		p.mu.Unlock()
	})
	p.running.Wait()
}
