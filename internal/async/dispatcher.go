package async

import (
	"context"
	"sync"
)

// Poster delivers callbacks to some execution context.
type Poster interface {
	// Post schedules fn. It returns false if fn will never run.
	Post(fn func()) bool
}

// PosterFunc adapts a function to Poster. The function is responsible for
// eventually running fn.
type PosterFunc func(fn func())

// Post implements Poster.
func (f PosterFunc) Post(fn func()) bool {
	f(fn)
	return true
}

// Immediate runs callbacks synchronously on the posting goroutine.
var Immediate Poster = PosterFunc(func(fn func()) { fn() })

// Dispatcher queues callbacks for the goroutine that owns it.
// Post may be called from any goroutine; callbacks only ever run inside
// Run or Drain, in the order they were posted. Run and Drain must be
// called from the owning goroutine only.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewDispatcher creates an open dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post implements Poster. It never blocks.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
	return true
}

// Drain runs every queued callback, including ones posted while draining,
// and returns how many ran. It does not wait for new posts.
func (d *Dispatcher) Drain() int {
	n := 0
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Run executes callbacks as they arrive until ctx is done or Close is
// called. Callbacks queued before Close still run.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			d.Drain()
			return nil
		case <-d.notify:
			d.Drain()
		}
	}
}

// Pending returns the number of queued callbacks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close stops accepting posts and makes Run return.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.done)
	})
}
