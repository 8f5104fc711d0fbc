package async

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Submit once the worker has been stopped.
var ErrStopped = errors.New("worker stopped")

// HandlerFunc processes one work item. The context is cancelled when the
// worker is stopped.
type HandlerFunc[T any] func(ctx context.Context, item T)

// Worker runs a handler on a single background goroutine fed by a
// one-item mailbox. Submitting while an item is still pending replaces it:
// only the latest submission is ever processed. An item already being
// handled is not interrupted; the handler can poll HasWork to notice that
// it has been superseded.
type Worker[T any] struct {
	handle    HandlerFunc[T]
	onDiscard func(T)

	// Lifecycle management
	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pending    T
	hasPending bool
	running    bool
	started    bool
	stopped    bool
	submitted  int
	processed  int
	superseded int
}

// NewWorker creates a stopped worker. Call Start to begin processing.
func NewWorker[T any](handle HandlerFunc[T]) *Worker[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker[T]{
		handle: handle,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnDiscard registers fn to be called with every pending item that is
// dropped without being handled, either replaced by a newer Submit or
// discarded by Stop. It runs on the goroutine that caused the drop and
// must be set before the first Submit.
func (w *Worker[T]) OnDiscard(fn func(T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDiscard = fn
}

// Start launches the background goroutine. Items submitted before Start
// are kept and processed once it runs. Calling Start twice, or after Stop,
// does nothing.
func (w *Worker[T]) Start() {
	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.run()
}

// run drains the mailbox each time it is signalled.
func (w *Worker[T]) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case <-w.wake:
		}

		for {
			item, ok := w.take()
			if !ok {
				break
			}
			w.handle(w.ctx, item)
			w.finish()

			if w.StopRequested() {
				return
			}
		}
	}
}

// take moves the pending item into the running state.
func (w *Worker[T]) take() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var zero T
	if !w.hasPending || w.stopped {
		return zero, false
	}
	item := w.pending
	w.pending = zero
	w.hasPending = false
	w.running = true
	return item, true
}

func (w *Worker[T]) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running = false
	w.processed++
}

// Submit makes item the pending work, replacing any item that has not been
// picked up yet. It never blocks.
func (w *Worker[T]) Submit(item T) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	dropped, replaced := w.pending, w.hasPending
	if replaced {
		w.superseded++
	}
	w.pending = item
	w.hasPending = true
	w.submitted++
	onDiscard := w.onDiscard
	w.mu.Unlock()

	if replaced && onDiscard != nil {
		onDiscard(dropped)
	}

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// HasWork reports whether an item is waiting behind the one being handled.
func (w *Worker[T]) HasWork() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasPending
}

// IsBusy reports whether an item is pending or being handled.
func (w *Worker[T]) IsBusy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasPending || w.running
}

// StopRequested reports whether Stop has been called.
func (w *Worker[T]) StopRequested() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// Stop cancels the handler context, discards any pending item and waits
// for the goroutine to exit. Safe to call multiple times.
func (w *Worker[T]) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	dropped, hadPending := w.pending, w.hasPending
	var zero T
	w.pending = zero
	w.hasPending = false
	onDiscard := w.onDiscard
	w.mu.Unlock()

	if hadPending && onDiscard != nil {
		onDiscard(dropped)
	}

	close(w.stopCh)
	w.cancel()
	if started {
		<-w.doneCh
	}
}

// Status returns a snapshot of the worker counters.
func (w *Worker[T]) Status() WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := StateIdle
	switch {
	case w.stopped:
		state = StateStopped
	case w.running:
		state = StateRunning
	case w.hasPending:
		state = StatePending
	}

	return WorkerStatus{
		State:      state,
		Submitted:  w.submitted,
		Processed:  w.processed,
		Superseded: w.superseded,
	}
}
