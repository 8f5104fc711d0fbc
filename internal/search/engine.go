package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/lexsearch/internal/async"
	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/store"
)

// request is one SearchAsync submission.
type request struct {
	seq    uint64
	fields []SearchField
	queued time.Time
}

// Engine answers field searches over the objects of a Domain, extending its
// string index on demand.
//
// All index mutation and lookup happens under one coordination lock,
// either on the engine's worker goroutine (SearchAsync) or on the caller's
// goroutine (Search). Invalidation takes the same lock, so a build always
// runs against one consistent snapshot.
type Engine struct {
	name     string
	domain   Domain
	index    store.StringIndex
	poster   async.Poster
	observer Observer
	logger   *slog.Logger
	onError  func(error)

	worker      *async.Worker[request]
	unsubscribe func()

	// mu is the coordination lock. It guards index, snapshot and progress.
	mu            sync.Mutex
	snapshot      []store.ObjectID
	haveSnapshot  bool
	progress      map[progressKey]int
	epoch         int
	invalidations int

	latest atomic.Uint64 // seq of the most recent SearchAsync

	hmu         sync.Mutex
	handlers    map[int]func(CompletedEvent)
	nextHandler int
	completed   int
	superseded  int

	closed    atomic.Bool
	closeOnce sync.Once
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithName labels the engine in logs.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// WithIndex sets the string index. The engine takes ownership and closes it
// on Close. Defaults to a store.MemoryIndex.
func WithIndex(idx store.StringIndex) EngineOption {
	return func(e *Engine) {
		e.index = idx
	}
}

// WithPoster sets where completion events and errors are delivered. Pass
// an async.Dispatcher owned by the goroutine that should receive them.
// Defaults to async.Immediate, which delivers on the worker goroutine.
func WithPoster(p async.Poster) EngineOption {
	return func(e *Engine) {
		e.poster = p
	}
}

// WithObserver sets a telemetry observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithErrorHandler sets the channel for asynchronous build failures. The
// handler runs on the poster's context. Defaults to logging the error.
func WithErrorHandler(fn func(error)) EngineOption {
	return func(e *Engine) {
		e.onError = fn
	}
}

// NewEngine creates an engine over domain, subscribes to notifier (which
// may be nil for static data) and starts the worker. Close must be called
// to unsubscribe and stop the worker.
//
// Without WithPoster, completion events and build errors are delivered by
// async.Immediate on the worker goroutine, not on the caller's context.
// Handlers must then be safe for concurrent use and must not call Close.
// Front ends that own an event loop pass their own poster.
func NewEngine(domain Domain, notifier Notifier, opts ...EngineOption) (*Engine, error) {
	if domain == nil {
		return nil, lexerrors.ValidationError("search domain is required", nil)
	}

	e := &Engine{
		name:     "default",
		domain:   domain,
		poster:   async.Immediate,
		observer: NopObserver{},
		progress: make(map[progressKey]int),
		handlers: make(map[int]func(CompletedEvent)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.index == nil {
		e.index = store.NewMemoryIndex()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With(slog.String("engine", e.name))
	if e.onError == nil {
		e.onError = func(err error) {
			e.logger.LogAttrs(context.Background(), slog.LevelError, "search_build_failed", lexerrors.LogAttrs(err)...)
		}
	}

	e.worker = async.NewWorker(e.handle)
	e.worker.OnDiscard(func(request) {
		// Close drops the pending request through the same hook.
		if e.closed.Load() {
			e.observer.SearchFinished(ModeAsync, OutcomeCancelled, 0)
			return
		}
		e.countSuperseded()
		e.observer.SearchFinished(ModeAsync, OutcomeSuperseded, 0)
	})
	if notifier != nil {
		e.unsubscribe = notifier.Subscribe(ListenerFunc(e.propChanged))
	}
	e.worker.Start()

	return e, nil
}

// Name returns the engine label.
func (e *Engine) Name() string {
	return e.name
}

// SearchAsync queues a search for fields and returns immediately. A request
// that has not started yet is replaced. The SearchCompleted handlers fire
// at most once, for the last request of a burst, on the poster's context.
func (e *Engine) SearchAsync(fields []SearchField) error {
	if e.closed.Load() {
		return lexerrors.ErrDisposed
	}

	req := request{
		seq:    e.latest.Add(1),
		fields: append([]SearchField(nil), fields...),
		queued: time.Now(),
	}
	e.observer.SearchSubmitted(ModeAsync)
	if err := e.worker.Submit(req); err != nil {
		return lexerrors.New(lexerrors.ErrCodeEngineDisposed, "search engine is disposed", err)
	}
	return nil
}

// Search brings the index up to date for fields and evaluates the query on
// the calling goroutine, blocking until done. It shares the coordination
// lock with the worker, so it waits for any build in progress. The result
// passes through the same filtering as SearchAsync.
func (e *Engine) Search(ctx context.Context, fields []SearchField) (ResultSet, error) {
	if e.closed.Load() {
		return nil, lexerrors.ErrDisposed
	}

	start := time.Now()
	e.observer.SearchSubmitted(ModeSync)
	results, ok, err := e.run(ctx, fields, func() bool {
		return ctx.Err() != nil || e.closed.Load()
	})
	switch {
	case err != nil:
		e.observer.SearchFinished(ModeSync, OutcomeFailed, time.Since(start))
		return nil, err
	case !ok:
		e.observer.SearchFinished(ModeSync, OutcomeCancelled, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, lexerrors.ErrDisposed
	}
	e.observer.SearchFinished(ModeSync, OutcomeCompleted, time.Since(start))
	return results, nil
}

// IsBusy reports whether an asynchronous request is pending or running.
func (e *Engine) IsBusy() bool {
	return e.worker.IsBusy()
}

// OnSearchCompleted registers a completion handler and returns a function
// that removes it. Handlers run on the poster's context.
func (e *Engine) OnSearchCompleted(fn func(CompletedEvent)) (remove func()) {
	e.hmu.Lock()
	id := e.nextHandler
	e.nextHandler++
	e.handlers[id] = fn
	e.hmu.Unlock()

	return func() {
		e.hmu.Lock()
		delete(e.handlers, id)
		e.hmu.Unlock()
	}
}

// handle is the worker entry point for SearchAsync requests.
func (e *Engine) handle(ctx context.Context, req request) {
	canceled := func() bool {
		return ctx.Err() != nil || e.worker.StopRequested() || e.worker.HasWork() || e.isSuperseded(req.seq)
	}

	results, ok, err := e.run(ctx, req.fields, canceled)
	elapsed := time.Since(req.queued)
	switch {
	case err != nil:
		e.observer.SearchFinished(ModeAsync, OutcomeFailed, elapsed)
		e.poster.Post(func() { e.onError(err) })
		return
	case !ok:
		e.finishAbandoned(ctx, req, elapsed)
		return
	case e.isSuperseded(req.seq):
		e.finishAbandoned(ctx, req, elapsed)
		return
	}

	event := CompletedEvent{Fields: req.fields, Results: results}
	posted := e.poster.Post(func() {
		// Re-check on the delivery context: a newer request may have been
		// submitted while this one waited in the poster's queue.
		if e.closed.Load() {
			e.observer.SearchFinished(ModeAsync, OutcomeCancelled, time.Since(req.queued))
			return
		}
		if e.isSuperseded(req.seq) {
			e.countSuperseded()
			e.observer.SearchFinished(ModeAsync, OutcomeSuperseded, time.Since(req.queued))
			return
		}
		e.fire(event)
		e.observer.SearchFinished(ModeAsync, OutcomeCompleted, time.Since(req.queued))
	})
	if !posted {
		e.observer.SearchFinished(ModeAsync, OutcomeCancelled, elapsed)
	}
}

// finishAbandoned records a request that stopped without delivering.
func (e *Engine) finishAbandoned(ctx context.Context, req request, elapsed time.Duration) {
	if ctx.Err() != nil || e.closed.Load() {
		e.observer.SearchFinished(ModeAsync, OutcomeCancelled, elapsed)
		return
	}
	e.countSuperseded()
	e.observer.SearchFinished(ModeAsync, OutcomeSuperseded, elapsed)
	e.logger.Debug("search_superseded",
		slog.Uint64("seq", req.seq),
		slog.Uint64("latest", e.latest.Load()))
}

func (e *Engine) isSuperseded(seq uint64) bool {
	return e.latest.Load() != seq
}

func (e *Engine) countSuperseded() {
	e.hmu.Lock()
	e.superseded++
	e.hmu.Unlock()
}

// fire calls every completion handler in registration order.
func (e *Engine) fire(event CompletedEvent) {
	e.hmu.Lock()
	ids := make([]int, 0, len(e.handlers))
	for id := range e.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(CompletedEvent), len(ids))
	for i, id := range ids {
		handlers[i] = e.handlers[id]
	}
	e.completed++
	e.hmu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// run extends the index for fields and evaluates them under the
// coordination lock. ok is false when canceled() fired before the result
// was complete; no partial result is ever returned.
func (e *Engine) run(ctx context.Context, fields []SearchField, canceled func() bool) (results ResultSet, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return nil, false, nil
	}

	if err := e.ensureSnapshotLocked(ctx); err != nil {
		return nil, false, err
	}

	for _, field := range fields {
		complete, err := e.extendLocked(ctx, field, canceled)
		if err != nil {
			return nil, false, err
		}
		if !complete {
			return nil, false, nil
		}
	}
	if canceled() {
		return nil, false, nil
	}

	results = NewResultSet()
	for _, field := range fields {
		ids, err := e.index.Search(ctx, field.Tag, field.Value)
		if err != nil {
			return nil, false, lexerrors.New(lexerrors.ErrCodeSearchFailed, "string index search failed", err).
				WithDetail("field", field.String())
		}
		results.Add(ids...)
	}

	results = e.domain.FilterResults(results)
	if results == nil {
		results = NewResultSet()
	}
	return results, true, nil
}

// ensureSnapshotLocked captures the searchable objects if no snapshot
// exists. The ordering is pinned until the next invalidation.
func (e *Engine) ensureSnapshotLocked(ctx context.Context) error {
	if e.haveSnapshot {
		return nil
	}

	ids, err := e.domain.GetSearchableObjects(ctx)
	if err != nil {
		return lexerrors.New(lexerrors.ErrCodeStringExtraction, "failed to list searchable objects", err)
	}
	e.snapshot = ids
	e.haveSnapshot = true
	e.logger.Debug("snapshot_captured",
		slog.Int("objects", len(ids)),
		slog.Int("epoch", e.epoch))
	return nil
}

func (e *Engine) keyFor(field SearchField) progressKey {
	if e.domain.IsFieldMultiString(field) {
		return progressKey{tag: field.Tag, ws: field.Value.WS}
	}
	return progressKey{tag: field.Tag}
}

// extendLocked folds snapshot objects into the index for field, starting
// at the field's cursor. The cursor is saved after every object, so a
// canceled walk resumes exactly where it stopped.
func (e *Engine) extendLocked(ctx context.Context, field SearchField, canceled func() bool) (complete bool, err error) {
	key := e.keyFor(field)
	pos := e.progress[key]
	if pos >= len(e.snapshot) {
		return true, nil
	}

	start := pos
	defer func() {
		if n := pos - start; n > 0 {
			e.observer.ObjectsIndexed(field.Tag, n)
		}
	}()

	for pos < len(e.snapshot) {
		if canceled() {
			e.logger.Debug("index_build_interrupted",
				slog.String("key", key.String()),
				slog.Int("position", pos),
				slog.Int("total", len(e.snapshot)))
			return false, nil
		}

		id := e.snapshot[pos]
		texts, err := e.domain.GetStrings(ctx, field, id)
		if err != nil {
			e.resetLocked(ctx, "string_extraction_failed")
			return false, lexerrors.New(lexerrors.ErrCodeStringExtraction, "failed to extract searchable strings", err).
				WithDetail("field", field.String()).
				WithDetail("object", strconv.FormatInt(int64(id), 10))
		}
		for _, text := range texts {
			if err := e.index.Add(ctx, id, field.Tag, text); err != nil {
				e.resetLocked(ctx, "index_add_failed")
				return false, lexerrors.New(lexerrors.ErrCodeIndexFailed, "failed to add string to index", err).
					WithDetail("field", field.String()).
					WithDetail("object", strconv.FormatInt(int64(id), 10))
			}
		}

		pos++
		e.progress[key] = pos
	}
	return true, nil
}

// propChanged is the Notifier callback. It may run on any goroutine.
func (e *Engine) propChanged(id store.ObjectID, tag store.Tag, _, _, _ int) {
	if e.closed.Load() || !e.domain.IsIndexResetRequired(id, tag) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return
	}
	e.resetLocked(context.Background(), "prop_changed")
}

// Invalidate discards the index, snapshot and progress as if a qualifying
// change had been reported.
func (e *Engine) Invalidate() error {
	if e.closed.Load() {
		return lexerrors.ErrDisposed
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(context.Background(), "explicit")
	return nil
}

// resetLocked clears all derived state. Index, snapshot and progress are
// never left partially valid: after this the next search starts over.
func (e *Engine) resetLocked(ctx context.Context, reason string) {
	if err := e.index.Clear(ctx); err != nil {
		e.logger.Warn("index_clear_failed", slog.String("error", err.Error()))
	}
	e.progress = make(map[progressKey]int)
	e.snapshot = nil
	e.haveSnapshot = false
	e.epoch++
	e.invalidations++
	e.observer.IndexInvalidated()
	e.logger.Debug("index_invalidated",
		slog.String("reason", reason),
		slog.Int("epoch", e.epoch))
}

// IndexedCount returns how many snapshot objects have been indexed for
// field's progress key.
func (e *Engine) IndexedCount(field SearchField) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress[e.keyFor(field)]
}

// Status returns a snapshot of engine state. It waits for any build in
// progress to release the coordination lock.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{
		SnapshotSize:  -1,
		Progress:      make(map[string]int, len(e.progress)),
		Epoch:         e.epoch,
		Invalidations: e.invalidations,
	}
	if e.haveSnapshot {
		st.SnapshotSize = len(e.snapshot)
	}
	for k, v := range e.progress {
		st.Progress[k.String()] = v
	}
	e.mu.Unlock()

	e.hmu.Lock()
	st.Completed = e.completed
	st.Superseded = e.superseded
	e.hmu.Unlock()

	st.Busy = e.worker.IsBusy()
	st.Closed = e.closed.Load()
	return st
}

// Close unsubscribes from the change feed, stops the worker and closes the
// index. A request in flight never completes. Close must not be called from
// a completion handler that runs on the worker goroutine (the default
// async.Immediate poster), since it waits for that goroutine to exit.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
		e.worker.Stop()

		e.mu.Lock()
		defer e.mu.Unlock()
		e.snapshot = nil
		e.haveSnapshot = false
		e.progress = make(map[progressKey]int)
		if cerr := e.index.Close(); cerr != nil {
			err = fmt.Errorf("failed to close index: %w", cerr)
		}
		e.logger.Debug("engine_closed")
	})
	return err
}
