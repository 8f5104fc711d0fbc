package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexsearch/internal/async"
	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/store"
)

const (
	tagName  store.Tag = 1
	tagGloss store.Tag = 2
	tagOther store.Tag = 3
)

// fakeDomain serves strings from an in-memory table and counts lookups.
type fakeDomain struct {
	mu      sync.Mutex
	order   []store.ObjectID
	strings map[store.ObjectID]map[store.Tag][]store.Text
	exclude store.ObjectID
	failOn  store.ObjectID

	calls atomic.Int64
	// gate, when set, is called before each lookup with the object id.
	gate func(id store.ObjectID)
}

func newFakeDomain() *fakeDomain {
	return &fakeDomain{strings: make(map[store.ObjectID]map[store.Tag][]store.Text)}
}

func (d *fakeDomain) set(id store.ObjectID, tag store.Tag, texts ...store.Text) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.strings[id]; !ok {
		d.order = append(d.order, id)
		d.strings[id] = make(map[store.Tag][]store.Text)
	}
	d.strings[id][tag] = texts
}

func (d *fakeDomain) GetSearchableObjects(context.Context) ([]store.ObjectID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]store.ObjectID(nil), d.order...), nil
}

func (d *fakeDomain) GetStrings(_ context.Context, field SearchField, id store.ObjectID) ([]store.Text, error) {
	d.calls.Add(1)
	if d.gate != nil {
		d.gate(id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn != 0 && d.failOn == id {
		return nil, errors.New("object is unreadable")
	}
	var out []store.Text
	for _, text := range d.strings[id][field.Tag] {
		if d.IsFieldMultiString(field) && text.WS != field.Value.WS {
			continue
		}
		out = append(out, text)
	}
	return out, nil
}

func (d *fakeDomain) IsIndexResetRequired(_ store.ObjectID, tag store.Tag) bool {
	return tag == tagName || tag == tagGloss
}

func (d *fakeDomain) IsFieldMultiString(field SearchField) bool {
	return field.Tag == tagGloss
}

func (d *fakeDomain) FilterResults(results ResultSet) ResultSet {
	if d.exclude == 0 {
		return results
	}
	return results.Without(d.exclude)
}

// fakeNotifier fans change notifications out to subscribers.
type fakeNotifier struct {
	mu        sync.Mutex
	listeners map[int]Listener
	next      int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{listeners: make(map[int]Listener)}
}

func (n *fakeNotifier) Subscribe(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.listeners[id] = l
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *fakeNotifier) fire(id store.ObjectID, tag store.Tag) {
	n.mu.Lock()
	ls := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		ls = append(ls, l)
	}
	n.mu.Unlock()
	for _, l := range ls {
		l.PropChanged(id, tag, 0, 0, 0)
	}
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// fruitDomain holds apple, banana and apple pie under tagName.
func fruitDomain() *fakeDomain {
	d := newFakeDomain()
	d.set(1, tagName, store.NewText("apple", 0))
	d.set(2, tagName, store.NewText("banana", 0))
	d.set(3, tagName, store.NewText("apple pie", 0))
	return d
}

func newTestEngine(t *testing.T, d Domain, n Notifier, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(d, n, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func field(tag store.Tag, value string) SearchField {
	return NewSearchField(tag, value, 0)
}

// events collects completion events delivered to a handler.
type events struct {
	mu  sync.Mutex
	got []CompletedEvent
}

func (ev *events) handler(e CompletedEvent) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.got = append(ev.got, e)
}

func (ev *events) all() []CompletedEvent {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return append([]CompletedEvent(nil), ev.got...)
}

func (ev *events) len() int {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return len(ev.got)
}

// outcomes counts async search outcomes reported to the observer.
type outcomes struct {
	NopObserver
	mu     sync.Mutex
	counts map[Outcome]int
}

func newOutcomes() *outcomes {
	return &outcomes{counts: make(map[Outcome]int)}
}

func (o *outcomes) SearchFinished(mode Mode, outcome Outcome, _ time.Duration) {
	if mode != ModeAsync {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[outcome]++
}

func (o *outcomes) get(outcome Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[outcome]
}

func TestNewEngine_RequiresDomain(t *testing.T) {
	// When: creating an engine without a domain
	_, err := NewEngine(nil, nil)

	// Then: a validation error is returned
	require.Error(t, err)
	assert.Equal(t, lexerrors.ErrCodeInvalidInput, lexerrors.GetCode(err))
}

func TestNewEngine_InitialStatus(t *testing.T) {
	// Given: a new engine
	e := newTestEngine(t, fruitDomain(), nil, WithName("fruit"))

	// Then: nothing has been indexed yet
	st := e.Status()
	assert.Equal(t, "fruit", e.Name())
	assert.Equal(t, -1, st.SnapshotSize)
	assert.Empty(t, st.Progress)
	assert.False(t, st.Busy)
	assert.False(t, st.Closed)
}

func TestEngine_Search_PrefixMatching(t *testing.T) {
	e := newTestEngine(t, fruitDomain(), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []store.ObjectID
	}{
		{"shared prefix", "app", []store.ObjectID{1, 3}},
		{"whole word", "banana", []store.ObjectID{2}},
		{"second token", "pie", []store.ObjectID{3}},
		{"all tokens must match", "apple pie", []store.ObjectID{3}},
		{"case insensitive", "APP", []store.ObjectID{1, 3}},
		{"no match", "cherry", []store.ObjectID{}},
		{"no tokens", "  !! ", []store.ObjectID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := e.Search(ctx, []SearchField{field(tagName, tt.query)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, results.Sorted())
		})
	}
}

func TestEngine_Search_UnknownTagIsEmpty(t *testing.T) {
	// Given: an engine over objects with no strings for tagOther
	e := newTestEngine(t, fruitDomain(), nil)

	// When: searching tagOther
	results, err := e.Search(context.Background(), []SearchField{field(tagOther, "apple")})

	// Then: the result is empty, not an error
	require.NoError(t, err)
	assert.Equal(t, 0, results.Len())
}

func TestEngine_Search_UnionAcrossFields(t *testing.T) {
	// Given: objects with names and glosses
	d := fruitDomain()
	d.set(4, tagGloss, store.NewText("cherry", 1))
	e := newTestEngine(t, d, nil)

	// When: searching two fields at once
	results, err := e.Search(context.Background(), []SearchField{
		field(tagName, "banana"),
		NewSearchField(tagGloss, "cher", 1),
	})

	// Then: the results are the union
	require.NoError(t, err)
	assert.Equal(t, []store.ObjectID{2, 4}, results.Sorted())
}

func TestEngine_Search_IsIdempotent(t *testing.T) {
	// Given: an engine that has searched once
	d := fruitDomain()
	e := newTestEngine(t, d, nil)
	ctx := context.Background()
	fields := []SearchField{field(tagName, "app")}

	first, err := e.Search(ctx, fields)
	require.NoError(t, err)
	calls := d.calls.Load()
	assert.Equal(t, int64(3), calls)

	// When: searching the same field again without changes
	second, err := e.Search(ctx, fields)
	require.NoError(t, err)

	// Then: results are the same and no object was read again
	assert.Equal(t, first, second)
	assert.Equal(t, calls, d.calls.Load())
}

func TestEngine_Search_IndexesEachFieldOnDemand(t *testing.T) {
	// Given: an engine over names and glosses
	d := fruitDomain()
	d.set(1, tagGloss, store.NewText("fruit", 1), store.NewText("fruta", 2))
	e := newTestEngine(t, d, nil)
	ctx := context.Background()

	// When: searching names only
	_, err := e.Search(ctx, []SearchField{field(tagName, "a")})
	require.NoError(t, err)

	// Then: only the name cursor advanced
	assert.Equal(t, 3, e.IndexedCount(field(tagName, "")))
	assert.Equal(t, 0, e.IndexedCount(NewSearchField(tagGloss, "", 1)))

	// When: searching glosses in writing system 2
	results, err := e.Search(ctx, []SearchField{NewSearchField(tagGloss, "fru", 2)})
	require.NoError(t, err)

	// Then: each writing system of a multi-string field has its own cursor
	assert.Equal(t, []store.ObjectID{1}, results.Sorted())
	assert.Equal(t, 3, e.IndexedCount(NewSearchField(tagGloss, "", 2)))
	assert.Equal(t, 0, e.IndexedCount(NewSearchField(tagGloss, "", 1)))
	assert.Equal(t, map[string]int{"1:0": 3, "2:2": 3}, e.Status().Progress)
}

func TestEngine_Search_SingleStringFieldIgnoresWritingSystem(t *testing.T) {
	// Given: an indexed single-string field
	e := newTestEngine(t, fruitDomain(), nil)
	_, err := e.Search(context.Background(), []SearchField{NewSearchField(tagName, "a", 5)})
	require.NoError(t, err)

	// Then: its cursor is keyed with writing system zero
	assert.Equal(t, 3, e.IndexedCount(NewSearchField(tagName, "", 9)))
}

func TestEngine_SearchAsync_DeliversResults(t *testing.T) {
	// Given: an engine with a completion handler
	e := newTestEngine(t, fruitDomain(), nil)
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	// When: searching asynchronously
	fields := []SearchField{field(tagName, "app")}
	require.NoError(t, e.SearchAsync(fields))

	// Then: exactly one event carries the request and its results
	require.Eventually(t, func() bool { return ev.len() == 1 }, 2*time.Second, time.Millisecond)
	got := ev.all()[0]
	assert.Equal(t, fields, got.Fields)
	assert.Equal(t, []store.ObjectID{1, 3}, got.Results.Sorted())
	require.Eventually(t, func() bool { return !e.IsBusy() }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 1, e.Status().Completed)
}

func TestEngine_SearchAsync_LatestRequestWins(t *testing.T) {
	// Given: an engine whose first object lookup blocks until released
	d := fruitDomain()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	d.gate = func(store.ObjectID) {
		once.Do(func() {
			close(started)
			<-release
		})
	}
	e := newTestEngine(t, d, nil)
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	// When: "a" is submitted, starts building, then "b" arrives
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "a")}))
	<-started
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "b")}))
	assert.True(t, e.IsBusy())
	close(release)

	// Then: only "b" completes
	require.Eventually(t, func() bool { return !e.IsBusy() }, 2*time.Second, time.Millisecond)
	got := ev.all()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Fields[0].Value.Value)
	assert.Equal(t, []store.ObjectID{2}, got[0].Results.Sorted())

	// And: the interrupted build resumed instead of starting over
	assert.Equal(t, int64(3), d.calls.Load())
	st := e.Status()
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Superseded)
}

func TestEngine_SearchAsync_BackToBackDeliversOnlyLast(t *testing.T) {
	for i := 0; i < 50; i++ {
		// Given: an engine with nothing blocking its builds
		disp := async.NewDispatcher()
		e := newTestEngine(t, fruitDomain(), nil, WithPoster(disp))
		ev := &events{}
		e.OnSearchCompleted(ev.handler)

		// When: two requests are submitted with no pause between them
		require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "a")}))
		require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "b")}))
		require.Eventually(t, func() bool { return !e.IsBusy() }, 2*time.Second, time.Millisecond)
		disp.Drain()

		// Then: exactly one event is delivered, for "b"
		got := ev.all()
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Fields[0].Value.Value)
		assert.Equal(t, []store.ObjectID{2}, got[0].Results.Sorted())
		disp.Close()
	}
}

func TestEngine_SearchAsync_BurstCoalesces(t *testing.T) {
	// Given: an engine whose first lookup blocks
	d := fruitDomain()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	d.gate = func(store.ObjectID) {
		once.Do(func() {
			close(started)
			<-release
		})
	}
	e := newTestEngine(t, d, nil)
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	// When: many requests arrive while the first is running
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "x")}))
	<-started
	for _, q := range []string{"b", "ba", "ban", "apple"} {
		require.NoError(t, e.SearchAsync([]SearchField{field(tagName, q)}))
	}
	close(release)

	// Then: only the last one is delivered
	require.Eventually(t, func() bool { return !e.IsBusy() }, 2*time.Second, time.Millisecond)
	got := ev.all()
	require.Len(t, got, 1)
	assert.Equal(t, "apple", got[0].Fields[0].Value.Value)
	assert.Equal(t, []store.ObjectID{1, 3}, got[0].Results.Sorted())
	assert.Equal(t, 4, e.Status().Superseded)
}

func TestEngine_SearchAsync_DispatcherDelivery(t *testing.T) {
	// Given: an engine delivering through a dispatcher
	disp := async.NewDispatcher()
	defer disp.Close()
	e := newTestEngine(t, fruitDomain(), nil, WithPoster(disp))
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	// When: the search finishes on the worker
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "ban")}))
	require.Eventually(t, func() bool { return disp.Pending() == 1 }, 2*time.Second, time.Millisecond)

	// Then: nothing is delivered until the owner drains
	assert.Equal(t, 0, ev.len())
	assert.Equal(t, 1, disp.Drain())
	require.Len(t, ev.all(), 1)
	assert.Equal(t, []store.ObjectID{2}, ev.all()[0].Results.Sorted())
}

func TestEngine_SearchAsync_SupersededWhileQueuedForDelivery(t *testing.T) {
	// Given: a completed search waiting in the dispatcher
	disp := async.NewDispatcher()
	defer disp.Close()
	e := newTestEngine(t, fruitDomain(), nil, WithPoster(disp))
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "ban")}))
	require.Eventually(t, func() bool { return disp.Pending() == 1 }, 2*time.Second, time.Millisecond)

	// When: a newer request is submitted before delivery
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "pie")}))
	require.Eventually(t, func() bool { return disp.Pending() == 2 }, 2*time.Second, time.Millisecond)
	disp.Drain()

	// Then: only the newer result reaches the handler
	got := ev.all()
	require.Len(t, got, 1)
	assert.Equal(t, []store.ObjectID{3}, got[0].Results.Sorted())
}

func TestEngine_OnSearchCompleted_Remove(t *testing.T) {
	// Given: a handler that has been removed
	e := newTestEngine(t, fruitDomain(), nil)
	ev := &events{}
	remove := e.OnSearchCompleted(ev.handler)
	remove()

	other := &events{}
	e.OnSearchCompleted(other.handler)

	// When: a search completes
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "a")}))

	// Then: only the remaining handler is called
	require.Eventually(t, func() bool { return other.len() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, ev.len())
}

func TestEngine_PropChanged_InvalidatesIndex(t *testing.T) {
	// Given: an indexed engine subscribed to a notifier
	d := fruitDomain()
	n := newFakeNotifier()
	e := newTestEngine(t, d, n)
	ctx := context.Background()

	_, err := e.Search(ctx, []SearchField{field(tagName, "a")})
	require.NoError(t, err)
	require.Equal(t, 3, e.Status().SnapshotSize)

	// When: a relevant property changes
	d.set(2, tagName, store.NewText("apricot", 0))
	n.fire(2, tagName)

	// Then: snapshot and progress are discarded
	st := e.Status()
	assert.Equal(t, -1, st.SnapshotSize)
	assert.Empty(t, st.Progress)
	assert.Equal(t, 1, st.Invalidations)

	// And: the next search sees the new data
	results, err := e.Search(ctx, []SearchField{field(tagName, "apr")})
	require.NoError(t, err)
	assert.Equal(t, []store.ObjectID{2}, results.Sorted())
	assert.Equal(t, int64(6), d.calls.Load())
}

func TestEngine_PropChanged_IgnoresIrrelevantTags(t *testing.T) {
	// Given: an indexed engine
	d := fruitDomain()
	n := newFakeNotifier()
	e := newTestEngine(t, d, n)
	_, err := e.Search(context.Background(), []SearchField{field(tagName, "a")})
	require.NoError(t, err)

	// When: an unrelated property changes
	n.fire(1, tagOther)

	// Then: the index is kept
	st := e.Status()
	assert.Equal(t, 3, st.SnapshotSize)
	assert.Equal(t, 0, st.Invalidations)
}

func TestEngine_PropChanged_DuringBuild(t *testing.T) {
	// Given: an async build blocked on its second object
	d := fruitDomain()
	atSecond := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	d.gate = func(id store.ObjectID) {
		if id == 2 {
			once.Do(func() {
				close(atSecond)
				<-release
			})
		}
	}
	n := newFakeNotifier()
	e := newTestEngine(t, d, n)
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "a")}))
	<-atSecond

	// When: a relevant change is reported mid-build
	notified := make(chan struct{})
	go func() {
		n.fire(1, tagName)
		close(notified)
	}()

	// Then: the invalidation waits for the build to release the lock
	select {
	case <-notified:
		t.Fatal("invalidation ran while the build held the lock")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-notified

	// And: the build result was consistent and the index was reset after
	require.Eventually(t, func() bool { return ev.len() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []store.ObjectID{1, 2, 3}, ev.all()[0].Results.Sorted())
	assert.Equal(t, -1, e.Status().SnapshotSize)
}

func TestEngine_Invalidate(t *testing.T) {
	// Given: an indexed engine
	e := newTestEngine(t, fruitDomain(), nil)
	_, err := e.Search(context.Background(), []SearchField{field(tagName, "a")})
	require.NoError(t, err)

	// When: invalidating explicitly
	require.NoError(t, e.Invalidate())

	// Then: all derived state is gone
	st := e.Status()
	assert.Equal(t, -1, st.SnapshotSize)
	assert.Empty(t, st.Progress)
	assert.Equal(t, 1, st.Epoch)
}

func TestEngine_FilterResults(t *testing.T) {
	// Given: a domain that excludes object 1
	d := fruitDomain()
	d.exclude = 1
	e := newTestEngine(t, d, nil)

	// When: searching sync and async
	results, err := e.Search(context.Background(), []SearchField{field(tagName, "app")})
	require.NoError(t, err)

	ev := &events{}
	e.OnSearchCompleted(ev.handler)
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "app")}))

	// Then: both paths filter the same way
	assert.Equal(t, []store.ObjectID{3}, results.Sorted())
	require.Eventually(t, func() bool { return ev.len() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []store.ObjectID{3}, ev.all()[0].Results.Sorted())
}

func TestEngine_Search_StringExtractionFailure(t *testing.T) {
	// Given: a domain that fails to read object 2
	d := fruitDomain()
	d.failOn = 2
	e := newTestEngine(t, d, nil)

	// When: searching
	_, err := e.Search(context.Background(), []SearchField{field(tagName, "a")})

	// Then: the error surfaces and the index is reset
	require.Error(t, err)
	assert.True(t, errors.Is(err, lexerrors.ErrStringExtraction))
	st := e.Status()
	assert.Equal(t, -1, st.SnapshotSize)
	assert.Empty(t, st.Progress)

	// And: the engine recovers once the data is readable
	d.mu.Lock()
	d.failOn = 0
	d.mu.Unlock()
	results, err := e.Search(context.Background(), []SearchField{field(tagName, "a")})
	require.NoError(t, err)
	assert.Equal(t, []store.ObjectID{1, 2, 3}, results.Sorted())
}

func TestEngine_SearchAsync_FailureGoesToErrorHandler(t *testing.T) {
	// Given: a failing domain and an error handler
	d := fruitDomain()
	d.failOn = 3
	var got atomic.Value
	e := newTestEngine(t, d, nil, WithErrorHandler(func(err error) { got.Store(err) }))
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	// When: searching asynchronously
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "a")}))

	// Then: the handler receives the error and no completion fires
	require.Eventually(t, func() bool { return got.Load() != nil }, 2*time.Second, time.Millisecond)
	err := got.Load().(error)
	assert.Equal(t, lexerrors.ErrCodeStringExtraction, lexerrors.GetCode(err))
	assert.Equal(t, 0, ev.len())
}

func TestEngine_Search_ContextCancelled(t *testing.T) {
	// Given: a cancelled context
	e := newTestEngine(t, fruitDomain(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: searching
	_, err := e.Search(ctx, []SearchField{field(tagName, "a")})

	// Then: the context error is returned and progress stays resumable
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.IndexedCount(field(tagName, "")))
}

func TestEngine_Close(t *testing.T) {
	// Given: a subscribed engine
	n := newFakeNotifier()
	e, err := NewEngine(fruitDomain(), n)
	require.NoError(t, err)
	require.Equal(t, 1, n.count())

	// When: closing it twice
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	// Then: it is unsubscribed and rejects further work
	assert.Equal(t, 0, n.count())
	assert.True(t, e.Status().Closed)
	assert.ErrorIs(t, e.SearchAsync([]SearchField{field(tagName, "a")}), lexerrors.ErrDisposed)
	_, err = e.Search(context.Background(), []SearchField{field(tagName, "a")})
	assert.ErrorIs(t, err, lexerrors.ErrDisposed)
	assert.ErrorIs(t, e.Invalidate(), lexerrors.ErrDisposed)
}

func TestEngine_Close_DuringBuildDeliversNothing(t *testing.T) {
	// Given: an async build blocked on its first object
	d := fruitDomain()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	d.gate = func(store.ObjectID) {
		once.Do(func() {
			close(started)
			<-release
		})
	}
	e, err := NewEngine(d, nil)
	require.NoError(t, err)
	ev := &events{}
	e.OnSearchCompleted(ev.handler)

	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "a")}))
	<-started

	// When: the engine is closed mid-build
	closed := make(chan struct{})
	go func() {
		_ = e.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool { return e.closed.Load() }, 2*time.Second, time.Millisecond)
	close(release)
	<-closed

	// Then: no completion is delivered
	assert.Equal(t, 0, ev.len())
}

func TestEngine_Close_DroppedRequestIsCancelled(t *testing.T) {
	// Given: a running build for "a" and a pending "b" replaced by "c"
	d := fruitDomain()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	d.gate = func(store.ObjectID) {
		once.Do(func() {
			close(started)
			<-release
		})
	}
	obs := newOutcomes()
	e, err := NewEngine(d, nil, WithObserver(obs))
	require.NoError(t, err)

	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "a")}))
	<-started
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "b")}))
	require.NoError(t, e.SearchAsync([]SearchField{field(tagName, "c")}))

	// When: the engine is closed before "c" runs
	closed := make(chan struct{})
	go func() {
		_ = e.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool { return e.closed.Load() }, 2*time.Second, time.Millisecond)
	close(release)
	<-closed

	// Then: only "b" counts as superseded; "a" and "c" were cancelled
	assert.Equal(t, 1, e.Status().Superseded)
	assert.Equal(t, 1, obs.get(OutcomeSuperseded))
	assert.Equal(t, 2, obs.get(OutcomeCancelled))
	assert.Equal(t, 0, obs.get(OutcomeCompleted))
}

func TestEngine_WithIndexBackends(t *testing.T) {
	for _, backend := range store.Backends {
		t.Run(backend, func(t *testing.T) {
			idx, err := store.NewStringIndex(backend)
			require.NoError(t, err)
			e := newTestEngine(t, fruitDomain(), nil, WithIndex(idx))

			results, err := e.Search(context.Background(), []SearchField{field(tagName, "apple p")})
			require.NoError(t, err)
			assert.Equal(t, []store.ObjectID{3}, results.Sorted())
		})
	}
}

func TestResultSet(t *testing.T) {
	rs := NewResultSet(3, 1, 3)
	rs.Add(2)

	assert.Equal(t, 3, rs.Len())
	assert.True(t, rs.Contains(1))
	assert.False(t, rs.Contains(4))
	assert.Equal(t, []store.ObjectID{1, 2, 3}, rs.Sorted())
	assert.Equal(t, "{1, 3}", rs.Without(2).String())
	assert.Equal(t, 3, rs.Len(), "Without must not mutate")
}

func TestSearchField_String(t *testing.T) {
	f := NewSearchField(tagGloss, "fruit", 2)
	assert.True(t, strings.HasPrefix(f.String(), "2="))
	assert.Contains(t, f.String(), "fruit")
}
