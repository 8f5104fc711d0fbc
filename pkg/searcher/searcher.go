package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/lexsearch/internal/async"
	"github.com/Aman-CERP/lexsearch/internal/config"
	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/store"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
	"github.com/Aman-CERP/lexsearch/internal/watcher"
)

// MainEngine is the registry name of the engine without exclusions.
const MainEngine = "lexicon"

// ErrNilStore is returned by New without a store.
var ErrNilStore = errors.New("lexicon store is required")

// Searcher searches one lexicon.
type Searcher struct {
	store *lexicon.Store
	ws    *lexicon.WritingSystems
	path  string

	backend      string
	registrySize int
	maxResults   int
	debounce     time.Duration

	poster  async.Poster
	logger  *slog.Logger
	metrics *telemetry.Metrics
	queries *telemetry.QueryLog

	registry *search.Registry

	reloadMu  sync.Mutex
	closeOnce sync.Once
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithBackend selects the string index backend of new engines.
func WithBackend(backend string) Option {
	return func(s *Searcher) {
		s.backend = backend
	}
}

// WithRegistrySize bounds the number of live engines.
func WithRegistrySize(n int) Option {
	return func(s *Searcher) {
		s.registrySize = n
	}
}

// WithMaxResults caps Result.Hits. Zero means no cap.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		s.maxResults = n
	}
}

// WithPoster sets where engines deliver asynchronous results.
func WithPoster(p async.Poster) Option {
	return func(s *Searcher) {
		s.poster = p
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = l
	}
}

// WithMetrics sets the metric set engines report to.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// WithQueryLog sets the query log searches are recorded in.
func WithQueryLog(q *telemetry.QueryLog) Option {
	return func(s *Searcher) {
		s.queries = q
	}
}

// WithPath sets the lexicon file used by Reload and Watch.
func WithPath(path string) Option {
	return func(s *Searcher) {
		s.path = path
	}
}

// WithWatchDebounce sets the debounce window used by Watch.
func WithWatchDebounce(d time.Duration) Option {
	return func(s *Searcher) {
		s.debounce = d
	}
}

// New creates a Searcher over an existing store. ws may be nil.
func New(st *lexicon.Store, ws *lexicon.WritingSystems, opts ...Option) (*Searcher, error) {
	if st == nil {
		return nil, ErrNilStore
	}
	if ws == nil {
		ws = lexicon.NewWritingSystems()
	}

	s := &Searcher{
		store:        st,
		ws:           ws,
		backend:      store.BackendMemory,
		registrySize: search.DefaultRegistrySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewMetrics(telemetry.WithTagNames(lexicon.TagName))
	}
	if s.queries == nil {
		s.queries = telemetry.NewQueryLog(telemetry.QueryLogConfig{})
	}
	if !store.IsValidBackend(s.backend) {
		return nil, lexerrors.ConfigError(fmt.Sprintf("unknown index backend %q", s.backend), nil)
	}

	registry, err := search.NewRegistry(s.registrySize)
	if err != nil {
		return nil, err
	}
	s.registry = registry
	return s, nil
}

// Open loads the lexicon named by cfg and creates a Searcher over it.
// cfg's writing systems are registered first so their ids are stable.
// Options are applied after the ones derived from cfg.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Searcher, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	debounce, err := cfg.WatchDebounce()
	if err != nil {
		return nil, lexerrors.ConfigError("invalid watch debounce", err)
	}

	ws := lexicon.NewWritingSystems(cfg.Lexicon.WritingSystems...)
	st, ws, err := lexicon.Open(ctx, cfg.Lexicon.Path, ws)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithPath(cfg.Lexicon.Path),
		WithBackend(cfg.Search.Backend),
		WithRegistrySize(cfg.Search.RegistrySize),
		WithMaxResults(cfg.Search.MaxResults),
		WithWatchDebounce(debounce),
	}
	s, err := New(st, ws, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	s.logger.Info("lexicon_opened",
		slog.String("path", cfg.Lexicon.Path),
		slog.Int("entries", st.Len()),
		slog.String("backend", s.backend))
	return s, nil
}

// Engine returns the engine that leaves out exclude, creating it on first
// use. Zero excludes nothing.
func (s *Searcher) Engine(exclude store.ObjectID) (*search.Engine, error) {
	name := MainEngine
	if exclude != 0 {
		name = fmt.Sprintf("similar-%d", exclude)
	}
	return s.registry.GetOrCreate(name, func() (*search.Engine, error) {
		idx, err := store.NewStringIndex(s.backend)
		if err != nil {
			return nil, lexerrors.ConfigError("failed to create string index", err).
				WithDetail("backend", s.backend)
		}
		domain := lexicon.NewDomain(s.store, lexicon.WithExclude(exclude))
		engineOpts := []search.EngineOption{
			search.WithName(name),
			search.WithIndex(idx),
			search.WithObserver(s.metrics),
			search.WithLogger(s.logger),
		}
		if s.poster != nil {
			engineOpts = append(engineOpts, search.WithPoster(s.poster))
		}
		e, err := search.NewEngine(domain, s.store, engineOpts...)
		if err != nil {
			_ = idx.Close()
			return nil, err
		}
		return e, nil
	})
}

// Search runs q synchronously and records it in the query log.
func (s *Searcher) Search(ctx context.Context, q Query) (*Result, error) {
	fields, err := s.Fields(q)
	if err != nil {
		return nil, err
	}
	engine, err := s.Engine(store.ObjectID(q.Exclude))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := engine.Search(ctx, fields)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	s.Record(q, results.Len(), elapsed)
	return &Result{
		Query:   q,
		Hits:    s.Hits(results),
		Total:   results.Len(),
		Elapsed: elapsed,
	}, nil
}

// Record adds a finished query to the query log. Asynchronous callers
// record from their completion handler.
func (s *Searcher) Record(q Query, resultCount int, latency time.Duration) {
	s.queries.Record(telemetry.QueryEvent{
		Query:       q.Text,
		Field:       q.FieldLabel(),
		ResultCount: resultCount,
		Latency:     latency,
	})
}

// Reload re-reads the lexicon file. Engines see only the entries and
// fields that changed. It returns the number of changes applied.
func (s *Searcher) Reload(ctx context.Context) (int, error) {
	if s.path == "" {
		return 0, lexerrors.ConfigError("no lexicon file to reload", nil)
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	changes, err := lexicon.Reload(ctx, s.store, s.path, s.ws)
	if err != nil {
		return 0, err
	}
	s.logger.Info("lexicon_reloaded",
		slog.String("path", s.path),
		slog.Int("changes", changes),
		slog.Int("entries", s.store.Len()))
	return changes, nil
}

// Watch reloads the lexicon whenever its file changes, until ctx is done.
// A batch in which the file disappeared is skipped: editors that save by
// rename delete and recreate the file.
func (s *Searcher) Watch(ctx context.Context, onReload func(changes int)) error {
	if s.path == "" {
		return lexerrors.ConfigError("no lexicon file to watch", nil)
	}
	opts := watcher.DefaultOptions()
	if s.debounce > 0 {
		opts.DebounceWindow = s.debounce
	}
	return watcher.Watch(ctx, s.path, opts, func(ctx context.Context, batch []watcher.FileEvent) error {
		if last := batch[len(batch)-1]; last.Gone() {
			s.logger.Debug("lexicon_removed", slog.String("path", s.path))
			return nil
		}
		changes, err := s.Reload(ctx)
		if err != nil {
			return err
		}
		if onReload != nil {
			onReload(changes)
		}
		return nil
	})
}

// Warm builds the main engine's index for every field, so later searches
// only pay for matching. It returns the number of indexed fields.
func (s *Searcher) Warm(ctx context.Context) (int, error) {
	// Indexing does not depend on the search text.
	fields, err := s.Fields(Query{Text: "a", Fields: AllFields})
	if err != nil {
		return 0, err
	}
	engine, err := s.Engine(0)
	if err != nil {
		return 0, err
	}
	if _, err := engine.Search(ctx, fields); err != nil {
		return 0, err
	}
	s.logger.Debug("lexicon_warmed", slog.Int("fields", len(fields)))
	return len(fields), nil
}

// Save writes the store back to the lexicon file.
func (s *Searcher) Save(ctx context.Context) error {
	if s.path == "" {
		return lexerrors.ConfigError("no lexicon file to save", nil)
	}
	return lexicon.Save(ctx, s.path, s.store.Entries(), s.ws)
}

// Status returns the status of every live engine by name.
func (s *Searcher) Status() map[string]search.Status {
	out := make(map[string]search.Status)
	for _, name := range s.registry.Names() {
		if e, ok := s.registry.Get(name); ok {
			out[name] = e.Status()
		}
	}
	return out
}

// Store returns the lexicon store.
func (s *Searcher) Store() *lexicon.Store { return s.store }

// WritingSystems returns the writing system table.
func (s *Searcher) WritingSystems() *lexicon.WritingSystems { return s.ws }

// Metrics returns the metric set.
func (s *Searcher) Metrics() *telemetry.Metrics { return s.metrics }

// QueryLog returns the query log.
func (s *Searcher) QueryLog() *telemetry.QueryLog { return s.queries }

// Path returns the lexicon file, or "" for an in-memory lexicon.
func (s *Searcher) Path() string { return s.path }

// Backend returns the index backend name.
func (s *Searcher) Backend() string { return s.backend }

// Close closes every engine. It is idempotent.
func (s *Searcher) Close() error {
	s.closeOnce.Do(s.registry.Close)
	return nil
}
