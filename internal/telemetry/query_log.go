package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/lexsearch/internal/store"
)

// LatencyBucket is a coarse latency histogram bucket.
type LatencyBucket string

const (
	BucketP1    LatencyBucket = "p1"    // <1ms
	BucketP10   LatencyBucket = "p10"   // 1-10ms
	BucketP100  LatencyBucket = "p100"  // 10-100ms
	BucketP1000 LatencyBucket = "p1000" // >=100ms
)

// LatencyToBucket converts a duration to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 100*time.Millisecond:
		return BucketP100
	default:
		return BucketP1000
	}
}

// QueryEvent is one search as seen by a command (CLI, browser, MCP tool).
type QueryEvent struct {
	Query       string
	Field       string
	ResultCount int
	Latency     time.Duration
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, 0, b.size)
	start := (b.head - b.size + b.capacity) % b.capacity
	for i := range b.size {
		out = append(out, b.items[(start+i)%b.capacity])
	}
	return out
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryLogSnapshot is an immutable view of a QueryLog.
type QueryLogSnapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	FieldCounts         map[string]int64        `json:"field_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	RepeatCount         int64                   `json:"repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of queries that found nothing.
func (s *QueryLogSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// QueryLogConfig sizes the bounded parts of a QueryLog.
type QueryLogConfig struct {
	TopTermsCapacity      int // default 100
	ZeroResultsCapacity   int // default 50
	RecentQueriesCapacity int // default 500
}

// QueryLog aggregates searched queries in memory. Safe for concurrent use.
type QueryLog struct {
	mu sync.Mutex

	fields          map[string]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	recentQueries   *lru.Cache[string, struct{}]
	totalQueries    int64
	zeroResultCount int64
	repeatCount     int64
	startTime       time.Time
}

// NewQueryLog creates a log; zero config fields take defaults.
func NewQueryLog(cfg QueryLogConfig) *QueryLog {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 50
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)
	return &QueryLog{
		fields:        make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recent,
		startTime:     time.Now(),
	}
}

// Record adds one query.
func (l *QueryLog) Record(event QueryEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalQueries++
	l.fields[event.Field]++
	l.latencies[LatencyToBucket(event.Latency)]++

	for _, term := range uniqueTerms(event.Query) {
		count, _ := l.topTerms.Get(term)
		l.topTerms.Add(term, count+1)
	}

	if event.ResultCount == 0 {
		l.zeroResults.Add(event.Query)
		l.zeroResultCount++
	}

	key := event.Field + "\x00" + strings.Join(store.Tokenize(event.Query), " ")
	if _, seen := l.recentQueries.Get(key); seen {
		l.repeatCount++
	}
	l.recentQueries.Add(key, struct{}{})
}

func uniqueTerms(query string) []string {
	tokens := store.Tokenize(query)
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Snapshot returns the current aggregates.
func (l *QueryLog) Snapshot() *QueryLogSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(map[string]int64, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(l.latencies))
	for k, v := range l.latencies {
		latencies[k] = v
	}

	var terms []TermCount
	for _, key := range l.topTerms.Keys() {
		if count, ok := l.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})

	return &QueryLogSnapshot{
		TotalQueries:        l.totalQueries,
		FieldCounts:         fields,
		TopTerms:            terms,
		ZeroResultQueries:   l.zeroResults.Items(),
		ZeroResultCount:     l.zeroResultCount,
		LatencyDistribution: latencies,
		RepeatCount:         l.repeatCount,
		Since:               l.startTime,
	}
}
