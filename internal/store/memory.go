package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// postings is the token dictionary for one (tag, ws) scope.
type postings struct {
	terms  map[string]map[ObjectID]struct{}
	sorted []string
	dirty  bool
}

func newPostings() *postings {
	return &postings{terms: make(map[string]map[ObjectID]struct{})}
}

func (p *postings) add(token string, id ObjectID) {
	ids, ok := p.terms[token]
	if !ok {
		ids = make(map[ObjectID]struct{})
		p.terms[token] = ids
		p.dirty = true
	}
	ids[id] = struct{}{}
}

// prefixMatches returns the union of ids for every term starting with prefix.
func (p *postings) prefixMatches(prefix string) map[ObjectID]struct{} {
	if p.dirty {
		p.sorted = p.sorted[:0]
		for term := range p.terms {
			p.sorted = append(p.sorted, term)
		}
		sort.Strings(p.sorted)
		p.dirty = false
	}

	matches := make(map[ObjectID]struct{})
	for i := sort.SearchStrings(p.sorted, prefix); i < len(p.sorted); i++ {
		term := p.sorted[i]
		if !strings.HasPrefix(term, prefix) {
			break
		}
		for id := range p.terms[term] {
			matches[id] = struct{}{}
		}
	}
	return matches
}

// MemoryIndex is a map-backed StringIndex with a sorted term dictionary
// per field for prefix lookups.
type MemoryIndex struct {
	mu     sync.Mutex
	fields map[fieldKey]*postings
	closed bool
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{fields: make(map[fieldKey]*postings)}
}

// Add implements StringIndex.
func (m *MemoryIndex) Add(_ context.Context, id ObjectID, tag Tag, text Text) error {
	tokens := uniqueTokens(text.Value)
	if len(tokens) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("index is closed")
	}

	key := fieldKey{tag: tag, ws: text.WS}
	p, ok := m.fields[key]
	if !ok {
		p = newPostings()
		m.fields[key] = p
	}
	for _, tok := range tokens {
		p.add(tok, id)
	}
	return nil
}

// Search implements StringIndex.
func (m *MemoryIndex) Search(_ context.Context, tag Tag, query Text) ([]ObjectID, error) {
	tokens := uniqueTokens(query.Value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("index is closed")
	}

	p, ok := m.fields[fieldKey{tag: tag, ws: query.WS}]
	if !ok || len(tokens) == 0 {
		return []ObjectID{}, nil
	}

	var acc map[ObjectID]struct{}
	for _, tok := range tokens {
		matches := p.prefixMatches(tok)
		if acc == nil {
			acc = matches
		} else {
			acc = intersect(acc, matches)
		}
		if len(acc) == 0 {
			break
		}
	}
	return sortedIDs(acc), nil
}

// Clear implements StringIndex.
func (m *MemoryIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("index is closed")
	}
	m.fields = make(map[fieldKey]*postings)
	return nil
}

// Close implements StringIndex.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.fields = nil
	return nil
}

// Len returns the number of distinct terms across all fields.
func (m *MemoryIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, p := range m.fields {
		n += len(p.terms)
	}
	return n
}

// Verify interface implementation
var _ StringIndex = (*MemoryIndex)(nil)
