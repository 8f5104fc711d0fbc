package lexicon

import (
	"slices"
	"strconv"
	"sync"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/store"
)

// change is one pending PropChanged notification.
type change struct {
	id           store.ObjectID
	tag          store.Tag
	ivMin        int
	cvIns, cvDel int
}

// Store is a thread-safe, ordered collection of entries. It is a
// search.Notifier: every mutation is reported to subscribers on the
// mutating goroutine, after the store lock is released.
type Store struct {
	mu      sync.RWMutex
	entries map[store.ObjectID]Entry
	order   []store.ObjectID
	nextID  store.ObjectID

	lmu       sync.Mutex
	listeners map[int]search.Listener
	nextL     int
}

var _ search.Notifier = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries:   make(map[store.ObjectID]Entry),
		nextID:    1,
		listeners: make(map[int]search.Listener),
	}
}

// Subscribe implements search.Notifier.
func (s *Store) Subscribe(l search.Listener) func() {
	s.lmu.Lock()
	id := s.nextL
	s.nextL++
	s.listeners[id] = l
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

// Subscribers returns the number of registered listeners.
func (s *Store) Subscribers() int {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	return len(s.listeners)
}

func (s *Store) notify(changes []change) {
	if len(changes) == 0 {
		return
	}
	s.lmu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]search.Listener, len(ids))
	for i, id := range ids {
		listeners[i] = s.listeners[id]
	}
	s.lmu.Unlock()

	for _, c := range changes {
		for _, l := range listeners {
			l.PropChanged(c.id, c.tag, c.ivMin, c.cvIns, c.cvDel)
		}
	}
}

// Put adds e, or replaces the entry with the same id. A zero id is
// assigned the next free id. It returns the entry's id.
func (s *Store) Put(e Entry) store.ObjectID {
	s.mu.Lock()
	changes := s.putLocked(e.Clone())
	id := e.ID
	if id == 0 {
		id = s.order[len(s.order)-1]
	}
	s.mu.Unlock()

	s.notify(changes)
	return id
}

func (s *Store) putLocked(e Entry) []change {
	if e.ID == 0 {
		e.ID = s.nextID
	}
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}

	old, exists := s.entries[e.ID]
	s.entries[e.ID] = e
	if !exists {
		s.order = append(s.order, e.ID)
		return []change{{id: RootID, tag: TagEntries, ivMin: len(s.order) - 1, cvIns: 1}}
	}

	var changes []change
	for _, tag := range old.changedTags(e) {
		changes = append(changes, change{id: e.ID, tag: tag})
	}
	return changes
}

// SetField sets a single field of entry id. ws selects the writing system
// for headword and gloss and is ignored otherwise. An empty value removes
// a headword or gloss form.
func (s *Store) SetField(id store.ObjectID, tag store.Tag, ws store.WS, value string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return unknownEntry(id)
	}
	updated := e.Clone()
	switch tag {
	case TagHeadword:
		updated.Headword = setForm(updated.Headword, ws, value)
	case TagGloss:
		updated.Gloss = setForm(updated.Gloss, ws, value)
	case TagCitation:
		updated.Citation = value
	case TagCategory:
		updated.Category = value
	case TagSense:
		updated.Senses = []string{value}
		if value == "" {
			updated.Senses = nil
		}
	default:
		s.mu.Unlock()
		return lexerrors.New(lexerrors.ErrCodeInvalidField, "field cannot be set", nil).
			WithDetail("field", TagName(tag))
	}
	changes := s.putLocked(updated)
	s.mu.Unlock()

	s.notify(changes)
	return nil
}

// SetSenses replaces the senses of entry id.
func (s *Store) SetSenses(id store.ObjectID, senses []string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return unknownEntry(id)
	}
	updated := e.Clone()
	updated.Senses = slices.Clone(senses)
	changes := s.putLocked(updated)
	s.mu.Unlock()

	s.notify(changes)
	return nil
}

func setForm(m map[store.WS]string, ws store.WS, value string) map[store.WS]string {
	if value == "" {
		delete(m, ws)
		return m
	}
	if m == nil {
		m = make(map[store.WS]string)
	}
	m[ws] = value
	return m
}

// Delete removes entry id.
func (s *Store) Delete(id store.ObjectID) error {
	s.mu.Lock()
	changes, ok := s.deleteLocked(id)
	s.mu.Unlock()
	if !ok {
		return unknownEntry(id)
	}

	s.notify(changes)
	return nil
}

func (s *Store) deleteLocked(id store.ObjectID) ([]change, bool) {
	if _, ok := s.entries[id]; !ok {
		return nil, false
	}
	delete(s.entries, id)
	pos := slices.Index(s.order, id)
	s.order = slices.Delete(s.order, pos, pos+1)
	return []change{{id: RootID, tag: TagEntries, ivMin: pos, cvDel: 1}}, true
}

// Replace makes the store hold exactly entries, in their order. Entries
// whose fields are unchanged produce no notification. It returns the
// number of notifications raised.
func (s *Store) Replace(entries []Entry) int {
	s.mu.Lock()
	keep := make(map[store.ObjectID]bool, len(entries))
	for _, e := range entries {
		keep[e.ID] = true
	}

	var changes []change
	for _, id := range slices.Clone(s.order) {
		if !keep[id] {
			c, _ := s.deleteLocked(id)
			changes = append(changes, c...)
		}
	}
	for _, e := range entries {
		changes = append(changes, s.putLocked(e.Clone())...)
	}

	want := make([]store.ObjectID, 0, len(entries))
	for _, e := range entries {
		if e.ID != 0 {
			want = append(want, e.ID)
		}
	}
	if len(want) == len(s.order) && !slices.Equal(want, s.order) {
		s.order = want
		changes = append(changes, change{id: RootID, tag: TagEntries, cvIns: len(want), cvDel: len(want)})
	}
	s.mu.Unlock()

	s.notify(changes)
	return len(changes)
}

// Entry returns a copy of entry id.
func (s *Store) Entry(id store.ObjectID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.Clone(), true
}

// Entries returns copies of all entries in order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.order))
	for i, id := range s.order {
		out[i] = s.entries[id].Clone()
	}
	return out
}

// IDs returns the entry ids in order.
func (s *Store) IDs() []store.ObjectID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func unknownEntry(id store.ObjectID) error {
	return lexerrors.New(lexerrors.ErrCodeUnknownEntry, "no such entry", nil).
		WithDetail("id", strconv.FormatInt(int64(id), 10))
}
