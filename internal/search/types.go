// Package search implements the incremental, asynchronous search engine.
//
// An Engine owns a string index built lazily over the objects a Domain
// exposes. Requests are funneled through one background worker; the index
// for a field is extended only as far as the current snapshot of objects
// and only when a search first needs it. Change notifications that the
// Domain deems relevant discard the index, the snapshot and all progress.
package search

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Aman-CERP/lexsearch/internal/store"
)

// SearchField is one (field, value) search term. It doubles as the unit of
// indexing: the field's tag, plus the value's writing system when the field
// is multi-string, selects the progress cursor.
type SearchField struct {
	Tag   store.Tag  `json:"tag"`
	Value store.Text `json:"value"`
}

// NewSearchField creates a SearchField.
func NewSearchField(tag store.Tag, value string, ws store.WS) SearchField {
	return SearchField{Tag: tag, Value: store.NewText(value, ws)}
}

// String implements fmt.Stringer.
func (f SearchField) String() string {
	return fmt.Sprintf("%d=%s", f.Tag, f.Value)
}

// progressKey identifies an indexing cursor.
type progressKey struct {
	tag store.Tag
	ws  store.WS
}

func (k progressKey) String() string {
	return fmt.Sprintf("%d:%d", k.tag, k.ws)
}

// Domain supplies the searchable objects and their strings. It is the
// extension point a concrete search (lexicon entries, reversal entries,
// ...) implements; the engine itself is domain agnostic.
//
// GetSearchableObjects and GetStrings are called with the engine's
// coordination lock held and must not call back into the engine.
type Domain interface {
	// GetSearchableObjects returns the ordered ids to index. It is called
	// at most once per snapshot epoch.
	GetSearchableObjects(ctx context.Context) ([]store.ObjectID, error)

	// GetStrings returns the indexable strings of field for object id.
	// For multi-string fields only strings in field.Value.WS are expected.
	GetStrings(ctx context.Context, field SearchField, id store.ObjectID) ([]store.Text, error)

	// IsIndexResetRequired reports whether a change to tag on object id
	// invalidates the index.
	IsIndexResetRequired(id store.ObjectID, tag store.Tag) bool

	// IsFieldMultiString reports whether field has one value per writing
	// system, in which case each writing system is indexed separately.
	IsFieldMultiString(field SearchField) bool

	// FilterResults runs after the per-field results are unioned and
	// before delivery.
	FilterResults(results ResultSet) ResultSet
}

// BaseDomain provides defaults for the optional parts of Domain:
// single-string fields and no result filtering. Embed it in a concrete
// domain and override as needed.
type BaseDomain struct{}

// IsFieldMultiString implements Domain.
func (BaseDomain) IsFieldMultiString(SearchField) bool { return false }

// FilterResults implements Domain.
func (BaseDomain) FilterResults(results ResultSet) ResultSet { return results }

// Listener receives change notifications from a data source.
type Listener interface {
	// PropChanged reports that tag on object id changed. For sequence
	// properties ivMin is the first affected position and cvIns/cvDel the
	// inserted and deleted counts; scalar changes pass zeros.
	PropChanged(id store.ObjectID, tag store.Tag, ivMin, cvIns, cvDel int)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(id store.ObjectID, tag store.Tag, ivMin, cvIns, cvDel int)

// PropChanged implements Listener.
func (f ListenerFunc) PropChanged(id store.ObjectID, tag store.Tag, ivMin, cvIns, cvDel int) {
	f(id, tag, ivMin, cvIns, cvDel)
}

// Notifier is a change feed an engine subscribes to.
type Notifier interface {
	// Subscribe registers l and returns a function that unregisters it.
	Subscribe(l Listener) (unsubscribe func())
}

// CompletedEvent carries the outcome of an asynchronous search.
type CompletedEvent struct {
	Fields  []SearchField
	Results ResultSet
}

// ResultSet is a set of object ids.
type ResultSet map[store.ObjectID]struct{}

// NewResultSet creates a set holding ids.
func NewResultSet(ids ...store.ObjectID) ResultSet {
	rs := make(ResultSet, len(ids))
	for _, id := range ids {
		rs[id] = struct{}{}
	}
	return rs
}

// Add inserts ids.
func (rs ResultSet) Add(ids ...store.ObjectID) {
	for _, id := range ids {
		rs[id] = struct{}{}
	}
}

// Contains reports whether id is in the set.
func (rs ResultSet) Contains(id store.ObjectID) bool {
	_, ok := rs[id]
	return ok
}

// Len returns the number of ids.
func (rs ResultSet) Len() int {
	return len(rs)
}

// Sorted returns the ids in ascending order.
func (rs ResultSet) Sorted() []store.ObjectID {
	ids := make([]store.ObjectID, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Without returns a copy of the set minus ids.
func (rs ResultSet) Without(ids ...store.ObjectID) ResultSet {
	out := make(ResultSet, len(rs))
	for id := range rs {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		delete(out, id)
	}
	return out
}

// String implements fmt.Stringer.
func (rs ResultSet) String() string {
	ids := rs.Sorted()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(int64(id))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Status is a snapshot of engine state.
type Status struct {
	// SnapshotSize is the number of objects in the current snapshot, or -1
	// when no snapshot has been captured since the last invalidation.
	SnapshotSize int `json:"snapshot_size"`

	// Progress maps "tag:ws" keys to the number of snapshot objects already
	// folded into the index.
	Progress map[string]int `json:"progress"`

	Busy          bool `json:"busy"`
	Epoch         int  `json:"epoch"`
	Invalidations int  `json:"invalidations"`
	Completed     int  `json:"completed"`
	Superseded    int  `json:"superseded"`
	Closed        bool `json:"closed"`
}
