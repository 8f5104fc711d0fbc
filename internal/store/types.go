// Package store provides the string index used by the search engine.
// An index maps (field tag, writing system, token) to the set of objects
// whose strings contain the token. Three backends share one contract:
// an in-memory map, Bleve, and SQLite FTS5.
package store

import (
	"context"
	"fmt"
	"slices"
)

// ObjectID identifies an object in the data source.
type ObjectID int64

// Tag identifies a searchable attribute of an object.
type Tag int

// WS identifies a writing system. Zero means "unspecified".
type WS int

// Text is a string value qualified by its writing system.
type Text struct {
	Value string `json:"value" yaml:"value"`
	WS    WS     `json:"ws" yaml:"ws"`
}

// NewText creates a Text in the given writing system.
func NewText(value string, ws WS) Text {
	return Text{Value: value, WS: ws}
}

// String implements fmt.Stringer.
func (t Text) String() string {
	return fmt.Sprintf("%q@%d", t.Value, t.WS)
}

// Backend names accepted by NewStringIndex.
const (
	BackendMemory = "memory"
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
)

// StringIndex maps (tag, writing system) strings to their owning objects.
//
// Matching is token-prefix based: an object matches a query when every
// token of the query is a prefix of some token indexed for that object
// under the query's tag and writing system. Queries without tokens match
// nothing. Unknown tags yield empty results, not errors.
//
// Implementations are safe for concurrent use, but the search engine
// serializes all access under its own lock anyway.
type StringIndex interface {
	// Add indexes text as belonging to object id under tag.
	Add(ctx context.Context, id ObjectID, tag Tag, text Text) error

	// Search returns the ids of objects matching query under tag, sorted
	// ascending and without duplicates.
	Search(ctx context.Context, tag Tag, query Text) ([]ObjectID, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases resources. The index is unusable afterwards.
	Close() error
}

// fieldKey scopes index entries.
type fieldKey struct {
	tag Tag
	ws  WS
}

func (k fieldKey) String() string {
	return fmt.Sprintf("%d:%d", k.tag, k.ws)
}

// sortedIDs converts an id set to an ascending slice.
func sortedIDs(set map[ObjectID]struct{}) []ObjectID {
	ids := make([]ObjectID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// intersect keeps only ids present in both sets. It mutates and returns acc.
func intersect(acc, other map[ObjectID]struct{}) map[ObjectID]struct{} {
	for id := range acc {
		if _, ok := other[id]; !ok {
			delete(acc, id)
		}
	}
	return acc
}
