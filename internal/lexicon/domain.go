package lexicon

import (
	"context"
	"slices"

	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/store"
)

// Domain exposes a Store to the search engine.
type Domain struct {
	store   *Store
	exclude store.ObjectID
}

var _ search.Domain = (*Domain)(nil)

// DomainOption configures a Domain.
type DomainOption func(*Domain)

// WithExclude removes id from every result set, typically the entry a
// "find similar" search was started from.
func WithExclude(id store.ObjectID) DomainOption {
	return func(d *Domain) {
		d.exclude = id
	}
}

// NewDomain creates a Domain over s.
func NewDomain(s *Store, opts ...DomainOption) *Domain {
	d := &Domain{store: s}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetSearchableObjects implements search.Domain.
func (d *Domain) GetSearchableObjects(ctx context.Context) ([]store.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.store.IDs(), nil
}

// GetStrings implements search.Domain. An entry deleted since the snapshot
// was taken has no strings.
func (d *Domain) GetStrings(_ context.Context, field search.SearchField, id store.ObjectID) ([]store.Text, error) {
	e, ok := d.store.Entry(id)
	if !ok {
		return nil, nil
	}
	return e.Strings(field.Tag, field.Value.WS), nil
}

// IsIndexResetRequired implements search.Domain.
func (d *Domain) IsIndexResetRequired(_ store.ObjectID, tag store.Tag) bool {
	return tag == TagEntries || slices.Contains(SearchableTags, tag)
}

// IsFieldMultiString implements search.Domain.
func (d *Domain) IsFieldMultiString(field search.SearchField) bool {
	return field.Tag == TagGloss
}

// FilterResults implements search.Domain.
func (d *Domain) FilterResults(results search.ResultSet) search.ResultSet {
	if d.exclude == 0 || !results.Contains(d.exclude) {
		return results
	}
	return results.Without(d.exclude)
}
