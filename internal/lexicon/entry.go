// Package lexicon is a small dictionary data source for the search engine.
//
// A Store holds lexical entries in memory and reports every change to its
// subscribers the way a live object model would. Domain adapts a Store to
// search.Domain so entries can be searched by headword, gloss, citation
// form, category or sense. Lexicons are persisted as YAML files.
package lexicon

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Aman-CERP/lexsearch/internal/store"
)

// Field tags.
const (
	// TagEntries is the entry list owned by the lexicon root. Changes to it
	// are reported with RootID.
	TagEntries store.Tag = 1

	TagHeadword store.Tag = 101
	TagGloss    store.Tag = 102
	TagCitation store.Tag = 103
	TagCategory store.Tag = 104
	TagSense    store.Tag = 105
)

// RootID is the object id of the lexicon itself.
const RootID store.ObjectID = 0

var tagNames = map[store.Tag]string{
	TagEntries:  "entries",
	TagHeadword: "headword",
	TagGloss:    "gloss",
	TagCitation: "citation",
	TagCategory: "category",
	TagSense:    "sense",
}

// SearchableTags lists the entry fields that can be searched.
var SearchableTags = []store.Tag{TagHeadword, TagGloss, TagCitation, TagCategory, TagSense}

// TagName returns the field name of tag.
func TagName(tag store.Tag) string {
	if name, ok := tagNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", tag)
}

// ParseTag resolves a field name such as "gloss" to its tag.
func ParseTag(name string) (store.Tag, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for tag, n := range tagNames {
		if n == name && tag != TagEntries {
			return tag, true
		}
	}
	return 0, false
}

// Entry is one lexical entry. Headword and Gloss hold one value per writing
// system; the other fields are plain strings.
type Entry struct {
	ID       store.ObjectID
	Headword map[store.WS]string
	Gloss    map[store.WS]string
	Citation string
	Category string
	Senses   []string
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.Headword = maps.Clone(e.Headword)
	out.Gloss = maps.Clone(e.Gloss)
	out.Senses = slices.Clone(e.Senses)
	return out
}

// Strings returns the values of tag. For multi-string fields only values in
// ws are returned; for the others ws is ignored.
func (e Entry) Strings(tag store.Tag, ws store.WS) []store.Text {
	switch tag {
	case TagHeadword:
		return allForms(e.Headword)
	case TagGloss:
		if v, ok := e.Gloss[ws]; ok && v != "" {
			return []store.Text{store.NewText(v, ws)}
		}
		return nil
	case TagCitation:
		return single(e.Citation)
	case TagCategory:
		return single(e.Category)
	case TagSense:
		out := make([]store.Text, 0, len(e.Senses))
		for _, s := range e.Senses {
			if s != "" {
				out = append(out, store.NewText(s, 0))
			}
		}
		return out
	default:
		return nil
	}
}

// changedTags lists the fields that differ between e and other.
func (e Entry) changedTags(other Entry) []store.Tag {
	var tags []store.Tag
	if !maps.Equal(e.Headword, other.Headword) {
		tags = append(tags, TagHeadword)
	}
	if !maps.Equal(e.Gloss, other.Gloss) {
		tags = append(tags, TagGloss)
	}
	if e.Citation != other.Citation {
		tags = append(tags, TagCitation)
	}
	if e.Category != other.Category {
		tags = append(tags, TagCategory)
	}
	if !slices.Equal(e.Senses, other.Senses) {
		tags = append(tags, TagSense)
	}
	return tags
}

// allForms flattens every writing system's value into writing system zero,
// so a headword matches whatever script the query is typed in.
func allForms(m map[store.WS]string) []store.Text {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]store.Text, 0, len(keys))
	for _, ws := range keys {
		if v := m[ws]; v != "" {
			out = append(out, store.NewText(v, 0))
		}
	}
	return out
}

func single(v string) []store.Text {
	if v == "" {
		return nil
	}
	return []store.Text{store.NewText(v, 0)}
}
