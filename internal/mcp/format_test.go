package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	got := FormatSearchResults("xyz", SearchLexiconOutput{})

	assert.Equal(t, `No entries found for "xyz"`, got)
}

func TestFormatSearchResults_Entry(t *testing.T) {
	out := SearchLexiconOutput{
		Entries: []searcher.Hit{{
			ID:       7,
			Headword: map[string]string{"en": "house", "fr": "maison"},
			Gloss:    map[string]string{"fr": "demeure", "en": "dwelling"},
			Citation: "house",
			Category: "noun",
			Senses:   []string{"a building", "a family"},
		}},
		Total: 1,
	}

	got := FormatSearchResults("hou", out)

	assert.Contains(t, got, `## Entries matching "hou"`)
	assert.Contains(t, got, "Found 1 entry\n")
	assert.Contains(t, got, "### house / maison (#7)")
	assert.Contains(t, got, "*noun*")
	assert.Contains(t, got, "- citation: house")
	assert.Contains(t, got, "- gloss (en): dwelling\n- gloss (fr): demeure")
	assert.Contains(t, got, "1. a building\n2. a family")
}

func TestFormatSearchResults_Truncated(t *testing.T) {
	out := SearchLexiconOutput{
		Entries:   []searcher.Hit{{ID: 1}},
		Total:     5,
		Truncated: true,
	}

	got := FormatSearchResults("a", out)

	assert.Contains(t, got, "Found 5 entries, showing 1")
	assert.Contains(t, got, "### (no headword) (#1)")
}
