package mcp

import (
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

// Tool limits.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// SearchLexiconInput defines the input schema for the search_lexicon tool.
type SearchLexiconInput struct {
	Query   string   `json:"query" jsonschema:"text to match as a word prefix, case-insensitive"`
	Fields  []string `json:"fields,omitempty" jsonschema:"entry fields to search: headword, gloss, citation, category, sense; default headword"`
	WS      string   `json:"ws,omitempty" jsonschema:"writing system code for gloss, e.g. en; default all"`
	Exclude int64    `json:"exclude,omitempty" jsonschema:"entry id to leave out of the results"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum number of entries, default 20"`
}

// SearchLexiconOutput defines the output schema for the search_lexicon tool.
type SearchLexiconOutput struct {
	Entries   []searcher.Hit `json:"entries" jsonschema:"matching entries in id order"`
	Total     int            `json:"total" jsonschema:"number of matching entries before the limit"`
	Truncated bool           `json:"truncated,omitempty" jsonschema:"true if entries were cut at the limit"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Lexicon LexiconInfo              `json:"lexicon"`
	Engines map[string]search.Status `json:"engines"`
}

// LexiconInfo describes the open lexicon.
type LexiconInfo struct {
	Path           string   `json:"path,omitempty"`
	Entries        int      `json:"entries"`
	WritingSystems []string `json:"writing_systems"`
	Backend        string   `json:"backend"`
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
