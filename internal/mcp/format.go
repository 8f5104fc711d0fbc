package mcp

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

// FormatSearchResults renders search_lexicon output as markdown.
func FormatSearchResults(query string, out SearchLexiconOutput) string {
	if len(out.Entries) == 0 {
		return fmt.Sprintf("No entries found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Entries matching \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d entr", out.Total)
	if out.Total == 1 {
		sb.WriteString("y")
	} else {
		sb.WriteString("ies")
	}
	if out.Truncated {
		fmt.Fprintf(&sb, ", showing %d", len(out.Entries))
	}
	sb.WriteString("\n\n")

	for _, h := range out.Entries {
		formatHit(&sb, h)
	}
	return sb.String()
}

func formatHit(sb *strings.Builder, h searcher.Hit) {
	fmt.Fprintf(sb, "### %s (#%d)\n", headline(h), h.ID)
	if h.Category != "" {
		fmt.Fprintf(sb, "*%s*\n", h.Category)
	}
	if h.Citation != "" {
		fmt.Fprintf(sb, "- citation: %s\n", h.Citation)
	}
	for _, ws := range slices.Sorted(maps.Keys(h.Gloss)) {
		fmt.Fprintf(sb, "- gloss (%s): %s\n", ws, h.Gloss[ws])
	}
	for i, sense := range h.Senses {
		fmt.Fprintf(sb, "%d. %s\n", i+1, sense)
	}
	sb.WriteString("\n")
}

// headline joins the headword forms in writing system order.
func headline(h searcher.Hit) string {
	if len(h.Headword) == 0 {
		return "(no headword)"
	}
	keys := slices.Sorted(maps.Keys(h.Headword))
	forms := make([]string, len(keys))
	for i, ws := range keys {
		forms[i] = h.Headword[ws]
	}
	return strings.Join(forms, " / ")
}
