package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

// ResultRenderer prints search results as text lines, for pipes and the
// non-interactive search command.
type ResultRenderer struct {
	out    io.Writer
	styles Styles
}

// NewResultRenderer creates a result renderer.
func NewResultRenderer(cfg Config) *ResultRenderer {
	return &ResultRenderer{
		out:    cfg.Output,
		styles: cfg.Styles(),
	}
}

// Render prints one line per hit followed by a summary line.
func (r *ResultRenderer) Render(res *searcher.Result) error {
	for _, h := range res.Hits {
		if _, err := fmt.Fprintln(r.out, FormatHit(r.styles, h)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(r.out, r.styles.Dim.Render(Summary(res)))
	return err
}

// RenderJSON prints the result as indented JSON.
func (r *ResultRenderer) RenderJSON(res *searcher.Result) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Summary describes how many entries matched and how long it took.
func Summary(res *searcher.Result) string {
	noun := "entries"
	if res.Total == 1 {
		noun = "entry"
	}
	s := fmt.Sprintf("%d %s", res.Total, noun)
	if res.Truncated() {
		s += fmt.Sprintf(" (showing %d)", len(res.Hits))
	}
	return s + fmt.Sprintf(" in %s", res.Elapsed.Round(microsecond))
}

// FormatHit renders one entry on a single line:
//
//	#12 house / maison (noun) en: dwelling; fr: demeure
func FormatHit(st Styles, h searcher.Hit) string {
	var sb strings.Builder
	sb.WriteString(st.Dim.Render(fmt.Sprintf("#%d", h.ID)))
	sb.WriteString(" ")
	sb.WriteString(st.Headword.Render(Headline(h)))
	if h.Category != "" {
		sb.WriteString(" ")
		sb.WriteString(st.Category.Render("(" + h.Category + ")"))
	}
	if len(h.Gloss) > 0 {
		glosses := make([]string, 0, len(h.Gloss))
		for _, ws := range slices.Sorted(maps.Keys(h.Gloss)) {
			glosses = append(glosses, ws+": "+h.Gloss[ws])
		}
		sb.WriteString(" ")
		sb.WriteString(st.Gloss.Render(strings.Join(glosses, "; ")))
	}
	return sb.String()
}

// Headline joins the headword forms in writing system order, falling back
// to the citation form.
func Headline(h searcher.Hit) string {
	if len(h.Headword) == 0 {
		if h.Citation != "" {
			return h.Citation
		}
		return "(no headword)"
	}
	keys := slices.Sorted(maps.Keys(h.Headword))
	forms := make([]string, len(keys))
	for i, ws := range keys {
		forms[i] = h.Headword[ws]
	}
	return strings.Join(forms, " / ")
}

const microsecond = 1000 // nanoseconds
