package searcher

import (
	"fmt"
	"strings"
	"time"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/store"
)

// DefaultFields are searched when a Query names none.
var DefaultFields = []string{"headword"}

// AllFields lists every searchable entry field.
var AllFields = []string{"headword", "gloss", "citation", "category", "sense"}

// Query is a lexicon search request.
type Query struct {
	// Text is matched as a prefix against every word of the field values.
	Text string `json:"text"`

	// Fields are entry field names. Empty means DefaultFields.
	Fields []string `json:"fields,omitempty"`

	// WS restricts gloss matching to one writing system code.
	WS string `json:"ws,omitempty"`

	// Exclude drops one entry id from the results.
	Exclude int64 `json:"exclude,omitempty"`
}

// Hit is one matching entry, with writing systems named by code.
type Hit struct {
	ID       int64             `json:"id"`
	Headword map[string]string `json:"headword,omitempty"`
	Gloss    map[string]string `json:"gloss,omitempty"`
	Citation string            `json:"citation,omitempty"`
	Category string            `json:"category,omitempty"`
	Senses   []string          `json:"senses,omitempty"`
}

// Result is the outcome of a search.
type Result struct {
	Query   Query         `json:"query"`
	Hits    []Hit         `json:"hits"`
	Total   int           `json:"total"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Truncated reports whether Hits was capped below Total.
func (r *Result) Truncated() bool {
	return len(r.Hits) < r.Total
}

// FieldLabel names the fields of q for logs and telemetry.
func (q Query) FieldLabel() string {
	if len(q.Fields) == 0 {
		return strings.Join(DefaultFields, ",")
	}
	return strings.ToLower(strings.Join(q.Fields, ","))
}

// Fields turns q into the engine's search fields. Gloss expands to one
// field per writing system unless q.WS picks one.
func (s *Searcher) Fields(q Query) ([]search.SearchField, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, lexerrors.New(lexerrors.ErrCodeQueryEmpty, "search text is empty", nil).
			WithSuggestion("Type at least one character to search")
	}

	names := q.Fields
	if len(names) == 0 {
		names = DefaultFields
	}

	var fields []search.SearchField
	for _, name := range names {
		tag, ok := lexicon.ParseTag(name)
		if !ok {
			return nil, lexerrors.New(lexerrors.ErrCodeInvalidField, "unknown field", nil).
				WithDetail("field", name).
				WithSuggestion("Use one of: headword, gloss, citation, category, sense")
		}
		if tag != lexicon.TagGloss {
			fields = append(fields, search.NewSearchField(tag, text, 0))
			continue
		}
		wss, err := s.glossWritingSystems(q.WS)
		if err != nil {
			return nil, err
		}
		for _, ws := range wss {
			fields = append(fields, search.NewSearchField(tag, text, ws))
		}
	}
	return fields, nil
}

func (s *Searcher) glossWritingSystems(code string) ([]store.WS, error) {
	if code != "" {
		ws, ok := s.ws.ID(code)
		if !ok {
			return nil, lexerrors.ValidationError("unknown writing system", nil).
				WithDetail("ws", code).
				WithSuggestion(fmt.Sprintf("Known writing systems: %s", strings.Join(s.ws.Codes(), ", ")))
		}
		return []store.WS{ws}, nil
	}
	codes := s.ws.Codes()
	out := make([]store.WS, 0, len(codes))
	for _, c := range codes {
		if ws, ok := s.ws.ID(c); ok {
			out = append(out, ws)
		}
	}
	return out, nil
}

// Hits resolves results to entries in id order, capped at the configured
// maximum. Entries deleted since the search ran are skipped.
func (s *Searcher) Hits(results search.ResultSet) []Hit {
	ids := results.Sorted()
	hits := make([]Hit, 0, min(len(ids), s.capFor(len(ids))))
	for _, id := range ids {
		if len(hits) == s.capFor(len(ids)) {
			break
		}
		e, ok := s.store.Entry(id)
		if !ok {
			continue
		}
		hits = append(hits, s.hit(e))
	}
	return hits
}

func (s *Searcher) capFor(n int) int {
	if s.maxResults > 0 && s.maxResults < n {
		return s.maxResults
	}
	return n
}

func (s *Searcher) hit(e lexicon.Entry) Hit {
	return Hit{
		ID:       int64(e.ID),
		Headword: s.named(e.Headword),
		Gloss:    s.named(e.Gloss),
		Citation: e.Citation,
		Category: e.Category,
		Senses:   e.Senses,
	}
}

func (s *Searcher) named(m map[store.WS]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for ws, v := range m {
		code, ok := s.ws.Code(ws)
		if !ok {
			code = fmt.Sprintf("ws%d", ws)
		}
		out[code] = v
	}
	return out
}
