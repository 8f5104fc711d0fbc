// Package integration runs the lexicon, search engine, string index and
// watcher together against real files.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexsearch/internal/config"
	"github.com/Aman-CERP/lexsearch/internal/logging"
	"github.com/Aman-CERP/lexsearch/internal/store"
	"github.com/Aman-CERP/lexsearch/pkg/searcher"
)

const baseLexicon = `writing_systems: [en, fr]
entries:
  - id: 1
    headword: {en: house}
    gloss: {en: dwelling, fr: maison}
    category: noun
  - id: 2
    headword: {en: household}
    gloss: {en: family, fr: ménage}
    category: noun
    senses: [all the people of a house]
  - id: 3
    headword: {en: hover}
    gloss: {en: float}
    category: verb
`

// writeLexicon writes content to lexicon.yaml in dir.
func writeLexicon(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// openSearcher opens path with the given backend.
func openSearcher(t *testing.T, path, backend string, opts ...searcher.Option) *searcher.Searcher {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Lexicon.Path = path
	cfg.Lexicon.WatchDebounce = "50ms"
	cfg.Search.Backend = backend

	opts = append([]searcher.Option{searcher.WithLogger(logging.Discard())}, opts...)
	s, err := searcher.Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ids searches and returns the matching entry ids.
func ids(t *testing.T, s *searcher.Searcher, q searcher.Query) []int64 {
	t.Helper()
	res, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	var out []int64
	for _, h := range res.Hits {
		out = append(out, h.ID)
	}
	return out
}

// en returns the id of the "en" writing system.
func en(t *testing.T, s *searcher.Searcher) store.WS {
	t.Helper()
	ws, ok := s.WritingSystems().ID("en")
	require.True(t, ok)
	return ws
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
