// Package searcher is the public entry point to lexicon search.
//
// A Searcher owns a lexicon store, an LRU registry of incremental search
// engines over it, and the telemetry they report to. The CLI, the MCP
// server and the terminal browser all go through it.
//
// # Usage
//
//	cfg, _ := config.Load(".")
//	s, err := searcher.Open(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	res, err := s.Search(ctx, searcher.Query{Text: "hou", Fields: []string{"headword"}})
//
// # Fields
//
// A Query names entry fields: headword, gloss, citation, category and
// sense. Gloss is searched per writing system; leave Query.WS empty to
// search every registered one.
//
// # Thread Safety
//
// A Searcher is safe for concurrent use.
package searcher
