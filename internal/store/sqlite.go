package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteIndex implements StringIndex using an SQLite FTS5 table.
// Each added string is one row holding its pre-tokenized content, so the
// FTS5 tokenizer only ever sees tokens produced by Tokenize.
type SQLiteIndex struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewSQLiteIndex opens an FTS5 index. An empty path creates an in-memory
// database, which is the normal mode: the index is never persisted across
// process lifetimes.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return idx, nil
}

// initSchema creates the FTS5 virtual table.
func (s *SQLiteIndex) initSchema() error {
	schema := `
	-- obj and scope are stored but not tokenized.
	-- Diacritics are kept: "cafe" must not match "café".
	CREATE VIRTUAL TABLE IF NOT EXISTS lex_strings USING fts5(
		obj UNINDEXED,
		scope UNINDEXED,
		content,
		tokenize='unicode61 remove_diacritics 0'
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add implements StringIndex.
func (s *SQLiteIndex) Add(ctx context.Context, id ObjectID, tag Tag, text Text) error {
	tokens := Tokenize(text.Value)
	if len(tokens) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lex_strings (obj, scope, content) VALUES (?, ?, ?)`,
		int64(id), fieldKey{tag: tag, ws: text.WS}.String(), strings.Join(tokens, " "))
	if err != nil {
		return fmt.Errorf("failed to insert string for object %d: %w", id, err)
	}
	return nil
}

// Search implements StringIndex. Each query token is matched as an FTS5
// prefix query on its own and the per-token object sets are intersected,
// so tokens may come from different strings of the same object.
func (s *SQLiteIndex) Search(ctx context.Context, tag Tag, q Text) ([]ObjectID, error) {
	tokens := uniqueTokens(q.Value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(tokens) == 0 {
		return []ObjectID{}, nil
	}

	scope := fieldKey{tag: tag, ws: q.WS}.String()
	var acc map[ObjectID]struct{}
	for _, tok := range tokens {
		matches, err := s.matchToken(ctx, scope, tok)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = matches
		} else {
			acc = intersect(acc, matches)
		}
		if len(acc) == 0 {
			break
		}
	}
	return sortedIDs(acc), nil
}

func (s *SQLiteIndex) matchToken(ctx context.Context, scope, token string) (map[ObjectID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT obj FROM lex_strings WHERE lex_strings MATCH ? AND scope = ?`,
		ftsPrefixQuery(token), scope)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	matches := make(map[ObjectID]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		matches[ObjectID(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return matches, nil
}

// ftsPrefixQuery builds a column-scoped FTS5 prefix query for one token.
// The token is quoted as an FTS5 string so it is never parsed as syntax.
func ftsPrefixQuery(token string) string {
	return `content:"` + strings.ReplaceAll(token, `"`, `""`) + `"*`
}

// Clear implements StringIndex.
func (s *SQLiteIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lex_strings`); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// Close implements StringIndex.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Verify interface implementation at compile time
var _ StringIndex = (*SQLiteIndex)(nil)
