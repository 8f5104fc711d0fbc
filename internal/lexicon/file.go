package lexicon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/store"
)

// fileFormat is the on-disk YAML layout of a lexicon.
type fileFormat struct {
	WritingSystems []string    `yaml:"writing_systems,omitempty"`
	Entries        []fileEntry `yaml:"entries"`
}

type fileEntry struct {
	ID       int64             `yaml:"id,omitempty"`
	Headword map[string]string `yaml:"headword,omitempty"`
	Gloss    map[string]string `yaml:"gloss,omitempty"`
	Citation string            `yaml:"citation,omitempty"`
	Category string            `yaml:"category,omitempty"`
	Senses   []string          `yaml:"senses,omitempty"`
}

// Lexicon is a loaded lexicon file.
type Lexicon struct {
	Entries        []Entry
	WritingSystems *WritingSystems
}

// Load reads the lexicon at path under a shared file lock. Writing systems
// named in the file are registered in ws, which may be nil to start a new
// table. Entries without an id get the next free one.
func Load(ctx context.Context, path string, ws *WritingSystems) (*Lexicon, error) {
	if ws == nil {
		ws = NewWritingSystems()
	}

	lock := NewFileLock(path)
	if err := lock.RLock(ctx); err != nil {
		return nil, lexerrors.New(lexerrors.ErrCodeLockFailed, "failed to lock lexicon", err).
			WithDetail("path", path)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, lexerrors.IOError("lexicon file not found", err).
				WithDetail("path", path).
				WithSuggestion("Create one with 'lexsearch config init' or set lexicon.path")
		}
		return nil, lexerrors.New(lexerrors.ErrCodeFilePermission, "failed to read lexicon", err).
			WithDetail("path", path)
	}

	return Parse(data, ws)
}

// Parse decodes lexicon YAML.
func Parse(data []byte, ws *WritingSystems) (*Lexicon, error) {
	if ws == nil {
		ws = NewWritingSystems()
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, lexerrors.New(lexerrors.ErrCodeLexiconCorrupt, "failed to parse lexicon", err)
	}
	for _, code := range f.WritingSystems {
		ws.Register(code)
	}

	seen := make(map[store.ObjectID]bool, len(f.Entries))
	var maxID store.ObjectID
	for _, fe := range f.Entries {
		id := store.ObjectID(fe.ID)
		if id < 0 {
			return nil, lexerrors.New(lexerrors.ErrCodeLexiconCorrupt, "negative entry id", nil).
				WithDetail("id", fmt.Sprint(fe.ID))
		}
		if id != 0 && seen[id] {
			return nil, lexerrors.New(lexerrors.ErrCodeLexiconCorrupt, "duplicate entry id", nil).
				WithDetail("id", fmt.Sprint(fe.ID))
		}
		seen[id] = true
		maxID = max(maxID, id)
	}

	lex := &Lexicon{
		Entries:        make([]Entry, 0, len(f.Entries)),
		WritingSystems: ws,
	}
	for _, fe := range f.Entries {
		id := store.ObjectID(fe.ID)
		if id == 0 {
			maxID++
			id = maxID
		}
		lex.Entries = append(lex.Entries, Entry{
			ID:       id,
			Headword: ws.fromNamed(fe.Headword),
			Gloss:    ws.fromNamed(fe.Gloss),
			Citation: fe.Citation,
			Category: fe.Category,
			Senses:   fe.Senses,
		})
	}
	return lex, nil
}

// Marshal encodes entries as lexicon YAML.
func Marshal(entries []Entry, ws *WritingSystems) ([]byte, error) {
	f := fileFormat{
		WritingSystems: ws.Codes(),
		Entries:        make([]fileEntry, len(entries)),
	}
	for i, e := range entries {
		f.Entries[i] = fileEntry{
			ID:       int64(e.ID),
			Headword: ws.toNamed(e.Headword),
			Gloss:    ws.toNamed(e.Gloss),
			Citation: e.Citation,
			Category: e.Category,
			Senses:   e.Senses,
		}
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lexicon: %w", err)
	}
	return data, nil
}

// Save writes entries to path under an exclusive file lock. An existing
// file is backed up first. The file is replaced atomically.
func Save(ctx context.Context, path string, entries []Entry, ws *WritingSystems) error {
	data, err := Marshal(entries, ws)
	if err != nil {
		return lexerrors.InternalError("failed to encode lexicon", err)
	}

	lock := NewFileLock(path)
	if err := lock.Lock(ctx); err != nil {
		return lexerrors.New(lexerrors.ErrCodeLockFailed, "failed to lock lexicon", err).
			WithDetail("path", path)
	}
	defer lock.Unlock()

	if _, err := BackupFile(path); err != nil {
		return lexerrors.New(lexerrors.ErrCodeFilePermission, "failed to back up lexicon", err).
			WithDetail("path", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return lexerrors.New(lexerrors.ErrCodeFilePermission, "failed to write lexicon", err).
			WithDetail("path", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return lexerrors.New(lexerrors.ErrCodeFilePermission, "failed to write lexicon", err).
			WithDetail("path", path)
	}
	if err := tmp.Close(); err != nil {
		return lexerrors.New(lexerrors.ErrCodeFilePermission, "failed to write lexicon", err).
			WithDetail("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return lexerrors.New(lexerrors.ErrCodeFilePermission, "failed to replace lexicon", err).
			WithDetail("path", path)
	}
	return nil
}

// Reload reads path and brings s in line with it. Only entries and fields
// that actually changed raise notifications. It returns the number of
// notifications raised.
func Reload(ctx context.Context, s *Store, path string, ws *WritingSystems) (int, error) {
	lex, err := Load(ctx, path, ws)
	if err != nil {
		return 0, err
	}
	return s.Replace(lex.Entries), nil
}

// Open loads path into a new Store.
func Open(ctx context.Context, path string, ws *WritingSystems) (*Store, *WritingSystems, error) {
	lex, err := Load(ctx, path, ws)
	if err != nil {
		return nil, nil, err
	}
	s := NewStore()
	s.Replace(lex.Entries)
	return s, lex.WritingSystems, nil
}
