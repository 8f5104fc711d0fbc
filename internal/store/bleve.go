package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/text/cases"
)

const (
	// LexTokenizerName is the registered name of the word tokenizer.
	LexTokenizerName = "lex_tokenizer"

	// LexAnalyzerName is the name of the analyzer used for text fields.
	LexAnalyzerName = "lex_analyzer"

	bleveKeyField  = "key"
	bleveTextField = "text"
)

func init() {
	_ = registry.RegisterTokenizer(LexTokenizerName, lexTokenizerConstructor)
}

// bleveDocument is the document shape stored per (tag, ws, object).
type bleveDocument struct {
	Key  string   `json:"key"`
	Text []string `json:"text"`
}

// BleveIndex is a StringIndex on top of an in-memory Bleve index.
// Each (tag, ws, object) triple is one document whose text field holds
// every string added for it, so prefix conjunctions match per object.
type BleveIndex struct {
	mu      sync.Mutex
	index   bleve.Index
	mapping mapping.IndexMapping
	docs    map[string]*bleveDocument
	closed  bool
}

// NewBleveIndex creates an empty in-memory Bleve index.
func NewBleveIndex() (*BleveIndex, error) {
	im, err := createLexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BleveIndex{
		index:   idx,
		mapping: im,
		docs:    make(map[string]*bleveDocument),
	}, nil
}

// createLexMapping builds a static mapping: a keyword scope field and a
// text field analyzed with the shared tokenizer.
func createLexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomAnalyzer(LexAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": LexTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	keyField := bleve.NewKeywordFieldMapping()
	keyField.Analyzer = keyword.Name

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = LexAnalyzerName
	textField.IncludeTermVectors = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(bleveKeyField, keyField)
	doc.AddFieldMappingsAt(bleveTextField, textField)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = LexAnalyzerName
	return im, nil
}

func bleveDocID(key fieldKey, id ObjectID) string {
	return key.String() + "/" + strconv.FormatInt(int64(id), 10)
}

func parseBleveDocID(docID string) (ObjectID, error) {
	i := strings.LastIndexByte(docID, '/')
	if i < 0 {
		return 0, fmt.Errorf("malformed document id %q", docID)
	}
	n, err := strconv.ParseInt(docID[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed document id %q: %w", docID, err)
	}
	return ObjectID(n), nil
}

// Add implements StringIndex.
func (b *BleveIndex) Add(_ context.Context, id ObjectID, tag Tag, text Text) error {
	if len(Tokenize(text.Value)) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	key := fieldKey{tag: tag, ws: text.WS}
	docID := bleveDocID(key, id)
	doc, ok := b.docs[docID]
	if !ok {
		doc = &bleveDocument{Key: key.String()}
		b.docs[docID] = doc
	}
	doc.Text = append(doc.Text, text.Value)

	if err := b.index.Index(docID, doc); err != nil {
		return fmt.Errorf("failed to index document %s: %w", docID, err)
	}
	return nil
}

// Search implements StringIndex.
func (b *BleveIndex) Search(ctx context.Context, tag Tag, q Text) ([]ObjectID, error) {
	tokens := uniqueTokens(q.Value)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(tokens) == 0 || len(b.docs) == 0 {
		return []ObjectID{}, nil
	}

	scope := bleve.NewTermQuery(fieldKey{tag: tag, ws: q.WS}.String())
	scope.SetField(bleveKeyField)

	conjuncts := []query.Query{scope}
	for _, tok := range tokens {
		pq := bleve.NewPrefixQuery(tok)
		pq.SetField(bleveTextField)
		conjuncts = append(conjuncts, pq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(conjuncts...), len(b.docs), 0, false)
	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	set := make(map[ObjectID]struct{}, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := parseBleveDocID(hit.ID)
		if err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return sortedIDs(set), nil
}

// Clear implements StringIndex. Bleve has no truncate, so the in-memory
// index is replaced with a fresh one.
func (b *BleveIndex) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	fresh, err := bleve.NewMemOnly(b.mapping)
	if err != nil {
		return fmt.Errorf("failed to recreate index: %w", err)
	}
	_ = b.index.Close()
	b.index = fresh
	b.docs = make(map[string]*bleveDocument)
	return nil
}

// Close implements StringIndex.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.docs = nil
	return b.index.Close()
}

// Verify interface implementation
var _ StringIndex = (*BleveIndex)(nil)

// lexTokenizerConstructor creates the shared word tokenizer for Bleve.
func lexTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveLexTokenizer{}, nil
}

// bleveLexTokenizer adapts Tokenize to analysis.Tokenizer so Bleve and the
// other backends split and fold words identically. Terms are already
// folded, so the analyzer carries no lowercase filter.
type bleveLexTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *bleveLexTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	spans := tokenSpans(text)
	stream := make(analysis.TokenStream, 0, len(spans))
	folder := cases.Fold()
	for i, s := range spans {
		stream = append(stream, &analysis.Token{
			Term:     []byte(foldToken(folder, text[s.start:s.end])),
			Start:    s.start,
			End:      s.end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}
