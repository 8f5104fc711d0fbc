package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tagForm  Tag = 1
	tagGloss Tag = 2
	wsEn     WS  = 1
	wsFr     WS  = 2
)

// forEachBackend runs fn against a fresh index of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, idx StringIndex)) {
	t.Helper()
	for _, backend := range Backends {
		t.Run(backend, func(t *testing.T) {
			idx, err := NewStringIndex(backend)
			require.NoError(t, err)
			defer func() { _ = idx.Close() }()
			fn(t, idx)
		})
	}
}

func add(t *testing.T, idx StringIndex, id ObjectID, tag Tag, value string, ws WS) {
	t.Helper()
	require.NoError(t, idx.Add(context.Background(), id, tag, NewText(value, ws)))
}

func search(t *testing.T, idx StringIndex, tag Tag, value string, ws WS) []ObjectID {
	t.Helper()
	ids, err := idx.Search(context.Background(), tag, NewText(value, ws))
	require.NoError(t, err)
	return ids
}

func TestStringIndex_PrefixMatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		// Given: three objects with one string each
		add(t, idx, 1, tagForm, "apple", wsEn)
		add(t, idx, 2, tagForm, "banana", wsEn)
		add(t, idx, 3, tagForm, "apple pie", wsEn)

		// When/Then: a word prefix finds the whole words it starts
		assert.Equal(t, []ObjectID{1, 3}, search(t, idx, tagForm, "apple", wsEn))
		assert.Equal(t, []ObjectID{1, 3}, search(t, idx, tagForm, "app", wsEn))
		assert.Equal(t, []ObjectID{3}, search(t, idx, tagForm, "pi", wsEn))
		assert.Equal(t, []ObjectID{2}, search(t, idx, tagForm, "BAN", wsEn))

		// And: an infix is not a match
		assert.Empty(t, search(t, idx, tagForm, "nana", wsEn))
	})
}

func TestStringIndex_CaseFoldingAgrees(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		// Given: upper-case entries whose lower-case forms differ from
		// their simple lowering
		add(t, idx, 1, tagForm, "ΣΟΦΟΣ", wsEn)
		add(t, idx, 2, tagForm, "Straße", wsEn)

		// When/Then: lower-case queries find them on every backend
		assert.Equal(t, []ObjectID{1}, search(t, idx, tagForm, "σοφος", wsEn))
		assert.Equal(t, []ObjectID{1}, search(t, idx, tagForm, "σοφ", wsEn))
		assert.Equal(t, []ObjectID{2}, search(t, idx, tagForm, "strasse", wsEn))
		assert.Equal(t, []ObjectID{2}, search(t, idx, tagForm, "STRASS", wsEn))
	})
}

func TestStringIndex_AllTokensMustMatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		add(t, idx, 1, tagForm, "apple pie", wsEn)
		add(t, idx, 2, tagForm, "apple tart", wsEn)

		assert.Equal(t, []ObjectID{1}, search(t, idx, tagForm, "app pie", wsEn))
		assert.Empty(t, search(t, idx, tagForm, "apple cake", wsEn))
	})
}

func TestStringIndex_TokensMayComeFromDifferentStrings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		// Given: one object with two separate strings in the same field
		add(t, idx, 7, tagGloss, "house", wsEn)
		add(t, idx, 7, tagGloss, "dwelling", wsEn)

		// Then: a query spanning both still matches the object
		assert.Equal(t, []ObjectID{7}, search(t, idx, tagGloss, "hou dwell", wsEn))
	})
}

func TestStringIndex_ScopedByTagAndWritingSystem(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		add(t, idx, 1, tagForm, "maison", wsFr)
		add(t, idx, 2, tagGloss, "maison", wsFr)
		add(t, idx, 3, tagForm, "maison", wsEn)

		assert.Equal(t, []ObjectID{1}, search(t, idx, tagForm, "maison", wsFr))
		assert.Equal(t, []ObjectID{2}, search(t, idx, tagGloss, "maison", wsFr))
		assert.Equal(t, []ObjectID{3}, search(t, idx, tagForm, "maison", wsEn))
	})
}

func TestStringIndex_EmptyAndUnknown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		add(t, idx, 1, tagForm, "apple", wsEn)

		assert.Empty(t, search(t, idx, tagForm, "", wsEn))
		assert.Empty(t, search(t, idx, tagForm, "  ...  ", wsEn))
		assert.Empty(t, search(t, idx, Tag(999), "apple", wsEn))
	})
}

func TestStringIndex_NoDuplicates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		// Given: the same object added several times
		for i := 0; i < 3; i++ {
			add(t, idx, 5, tagForm, "apple apricot", wsEn)
		}

		// Then: it is reported once
		assert.Equal(t, []ObjectID{5}, search(t, idx, tagForm, "ap", wsEn))
	})
}

func TestStringIndex_Clear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		add(t, idx, 1, tagForm, "apple", wsEn)
		require.NoError(t, idx.Clear(context.Background()))

		assert.Empty(t, search(t, idx, tagForm, "apple", wsEn))

		// And: the index is usable after clearing
		add(t, idx, 2, tagForm, "apple", wsEn)
		assert.Equal(t, []ObjectID{2}, search(t, idx, tagForm, "apple", wsEn))
	})
}

func TestStringIndex_ClosedIndexRejects(t *testing.T) {
	for _, backend := range Backends {
		t.Run(backend, func(t *testing.T) {
			idx, err := NewStringIndex(backend)
			require.NoError(t, err)
			require.NoError(t, idx.Close())

			assert.Error(t, idx.Add(context.Background(), 1, tagForm, NewText("apple", wsEn)))
			_, err = idx.Search(context.Background(), tagForm, NewText("apple", wsEn))
			assert.Error(t, err)

			// And: closing twice is harmless
			assert.NoError(t, idx.Close())
		})
	}
}

func TestStringIndex_ManyObjects(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx StringIndex) {
		for i := 1; i <= 200; i++ {
			add(t, idx, ObjectID(i), tagForm, fmt.Sprintf("word%d common", i), wsEn)
		}

		assert.Len(t, search(t, idx, tagForm, "common", wsEn), 200)
		// word1, word10..word19, word100..word199
		assert.Len(t, search(t, idx, tagForm, "word1", wsEn), 1+10+100)
	})
}

func TestNewStringIndex_UnknownBackend(t *testing.T) {
	_, err := NewStringIndex("postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown index backend")
	assert.False(t, IsValidBackend("postgres"))
	assert.True(t, IsValidBackend("SQLite"))
}

func TestParseBleveDocID(t *testing.T) {
	id, err := parseBleveDocID(bleveDocID(fieldKey{tag: 3, ws: 4}, 42))
	require.NoError(t, err)
	assert.Equal(t, ObjectID(42), id)

	_, err = parseBleveDocID("nonsense")
	assert.Error(t, err)
}

func TestFTSPrefixQuery_QuotesToken(t *testing.T) {
	assert.Equal(t, `content:"apple"*`, ftsPrefixQuery("apple"))
	assert.Equal(t, `content:"a""b"*`, ftsPrefixQuery(`a"b`))
}
