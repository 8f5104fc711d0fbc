package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("permission denied")

	// When: wrapping with LexError
	lexErr := New(ErrCodeFilePermission, "cannot read lexicon", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, lexErr)
	assert.Equal(t, originalErr, errors.Unwrap(lexErr))
	assert.True(t, errors.Is(lexErr, originalErr))
}

func TestLexError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *LexError
		expected string
	}{
		{
			name:     "no cause",
			err:      New(ErrCodeConfigNotFound, "config file not found", nil),
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "with cause",
			err:      New(ErrCodeIndexFailed, "add failed", errors.New("disk full")),
			expected: "[ERR_504_INDEX_FAILED] add failed: disk full",
		},
		{
			name:     "wrapped message not repeated",
			err:      Wrap(ErrCodeInternal, errors.New("boom")),
			expected: "[ERR_501_INTERNAL] boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestLexError_Is_MatchesByCode(t *testing.T) {
	// Given: a disposed error created elsewhere with a different message
	err := New(ErrCodeEngineDisposed, "engine \"lexicon\" closed", nil)

	// Then: it matches the sentinel, and only that sentinel
	assert.True(t, errors.Is(err, ErrDisposed))
	assert.False(t, errors.Is(err, ErrIndexFailed))

	// And: matching survives fmt wrapping
	wrapped := fmt.Errorf("search: %w", err)
	assert.True(t, errors.Is(wrapped, ErrDisposed))
}

func TestCategoryAndSeverity_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{ErrCodeLexiconCorrupt, CategoryIO, SeverityFatal},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityError},
		{ErrCodeEngineDisposed, CategoryInternal, SeverityWarning},
		{ErrCodeStringExtraction, CategoryInternal, SeverityFatal},
		{"bad", CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestGetCode_FindsCodeInChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrCodeUnknownEntry, "no entry 9", nil))

	assert.Equal(t, ErrCodeUnknownEntry, GetCode(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
	assert.Equal(t, "", GetCode(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeStringExtraction, "x", nil)))
	assert.False(t, IsFatal(New(ErrCodeInvalidInput, "x", nil)))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := ValidationError("unknown field", nil).
		WithDetail("field", "etymology").
		WithSuggestion("use one of: headword, gloss")

	assert.Equal(t, "etymology", err.Details["field"])
	assert.Equal(t, "use one of: headword, gloss", err.Suggestion)
}

func TestFormatForCLI(t *testing.T) {
	// Given: a LexError with hint and cause
	err := ConfigError("invalid backend", errors.New("postgres")).
		WithSuggestion("use memory, bleve or sqlite")

	// When: formatting
	out := FormatForCLI(err)

	// Then: all parts are present
	assert.Contains(t, out, "Error: invalid backend")
	assert.Contains(t, out, "Cause: postgres")
	assert.Contains(t, out, "Hint: use memory, bleve or sqlite")
	assert.Contains(t, out, "Code: ERR_102_CONFIG_INVALID")

	// And: plain errors are wrapped as internal
	assert.Contains(t, FormatForCLI(errors.New("boom")), "Code: ERR_501_INTERNAL")
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestLogAttrs(t *testing.T) {
	err := New(ErrCodeIndexFailed, "add failed", errors.New("io")).
		WithDetail("tag", "101").
		WithDetail("object", "7")

	attrs := LogAttrs(err)

	keys := make([]string, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"error_code", "error", "category", "severity", "cause", "detail_object", "detail_tag"}, keys)

	plain := LogAttrs(errors.New("plain"))
	require.Len(t, plain, 1)
	assert.Equal(t, "plain", plain[0].Value.String())
	assert.Nil(t, LogAttrs(nil))
}
