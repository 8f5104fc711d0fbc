package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), ErrCodeTimeout},
		{"tool not found", ErrToolNotFound, ErrCodeMethodNotFound},
		{"resource not found", ErrResourceNotFound, ErrCodeMethodNotFound},
		{"disposed", lexerrors.ErrDisposed, ErrCodeEngineClosed},
		{"validation", lexerrors.ValidationError("bad", nil), ErrCodeInvalidParams},
		{"empty query", lexerrors.New(lexerrors.ErrCodeQueryEmpty, "empty", nil), ErrCodeInvalidParams},
		{"io", lexerrors.IOError("missing", nil), ErrCodeLexiconUnavailable},
		{"lock", lexerrors.New(lexerrors.ErrCodeLockFailed, "locked", nil), ErrCodeLexiconUnavailable},
		{"extraction", lexerrors.New(lexerrors.ErrCodeStringExtraction, "boom", nil), ErrCodeInternalError},
		{"plain", errors.New("boom"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}
}

func TestMapError_PassesMCPErrorThrough(t *testing.T) {
	in := NewInvalidParamsError("query parameter is required")

	out := MapError(fmt.Errorf("wrapped: %w", in))

	assert.Same(t, in, out)
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := lexerrors.ValidationError("unknown writing system", nil).WithSuggestion("Known writing systems: en")

	assert.Equal(t, "unknown writing system. Known writing systems: en", MapError(err).Message)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "bad"}

	assert.Equal(t, "MCP error -32602: bad", err.Error())
}
