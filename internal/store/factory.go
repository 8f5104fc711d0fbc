package store

import (
	"fmt"
	"strings"
)

// Backends lists the accepted backend names in display order.
var Backends = []string{BackendMemory, BackendBleve, BackendSQLite}

// NewStringIndex creates a StringIndex for the named backend.
//
// backend options:
//   - "memory" (default): map-backed, fastest for in-process use
//   - "bleve": Bleve v2 in-memory index
//   - "sqlite": SQLite FTS5 on an in-memory database
func NewStringIndex(backend string) (StringIndex, error) {
	switch strings.ToLower(backend) {
	case BackendMemory, "":
		return NewMemoryIndex(), nil
	case BackendBleve:
		return NewBleveIndex()
	case BackendSQLite:
		return NewSQLiteIndex("")
	default:
		return nil, fmt.Errorf("unknown index backend: %s (valid options: %s)", backend, strings.Join(Backends, ", "))
	}
}

// IsValidBackend reports whether NewStringIndex accepts backend.
func IsValidBackend(backend string) bool {
	switch strings.ToLower(backend) {
	case BackendMemory, BackendBleve, BackendSQLite, "":
		return true
	default:
		return false
	}
}
