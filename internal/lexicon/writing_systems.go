package lexicon

import (
	"sort"
	"strings"
	"sync"

	"github.com/Aman-CERP/lexsearch/internal/store"
)

// WritingSystems maps writing system codes ("en", "fr", ...) to the integer
// ids used by the index. Ids start at 1 and are assigned in registration
// order; zero stays "unspecified".
type WritingSystems struct {
	mu    sync.RWMutex
	ids   map[string]store.WS
	names []string
}

// NewWritingSystems creates a table with codes registered in order.
func NewWritingSystems(codes ...string) *WritingSystems {
	w := &WritingSystems{ids: make(map[string]store.WS)}
	for _, c := range codes {
		w.Register(c)
	}
	return w
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Register returns the id of code, assigning a new one if needed.
func (w *WritingSystems) Register(code string) store.WS {
	code = normalizeCode(code)
	if code == "" {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.ids[code]; ok {
		return id
	}
	w.names = append(w.names, code)
	id := store.WS(len(w.names))
	w.ids[code] = id
	return id
}

// ID returns the id of code.
func (w *WritingSystems) ID(code string) (store.WS, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.ids[normalizeCode(code)]
	return id, ok
}

// Code returns the code registered for id.
func (w *WritingSystems) Code(id store.WS) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if id <= 0 || int(id) > len(w.names) {
		return "", false
	}
	return w.names[id-1], true
}

// Codes returns every registered code in id order.
func (w *WritingSystems) Codes() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.names...)
}

// toNamed converts a per-writing-system map to code keys. Values in
// unregistered writing systems are dropped.
func (w *WritingSystems) toNamed(m map[store.WS]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for id, v := range m {
		if code, ok := w.Code(id); ok {
			out[code] = v
		}
	}
	return out
}

// fromNamed converts code keys to ids, registering unknown codes.
func (w *WritingSystems) fromNamed(m map[string]string) map[store.WS]string {
	if len(m) == 0 {
		return nil
	}
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make(map[store.WS]string, len(m))
	for _, code := range codes {
		if id := w.Register(code); id != 0 {
			out[id] = m[code]
		}
	}
	return out
}
