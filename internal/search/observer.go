package search

import (
	"time"

	"github.com/Aman-CERP/lexsearch/internal/store"
)

// Outcome is how an accepted search request ended.
type Outcome string

const (
	// OutcomeCompleted means results were delivered.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSuperseded means a newer request made this one irrelevant.
	OutcomeSuperseded Outcome = "superseded"
	// OutcomeFailed means building or querying the index failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeCancelled means the engine was closed or the context ended.
	OutcomeCancelled Outcome = "cancelled"
)

// Mode tells synchronous Search calls from SearchAsync requests.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Observer receives engine activity for telemetry. Methods may be called
// from the worker goroutine, the delivery context and callers of
// SearchAsync, so implementations must be safe for concurrent use.
type Observer interface {
	SearchSubmitted(mode Mode)
	SearchFinished(mode Mode, outcome Outcome, elapsed time.Duration)
	ObjectsIndexed(tag store.Tag, count int)
	IndexInvalidated()
}

// NopObserver ignores all activity.
type NopObserver struct{}

func (NopObserver) SearchSubmitted(Mode)                        {}
func (NopObserver) SearchFinished(Mode, Outcome, time.Duration) {}
func (NopObserver) ObjectsIndexed(store.Tag, int)               {}
func (NopObserver) IndexInvalidated()                           {}

var _ Observer = NopObserver{}
