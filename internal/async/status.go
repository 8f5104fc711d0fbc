// Package async provides the background execution primitives used by the
// search engine: a single-goroutine worker with a latest-wins mailbox, and
// a dispatcher that runs callbacks on the goroutine that owns it.
package async

// WorkerState is the coarse state of a Worker.
type WorkerState string

const (
	// StateIdle indicates no work is pending or running.
	StateIdle WorkerState = "idle"
	// StatePending indicates an item is waiting to be picked up.
	StatePending WorkerState = "pending"
	// StateRunning indicates the handler is executing.
	StateRunning WorkerState = "running"
	// StateStopped indicates Stop has been called.
	StateStopped WorkerState = "stopped"
)

// WorkerStatus is an immutable snapshot of worker activity.
type WorkerStatus struct {
	State      WorkerState `json:"state"`
	Submitted  int         `json:"submitted"`
	Processed  int         `json:"processed"`
	Superseded int         `json:"superseded"`
}

// Busy reports whether the snapshot shows pending or running work.
func (s WorkerStatus) Busy() bool {
	return s.State == StatePending || s.State == StateRunning
}
