package testutil

import (
	"sync"
	"time"

	"peakmeter/pkg/meter"
)

// RecordingHandler records data source callbacks for assertions in tests.
type RecordingHandler struct {
	mu        sync.Mutex
	Snapshots []meter.Snapshot
	Cleared   []meter.Snapshot
	Closed    []error
}

func NewRecordingHandler() *RecordingHandler { return &RecordingHandler{} }

func (h *RecordingHandler) OnSnapshot(s meter.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Snapshots = append(h.Snapshots, s.Clone())
}

func (h *RecordingHandler) OnCleared(s meter.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Cleared = append(h.Cleared, s.Clone())
}

func (h *RecordingHandler) OnClosed(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Closed = append(h.Closed, err)
}

// Counts returns the number of snapshot, cleared and closed callbacks so far.
func (h *RecordingHandler) Counts() (snapshots, cleared, closed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Snapshots), len(h.Cleared), len(h.Closed)
}

// LastSnapshot returns the most recent snapshot, if any.
func (h *RecordingHandler) LastSnapshot() (meter.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Snapshots) == 0 {
		return meter.Snapshot{}, false
	}
	return h.Snapshots[len(h.Snapshots)-1], true
}

// WaitFor polls cond until it holds or timeout elapses.
func WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// LastCleared returns the most recent cleared snapshot, if any.
func (h *RecordingHandler) LastCleared() (meter.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Cleared) == 0 {
		return meter.Snapshot{}, false
	}
	return h.Cleared[len(h.Cleared)-1], true
}

// ClosedErrors returns a copy of the errors passed to OnClosed.
func (h *RecordingHandler) ClosedErrors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]error, len(h.Closed))
	copy(out, h.Closed)
	return out
}
