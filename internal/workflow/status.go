package workflow

import (
	"fmt"
	"sync"
	"time"

	"syndic/internal/core"
)

// Status is the per-cell upload state: idle → pending → {success|error},
// returning to idle after the display timeout or on the next attempt.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Key identifies a tracked upload cell: one due cell (unit, month, year) or
// one charge.
type Key string

func DueKey(unitID int64, m core.Month, year int) Key {
	return Key(fmt.Sprintf("due:%d:%d:%d", unitID, int(m), year))
}

func ChargeKey(id int64) Key {
	return Key(fmt.Sprintf("charge:%d", id))
}

// StatusInfo is what dashboards render next to a cell.
type StatusInfo struct {
	Status    Status
	Message   string
	UpdatedAt time.Time
}

type entry struct {
	seq   uint64
	info  StatusInfo
	reset *time.Timer
}

// statusTracker keys upload state by cell so concurrent uploads for different
// cells never interfere. Each key carries a monotonic request sequence; only
// the completion matching the latest issued sequence may update the cell, so
// the newest request wins regardless of network completion order.
type statusTracker struct {
	mu      sync.Mutex
	entries map[Key]*entry
	ttl     time.Duration
	now     func() time.Time
}

func newStatusTracker(ttl time.Duration) *statusTracker {
	return &statusTracker{
		entries: make(map[Key]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// begin moves the key to pending and returns the sequence tag the caller must
// present on completion. A new attempt for the same key supersedes any
// in-flight one immediately.
func (t *statusTracker) begin(key Key, message string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	if e.reset != nil {
		e.reset.Stop()
		e.reset = nil
	}
	e.seq++
	e.info = StatusInfo{Status: StatusPending, Message: message, UpdatedAt: t.now()}
	return e.seq
}

// finish records the terminal state for the attempt identified by seq. Stale
// completions (an older attempt resolving after a newer begin) are dropped.
// Terminal states decay back to idle after the display ttl.
func (t *statusTracker) finish(key Key, seq uint64, status Status, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok || e.seq != seq {
		return
	}
	e.info = StatusInfo{Status: status, Message: message, UpdatedAt: t.now()}
	if e.reset != nil {
		e.reset.Stop()
	}
	e.reset = time.AfterFunc(t.ttl, func() {
		t.expire(key, seq)
	})
}

func (t *statusTracker) expire(key Key, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok || e.seq != seq {
		return
	}
	delete(t.entries, key)
}

// get returns the tracked state for a key; untracked keys are idle.
func (t *statusTracker) get(key Key) (StatusInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e.info, true
	}
	return StatusInfo{Status: StatusIdle}, false
}
