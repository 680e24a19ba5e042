// Package runctx carries the per-run state that every pipeline component
// needs: a correlation id, the run mode and date window, counters, and
// the accumulated error log. It is the Go equivalent of the teacher's
// request-scoped state objects (pkg/queue/pool.go's mutex-guarded
// activeSessions map), generalized to a whole-run scope.
package runctx

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mode is the run mode selected on the CLI.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeBackfill    Mode = "backfill"
	ModeDryRun      Mode = "dry-run"
)

// ErrorEntry is one logged error, attributed to the node and optionally
// the item that produced it.
type ErrorEntry struct {
	Node      string
	Message   string
	ItemID    string
	Timestamp time.Time
}

// Context is the run-scoped state shared by every component. All mutable
// fields are protected by mu; it must be created with New and passed by
// pointer.
type Context struct {
	CorrelationID string
	Mode          Mode
	StartDate     string
	EndDate       string
	StartedAt     time.Time
	DryRun        bool

	mu     sync.Mutex
	stats  map[string]int64
	errors []ErrorEntry
}

// New builds a fresh run Context with a random correlation id.
func New(mode Mode, startDate, endDate string, dryRun bool) *Context {
	return &Context{
		CorrelationID: uuid.NewString(),
		Mode:          mode,
		StartDate:     startDate,
		EndDate:       endDate,
		StartedAt:     time.Now().UTC(),
		DryRun:        dryRun,
		stats:         make(map[string]int64),
	}
}

// Increment adds count (default 1 via IncrementBy(key, 1)) to a named
// statistics counter.
func (c *Context) Increment(key string) {
	c.IncrementBy(key, 1)
}

// IncrementBy adds count to a named statistics counter.
func (c *Context) IncrementBy(key string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[key] += count
}

// Stat returns the current value of a named counter.
func (c *Context) Stat(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats[key]
}

// Stats returns a snapshot copy of every counter.
func (c *Context) Stats() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}

// AddError logs a per-node (optionally per-item) error.
func (c *Context) AddError(node, message, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, ErrorEntry{
		Node:      node,
		Message:   message,
		ItemID:    itemID,
		Timestamp: time.Now().UTC(),
	})
}

// Errors returns a snapshot copy of the error log.
func (c *Context) Errors() []ErrorEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ErrorEntry, len(c.errors))
	copy(out, c.errors)
	return out
}

// HasErrors reports whether any error has been logged; the CLI's exit
// code policy is exactly "non-zero iff HasErrors()".
func (c *Context) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// Elapsed returns the run's wall-clock duration so far.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartedAt)
}
