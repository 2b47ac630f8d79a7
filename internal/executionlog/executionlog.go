// Package executionlog records the state transitions and outcome of every
// deletion run in append-only sinks.
package executionlog

import (
	"context"
	"sync"

	"github.com/Lllllllleong/documentdeletion/internal/models"
	"go.uber.org/multierr"
)

// Log appends execution entries. Implementations never rewrite earlier entries.
type Log interface {
	Record(ctx context.Context, entry models.ExecutionEntry) error
}

type multiLog []Log

// Multi fans every entry out to all logs and combines their errors.
func Multi(logs ...Log) Log {
	return multiLog(logs)
}

func (m multiLog) Record(ctx context.Context, entry models.ExecutionEntry) error {
	var err error
	for _, l := range m {
		err = multierr.Append(err, l.Record(ctx, entry))
	}
	return err
}

// MemoryLog keeps entries in process.
type MemoryLog struct {
	mu      sync.Mutex
	entries []models.ExecutionEntry
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Record(_ context.Context, entry models.ExecutionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns the entries recorded for one execution, in order.
func (m *MemoryLog) Entries(executionID string) []models.ExecutionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExecutionEntry
	for _, e := range m.entries {
		if e.ExecutionID == executionID {
			out = append(out, e)
		}
	}
	return out
}
