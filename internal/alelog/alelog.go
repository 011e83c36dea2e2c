// Package alelog implements the station's append-only log store: an
// in-memory queue (with no size bound) drained at ≤1 Hz to ~/.ale/log, per
// spec.md §4.5/§6.
// Grounded on original_source ale.py's log()/_process_log_queue() pair and
// the teacher's channel-based event queue (Session.eventChan).
package alelog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// TimeLayout is Go's equivalent of Python's "%x %X" under the C locale.
const TimeLayout = "01/02/06 15:04:05"

// Queue buffers log lines in memory and flushes them to disk on Flush.
// Station.Run calls Flush once per second; the queue itself never blocks
// the scheduler (Log only appends to a slice behind a mutex).
type Queue struct {
	mu    sync.Mutex
	lines []string
	path  string
	now   func() time.Time
}

// New truncates path (per spec.md §6, the log file is cleared on startup)
// and returns a Queue that appends to it.
func New(path string) (*Queue, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("alelog: truncate %s: %w", path, err)
	}
	f.Close()
	return &Queue{path: path, now: time.Now}, nil
}

// Log appends a formatted line to the in-memory queue.
func (q *Queue) Log(message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lines = append(q.lines, fmt.Sprintf("%s  %s\n", q.now().Format(TimeLayout), message))
}

// Flush appends every queued line to disk and clears the queue.
func (q *Queue) Flush() error {
	q.mu.Lock()
	pending := q.lines
	q.lines = nil
	q.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("alelog: open %s: %w", q.path, err)
	}
	defer f.Close()

	for _, line := range pending {
		if _, err := f.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}
