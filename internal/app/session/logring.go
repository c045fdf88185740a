package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/core"
)

// DefaultLogCapacity is how many call log entries are kept.
const DefaultLogCapacity = 50

// LogRing keeps the most recent call log entries, evicting the oldest first.
type LogRing struct {
	mu      sync.Mutex
	entries []core.LogEntry
	head    int // index of the oldest entry once the ring is full
	now     func() time.Time
}

func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogRing{
		entries: make([]core.LogEntry, 0, capacity),
		now:     time.Now,
	}
}

// Add appends a timestamped entry and returns it.
func (r *LogRing) Add(level core.LogLevel, msg string) core.LogEntry {
	e := core.LogEntry{Time: r.now(), Level: level, Message: msg}

	r.mu.Lock()
	if len(r.entries) < cap(r.entries) {
		r.entries = append(r.entries, e)
	} else {
		r.entries[r.head] = e
		r.head = (r.head + 1) % len(r.entries)
	}
	r.mu.Unlock()

	ev := log.Info()
	if level == core.LogError {
		ev = log.Warn()
	}
	ev.Str("module", "app.session").Str("level_tag", string(level)).Msg(msg)
	return e
}

func (r *LogRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns the entries oldest first.
func (r *LogRing) Snapshot() []core.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.LogEntry, 0, len(r.entries))
	out = append(out, r.entries[r.head:]...)
	out = append(out, r.entries[:r.head]...)
	return out
}
