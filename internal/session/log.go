package session

import (
	"sync"

	"github.com/anishjha12309/itero/internal/models"
)

// Log is the append-only, insertion-ordered transcript of one session.
// Append order is arrival order; entry timestamps come from client
// clocks and may not be monotonic across sources, so they are never
// used for ordering. Entries are immutable once appended. Append is
// only called from the session dispatch path; Snapshot may be read
// concurrently by the API layer.
type Log struct {
	mu      sync.RWMutex
	entries []models.TranscriptEntry
}

// Append adds an accepted entry at the end of the log.
func (l *Log) Append(entry models.TranscriptEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Snapshot returns a copy of the full ordered sequence.
func (l *Log) Snapshot() []models.TranscriptEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.TranscriptEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of appended entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
