package linking

import (
	"sync"
	"time"
)

// Journal is the single-slot undo buffer. Exactly one entry is retained;
// recording a new action discards the previous one, and an entry becomes
// non-reversible once the window elapses. This is deliberately not a
// command stack.
type Journal struct {
	mu     sync.Mutex
	entry  *HistoryEntry
	window time.Duration
	now    func() time.Time
}

// NewJournal returns a journal with the given expiry window. A zero or
// negative window falls back to 30 seconds.
func NewJournal(window time.Duration) *Journal {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Journal{window: window, now: time.Now}
}

// Record stores the entry as the new last action, last-writer-wins.
func (j *Journal) Record(entry HistoryEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = j.now()
	}
	j.entry = &entry
}

// Take removes and returns the live entry. It fails with ErrExpired when
// the journal is empty or the window has elapsed; an expired entry is
// discarded so it can never be reversed later.
func (j *Journal) Take() (*HistoryEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.entry == nil {
		return nil, ErrExpired
	}
	entry := j.entry
	j.entry = nil
	if j.now().Sub(entry.RecordedAt) > j.window {
		return nil, ErrExpired
	}
	return entry, nil
}

// Peek returns a copy of the live entry without consuming it, or false when
// nothing reversible remains.
func (j *Journal) Peek() (HistoryEntry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.entry == nil || j.now().Sub(j.entry.RecordedAt) > j.window {
		return HistoryEntry{}, false
	}
	return *j.entry, true
}
