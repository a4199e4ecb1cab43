package usage

import "sync"

// Tracker accumulates usage across multiple model calls.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries []Usage
}

// Add records a usage entry.
func (t *Tracker) Add(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, u)
}

// Last returns the most recent usage entry.
// The bool is false when the tracker has no entries.
func (t *Tracker) Last() (Usage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return Usage{}, false
	}

	return t.entries[len(t.entries)-1], true
}

// Total returns the aggregate usage across all entries.
func (t *Tracker) Total() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total Usage
	for _, e := range t.entries {
		total = total.Add(e)
	}

	return total
}

// Count returns the number of recorded entries.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Reset clears all recorded entries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = nil
}
