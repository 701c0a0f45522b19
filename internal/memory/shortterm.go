// Package memory provides the short-term episodic memory consulted during
// context assembly: a bounded ring of recent interaction summaries. Durable
// long-term and semantic memory are external collaborators and out of scope
// here.
package memory

import (
	"fmt"
	"sync"
	"time"
)

// defaultCapacity bounds the ring when no capacity is given.
const defaultCapacity = 50

// Entry is one remembered interaction.
type Entry struct {
	// Kind tags the interaction, e.g. "post", "reply", "trend".
	Kind string
	// Summary is the one-line description added to generation context.
	Summary string
	// At is when the interaction was recorded.
	At time.Time
}

// ShortTerm is a fixed-capacity ring of recent interactions. When full, the
// oldest entry is evicted. Safe for concurrent use.
type ShortTerm struct {
	mu      sync.Mutex
	entries []Entry
	cap     int
}

// NewShortTerm creates a ring holding at most capacity entries. A
// non-positive capacity falls back to the default.
func NewShortTerm(capacity int) *ShortTerm {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &ShortTerm{cap: capacity}
}

// Record appends an interaction summary, evicting the oldest entry when the
// ring is full.
func (s *ShortTerm) Record(kind, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		Kind:    kind,
		Summary: summary,
		At:      time.Now().UTC(),
	})
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
}

// Recent returns up to n summaries, oldest first, formatted with their kind
// tag. Implements persona.MemorySource.
func (s *ShortTerm) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.entries) == 0 {
		return nil
	}
	start := 0
	if len(s.entries) > n {
		start = len(s.entries) - n
	}

	out := make([]string, 0, len(s.entries)-start)
	for _, e := range s.entries[start:] {
		out = append(out, fmt.Sprintf("[%s] %s", e.Kind, e.Summary))
	}
	return out
}

// Len returns the number of entries currently held.
func (s *ShortTerm) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops all entries.
func (s *ShortTerm) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
