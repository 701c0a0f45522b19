// Package state implements the global state store shared by the swarm: a
// monotonically increasing version counter plus an open key/value map. The
// planner is the store's only writer; workers read the version to stamp new
// tasks and the judge reads it to detect stale results.
package state

import (
	"sync"
	"time"
)

// Store holds the versioned global state for one agent instance. All methods
// are safe for concurrent use; the increment-and-update primitive is atomic,
// so concurrent writers cannot lose updates even though a single logical
// writer is expected.
type Store struct {
	mu      sync.Mutex
	version int64
	fields  map[string]string
}

// NewStore creates an empty Store at version 0.
func NewStore() *Store {
	return &Store{
		fields: make(map[string]string),
	}
}

// Version returns the current state version. The version strictly increases
// over the process lifetime; it never decreases or wraps.
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// IncrementAndUpdate atomically increments the version counter and merges
// updates into the state map, returning the new version. This is the only
// mutation the store supports.
func (s *Store) IncrementAndUpdate(updates map[string]string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	for k, v := range updates {
		s.fields[k] = v
	}
	return s.version
}

// Get returns the value stored under key, and whether it exists.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.fields[key]
	return v, ok
}

// Snapshot returns a copy of the state map alongside the version it was
// taken at.
func (s *Store) Snapshot() (int64, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		cp[k] = v
	}
	return s.version, cp
}

// KeyLastScheduledPost is the state key recording when the planner last
// enqueued scheduled daily content, stored in RFC 3339 format.
const KeyLastScheduledPost = "last_scheduled_post"

// LastScheduledPost returns the recorded timestamp of the last scheduled
// post, or the zero time if none has been recorded or the value is
// unparseable.
func (s *Store) LastScheduledPost() time.Time {
	raw, ok := s.Get(KeyLastScheduledPost)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
