package state

import (
	"sync"
	"testing"
	"time"
)

func TestIncrementAndUpdate(t *testing.T) {
	s := NewStore()

	if s.Version() != 0 {
		t.Fatalf("initial version = %d, want 0", s.Version())
	}

	v := s.IncrementAndUpdate(map[string]string{"campaign": "launch"})
	if v != 1 {
		t.Errorf("first increment = %d, want 1", v)
	}

	got, ok := s.Get("campaign")
	if !ok || got != "launch" {
		t.Errorf("Get(campaign) = %q, %v", got, ok)
	}

	v = s.IncrementAndUpdate(nil)
	if v != 2 {
		t.Errorf("second increment = %d, want 2", v)
	}
}

func TestVersionStrictlyIncreasesUnderConcurrency(t *testing.T) {
	s := NewStore()

	const writers = 8
	const perWriter = 250

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.IncrementAndUpdate(map[string]string{"k": "v"})
			}
		}()
	}
	wg.Wait()

	// No lost updates: every increment must be observed.
	if got := s.Version(); got != writers*perWriter {
		t.Errorf("version = %d, want %d", got, writers*perWriter)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.IncrementAndUpdate(map[string]string{"a": "1"})

	version, snap := s.Snapshot()
	if version != 1 {
		t.Errorf("snapshot version = %d, want 1", version)
	}
	snap["a"] = "tampered"

	if got, _ := s.Get("a"); got != "1" {
		t.Errorf("store mutated through snapshot: %q", got)
	}
}

func TestLastScheduledPost(t *testing.T) {
	s := NewStore()

	if !s.LastScheduledPost().IsZero() {
		t.Error("unset last scheduled post should be zero time")
	}

	want := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.IncrementAndUpdate(map[string]string{
		KeyLastScheduledPost: want.Format(time.RFC3339),
	})

	if got := s.LastScheduledPost(); !got.Equal(want) {
		t.Errorf("LastScheduledPost = %s, want %s", got, want)
	}

	s.IncrementAndUpdate(map[string]string{KeyLastScheduledPost: "garbage"})
	if !s.LastScheduledPost().IsZero() {
		t.Error("unparseable timestamp should read as zero time")
	}
}
