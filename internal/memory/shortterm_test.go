package memory

import (
	"fmt"
	"sync"
	"testing"
)

func TestRecordAndRecent(t *testing.T) {
	m := NewShortTerm(10)

	m.Record("post", "posted about caching")
	m.Record("reply", "answered @sam")

	got := m.Recent(5)
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	if got[0] != "[post] posted about caching" {
		t.Errorf("oldest first: got[0] = %q", got[0])
	}
	if got[1] != "[reply] answered @sam" {
		t.Errorf("got[1] = %q", got[1])
	}
}

func TestRecentLimitsCount(t *testing.T) {
	m := NewShortTerm(10)
	for i := 0; i < 6; i++ {
		m.Record("post", fmt.Sprintf("entry %d", i))
	}

	got := m.Recent(3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(got))
	}
	// The newest three, oldest first.
	if got[0] != "[post] entry 3" || got[2] != "[post] entry 5" {
		t.Errorf("Recent(3) = %v", got)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	m := NewShortTerm(3)
	for i := 0; i < 5; i++ {
		m.Record("post", fmt.Sprintf("entry %d", i))
	}

	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}
	got := m.Recent(10)
	if got[0] != "[post] entry 2" {
		t.Errorf("oldest surviving entry = %q, want entry 2", got[0])
	}
}

func TestRecentEdgeCases(t *testing.T) {
	m := NewShortTerm(0) // falls back to default capacity

	if got := m.Recent(5); got != nil {
		t.Errorf("empty memory Recent = %v, want nil", got)
	}
	m.Record("post", "x")
	if got := m.Recent(0); got != nil {
		t.Errorf("Recent(0) = %v, want nil", got)
	}

	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len after Clear = %d", m.Len())
	}
}

func TestConcurrentRecord(t *testing.T) {
	m := NewShortTerm(100)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.Record("post", fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	if m.Len() != 100 {
		t.Errorf("Len = %d, want capacity 100", m.Len())
	}
}
