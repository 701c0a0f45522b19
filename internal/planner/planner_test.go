package planner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/errors"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/mcpbridge"
	"github.com/outpost-labs/swarmgate/internal/queue"
	"github.com/outpost-labs/swarmgate/internal/state"
	"github.com/outpost-labs/swarmgate/internal/task"
)

// staticReader serves fixed content per server name.
type staticReader map[string]string

func (r staticReader) ReadResource(_ context.Context, server, _ string) (string, error) {
	content, ok := r[server]
	if !ok {
		return "", errors.NewTransportError("read_resource", errors.New("server down"))
	}
	return content, nil
}

func newTestPlanner(t *testing.T, reader mcpbridge.ResourceReader) (*Planner, *queue.Broker, *state.Store) {
	t.Helper()
	cfg := config.Default()
	broker := queue.NewBroker()
	store := state.NewStore()
	p := New(cfg, broker, store, reader, nil, nil, logging.Nop())
	// Pin the clock away from the scheduled-content hour; tests that
	// exercise the trigger set their own.
	p.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return p, broker, store
}

func popTask(t *testing.T, broker *queue.Broker, name string) task.Task {
	t.Helper()
	data, ok, err := broker.BlockingPop(name, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if !ok {
		t.Fatal("expected a queued task")
	}
	var tk task.Task
	if err := json.Unmarshal(data, &tk); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return tk
}

func TestScanTopicsEnqueuesPostTasks(t *testing.T) {
	news, _ := json.Marshal([]task.Article{
		{Title: "AI Startup Raises $100M", Summary: "funding round"},
	})
	p, broker, store := newTestPlanner(t, staticReader{
		"news": string(news),
		"x":    "[]",
	})
	store.IncrementAndUpdate(nil)
	store.IncrementAndUpdate(nil)

	p.RunCycle(context.Background())

	names := queue.NamesFor("swarmgate")
	tk := popTask(t, broker, names.Tasks)
	if tk.Type != task.TypeGeneratePost {
		t.Errorf("type = %s, want %s", tk.Type, task.TypeGeneratePost)
	}
	if tk.StateVersion != 2 {
		t.Errorf("state version = %d, want 2", tk.StateVersion)
	}
	payload, ok := tk.Payload.(task.PostPayload)
	if !ok {
		t.Fatalf("payload type = %T", tk.Payload)
	}
	if payload.Topic != "AI Startup Raises $100M" {
		t.Errorf("topic = %q", payload.Topic)
	}
	if payload.Urgency != "high" {
		t.Errorf("urgency = %q, want high", payload.Urgency)
	}

	if n := broker.Len(names.Tasks); n != 0 {
		t.Errorf("one article should yield one task, %d left over", n)
	}
}

func TestScanTopicsDeduplicatesAcrossCycles(t *testing.T) {
	news, _ := json.Marshal([]task.Article{{Title: "Same headline"}})
	p, broker, _ := newTestPlanner(t, staticReader{"news": string(news), "x": "[]"})

	p.RunCycle(context.Background())
	p.RunCycle(context.Background())

	names := queue.NamesFor("swarmgate")
	if n := broker.Len(names.Tasks); n != 1 {
		t.Errorf("repeated headline enqueued %d tasks, want 1", n)
	}
}

func TestScanTopicsCapsTasksAndAddsTrendAnalysis(t *testing.T) {
	var articles []task.Article
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		articles = append(articles, task.Article{Title: title})
	}
	news, _ := json.Marshal(articles)
	p, broker, _ := newTestPlanner(t, staticReader{"news": string(news), "x": "[]"})

	p.RunCycle(context.Background())

	names := queue.NamesFor("swarmgate")
	var posts, trends int
	for broker.Len(names.Tasks) > 0 {
		switch popTask(t, broker, names.Tasks).Type {
		case task.TypeGeneratePost:
			posts++
		case task.TypeAnalyzeTrend:
			trends++
		}
	}
	if posts != maxTopicTasksPerCycle {
		t.Errorf("post tasks = %d, want %d", posts, maxTopicTasksPerCycle)
	}
	if trends != 1 {
		t.Errorf("trend tasks = %d, want 1", trends)
	}
}

func TestScanMentionsEnqueuesReplies(t *testing.T) {
	mentions := `[{"id": 42, "text": "what do you think?", "author_id": 7}]`
	p, broker, _ := newTestPlanner(t, staticReader{"news": "[]", "x": mentions})

	p.RunCycle(context.Background())
	p.RunCycle(context.Background())

	names := queue.NamesFor("swarmgate")
	tk := popTask(t, broker, names.Tasks)
	if tk.Type != task.TypeGenerateReply {
		t.Fatalf("type = %s, want %s", tk.Type, task.TypeGenerateReply)
	}
	payload := tk.Payload.(task.ReplyPayload)
	if payload.MentionID != "42" || payload.Author != "7" {
		t.Errorf("mention = %q author = %q", payload.MentionID, payload.Author)
	}
	if payload.MentionText != "what do you think?" {
		t.Errorf("mention text = %q", payload.MentionText)
	}

	if n := broker.Len(names.Tasks); n != 0 {
		t.Errorf("mention re-enqueued on second cycle, %d tasks left", n)
	}
}

func TestCycleSurvivesResourceFailure(t *testing.T) {
	// No servers at all: every step fails, the cycle must still complete.
	p, broker, _ := newTestPlanner(t, staticReader{})

	p.RunCycle(context.Background())

	names := queue.NamesFor("swarmgate")
	if n := broker.Len(names.Tasks); n != 0 {
		t.Errorf("failed scans enqueued %d tasks", n)
	}
}

func TestScheduledContentFiresAtConfiguredHour(t *testing.T) {
	p, broker, store := newTestPlanner(t, staticReader{"news": "[]", "x": "[]"})
	p.now = func() time.Time {
		return time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)
	}

	p.RunCycle(context.Background())

	names := queue.NamesFor("swarmgate")
	want := len(config.Default().Platforms)
	if n := broker.Len(names.Tasks); n != want {
		t.Fatalf("scheduled tasks = %d, want %d", n, want)
	}
	if store.LastScheduledPost().IsZero() {
		t.Error("last scheduled post timestamp not recorded")
	}
	if store.Version() != 1 {
		t.Errorf("state version = %d, want 1", store.Version())
	}
	for i := 0; i < want; i++ {
		tk := popTask(t, broker, names.Tasks)
		if tk.StateVersion != store.Version() {
			t.Errorf("task state version = %d, store version = %d", tk.StateVersion, store.Version())
		}
	}
}

func TestScheduledContentSkippedOutsideHour(t *testing.T) {
	p, broker, _ := newTestPlanner(t, staticReader{"news": "[]", "x": "[]"})
	p.now = func() time.Time {
		return time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	}

	p.RunCycle(context.Background())

	if n := broker.Len(queue.NamesFor("swarmgate").Tasks); n != 0 {
		t.Errorf("enqueued %d tasks outside the scheduled hour", n)
	}
}

func TestScheduledContentRespectsMinimumGap(t *testing.T) {
	p, broker, store := newTestPlanner(t, staticReader{"news": "[]", "x": "[]"})
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	store.IncrementAndUpdate(map[string]string{
		state.KeyLastScheduledPost: now.Add(-2 * time.Hour).Format(time.RFC3339),
	})

	p.RunCycle(context.Background())

	if n := broker.Len(queue.NamesFor("swarmgate").Tasks); n != 0 {
		t.Errorf("enqueued %d tasks within the 23h gap", n)
	}

	// A day later the trigger fires again.
	now = now.Add(24 * time.Hour)
	p.RunCycle(context.Background())
	if n := broker.Len(queue.NamesFor("swarmgate").Tasks); n == 0 {
		t.Error("trigger did not fire after the gap elapsed")
	}
}

func TestUpdateGlobalStateIncrementsVersion(t *testing.T) {
	p, _, store := newTestPlanner(t, staticReader{})

	v1 := p.UpdateGlobalState(map[string]string{"mood": "focused"})
	v2 := p.UpdateGlobalState(nil)

	if v1 != 1 || v2 != 2 {
		t.Errorf("versions = %d, %d; want 1, 2", v1, v2)
	}
	if got, _ := store.Get("mood"); got != "focused" {
		t.Errorf("mood = %q", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p, _, _ := newTestPlanner(t, staticReader{"news": "[]", "x": "[]"})
	p.cfg.Planner.IntervalSeconds = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("planner did not stop on cancel")
	}
}
