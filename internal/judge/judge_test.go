package judge

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/generate"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/mcpbridge"
	"github.com/outpost-labs/swarmgate/internal/persona"
	"github.com/outpost-labs/swarmgate/internal/publish"
	"github.com/outpost-labs/swarmgate/internal/queue"
	"github.com/outpost-labs/swarmgate/internal/state"
	"github.com/outpost-labs/swarmgate/internal/task"
)

// fakePublisher records publish calls.
type fakePublisher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, platform task.Platform, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, string(platform)+":"+content)
	return p.err
}

func (p *fakePublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// alignmentEngine rates every content with a fixed score.
func alignmentEngine(score string) *generate.Engine {
	return generate.NewEngine(generate.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return score, nil
	}))
}

func testJudgeConfig() *config.Config {
	cfg := config.Default()
	cfg.Judge.PopTimeoutSeconds = 1
	cfg.Safety = config.Safety{
		BannedKeywords:       []string{"guaranteed returns"},
		AutoEscalatePatterns: []string{"breaking news"},
		SensitiveTopics:      []string{"layoffs"},
	}
	return cfg
}

func newTestJudge(cfg *config.Config, alignment string) (*Judge, *fakePublisher, *queue.Broker, *state.Store) {
	broker := queue.NewBroker()
	store := state.NewStore()
	pub := &fakePublisher{}
	pm := persona.NewManagerWith(&persona.Persona{Name: "Nova", Niche: "infra"})
	j := New(cfg, broker, store, alignmentEngine(alignment), pm, pub, nil, logging.Nop())
	return j, pub, broker, store
}

func cleanResult(version int64, output string) task.Result {
	return task.Result{
		TaskID:       uuid.New(),
		WorkerID:     "worker-1",
		Output:       output,
		StateVersion: version,
		Metadata:     map[string]string{task.MetaPlatform: "x"},
		CreatedAt:    time.Now().UTC(),
	}
}

func advanceVersion(store *state.Store, to int64) {
	for store.Version() < to {
		store.IncrementAndUpdate(nil)
	}
}

func TestValidateErrorResultShortCircuits(t *testing.T) {
	j, _, _, _ := newTestJudge(testJudgeConfig(), "1.0")

	r := cleanResult(0, "")
	r.Error = "execution timeout"
	v := j.ValidateResult(context.Background(), r)

	if v.Decision != task.DecisionReject {
		t.Errorf("decision = %s, want reject", v.Decision)
	}
	if v.Confidence != 0.0 {
		t.Errorf("confidence = %v, want 0.0", v.Confidence)
	}
	if !strings.Contains(v.Reason, "execution timeout") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestValidateStateVersionConflict(t *testing.T) {
	tests := []struct {
		name          string
		resultVersion int64
		wantConflict  bool
	}{
		{"stale version", 4, true},
		{"future version", 6, true},
		{"matching version", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, _, _, store := newTestJudge(testJudgeConfig(), "1.0")
			advanceVersion(store, 5)

			v := j.ValidateResult(context.Background(), cleanResult(tt.resultVersion, "all good"))

			gotConflict := strings.Contains(v.Reason, "conflict")
			if gotConflict != tt.wantConflict {
				t.Fatalf("conflict = %v (reason %q), want %v", gotConflict, v.Reason, tt.wantConflict)
			}
			if tt.wantConflict {
				if v.Decision != task.DecisionReject || v.Confidence != 0.0 {
					t.Errorf("conflict must reject with zero confidence, got %s %v", v.Decision, v.Confidence)
				}
			}
		})
	}
}

func TestValidateCleanContentApproves(t *testing.T) {
	j, _, _, _ := newTestJudge(testJudgeConfig(), "0.8")

	v := j.ValidateResult(context.Background(), cleanResult(0, "shipping a new cache layer today"))

	if v.Decision != task.DecisionApprove {
		t.Fatalf("decision = %s (reason %q), want approve", v.Decision, v.Reason)
	}
	// 0.8*0.3 + 1.0*0.4 + 1.0*0.3
	if math.Abs(v.Confidence-0.94) > 1e-9 {
		t.Errorf("confidence = %v, want 0.94", v.Confidence)
	}
	if v.Checks["safety"] != string(SafetySafe) {
		t.Errorf("safety check = %v", v.Checks["safety"])
	}
}

func TestValidateBannedKeywordRejects(t *testing.T) {
	j, _, _, _ := newTestJudge(testJudgeConfig(), "1.0")

	v := j.ValidateResult(context.Background(), cleanResult(0, "Invest now for GUARANTEED RETURNS"))

	if v.Decision != task.DecisionReject {
		t.Fatalf("decision = %s, want reject", v.Decision)
	}
	if !strings.Contains(v.Reason, "safety") {
		t.Errorf("reason = %q", v.Reason)
	}
	// 1.0*0.3 + 0.0*0.4 + 1.0*0.3: confidence is still computed.
	if math.Abs(v.Confidence-0.6) > 1e-9 {
		t.Errorf("confidence = %v, want 0.6", v.Confidence)
	}
}

func TestValidateEscalatePatternNeedsReview(t *testing.T) {
	j, _, _, _ := newTestJudge(testJudgeConfig(), "1.0")

	v := j.ValidateResult(context.Background(), cleanResult(0, "Breaking news: everything changed"))

	if v.Decision != task.DecisionEscalate {
		t.Fatalf("decision = %s (reason %q), want escalate", v.Decision, v.Reason)
	}
	// 1.0*0.3 + 0.6*0.4 + 1.0*0.3
	if math.Abs(v.Confidence-0.84) > 1e-9 {
		t.Errorf("confidence = %v, want 0.84", v.Confidence)
	}
}

func TestValidateSensitiveTopicNeedsReview(t *testing.T) {
	j, _, _, _ := newTestJudge(testJudgeConfig(), "1.0")

	v := j.ValidateResult(context.Background(), cleanResult(0, "thoughts on the recent layoffs"))

	if v.Decision != task.DecisionEscalate {
		t.Errorf("decision = %s, want escalate", v.Decision)
	}
	if v.Checks["safety"] != string(SafetyNeedsReview) {
		t.Errorf("safety check = %v", v.Checks["safety"])
	}
}

func TestSafetyFilterOrderBannedWins(t *testing.T) {
	f := NewSafetyFilter(config.Safety{
		BannedKeywords:       []string{"scam"},
		AutoEscalatePatterns: []string{"breaking"},
		SensitiveTopics:      []string{"breaking"},
	})

	status, matched := f.Check("Breaking: this scam is everywhere")
	if status != SafetyUnsafe {
		t.Errorf("status = %s, want unsafe", status)
	}
	if matched != "scam" {
		t.Errorf("matched = %q, want scam", matched)
	}
}

func TestValidateOverlongContentRejects(t *testing.T) {
	j, _, _, _ := newTestJudge(testJudgeConfig(), "1.0")

	v := j.ValidateResult(context.Background(), cleanResult(0, strings.Repeat("a", 300)))

	if v.Decision != task.DecisionReject {
		t.Fatalf("decision = %s, want reject", v.Decision)
	}
	if !strings.Contains(v.Reason, "compliance") {
		t.Errorf("reason = %q", v.Reason)
	}
	// 1.0*0.3 + 1.0*0.4 + 0.0*0.3
	if math.Abs(v.Confidence-0.7) > 1e-9 {
		t.Errorf("confidence = %v, want 0.7", v.Confidence)
	}
	if v.Checks["platform_compliant"] != false {
		t.Errorf("platform check = %v", v.Checks["platform_compliant"])
	}
}

func TestValidateAlignmentFailureDefaultsNeutral(t *testing.T) {
	// The rating comes back as prose, so alignment falls back to 0.5 and
	// confidence lands exactly on the auto-approve threshold.
	j, _, _, _ := newTestJudge(testJudgeConfig(), "looks great to me")

	v := j.ValidateResult(context.Background(), cleanResult(0, "fine content"))

	if math.Abs(v.Confidence-0.85) > 1e-9 {
		t.Errorf("confidence = %v, want 0.85", v.Confidence)
	}
	if v.Decision != task.DecisionApprove {
		t.Errorf("decision = %s, threshold is inclusive", v.Decision)
	}
}

func TestValidateLowConfidenceRejects(t *testing.T) {
	cfg := testJudgeConfig()
	cfg.Judge.AutoApprove = 0.95
	cfg.Judge.HITLReview = 0.8
	j, _, _, _ := newTestJudge(cfg, "0.0")

	// 0.0*0.3 + 1.0*0.4 + 1.0*0.3 = 0.7, below the raised review floor.
	v := j.ValidateResult(context.Background(), cleanResult(0, "meh"))

	if v.Decision != task.DecisionReject {
		t.Fatalf("decision = %s, want reject", v.Decision)
	}
	if v.Reason != "low confidence" {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestExecuteDecisionApprovePublishes(t *testing.T) {
	j, pub, _, _ := newTestJudge(testJudgeConfig(), "1.0")
	r := cleanResult(0, "publish me")

	j.ExecuteDecision(context.Background(), r, task.Validation{Decision: task.DecisionApprove})

	if len(pub.calls) != 1 || pub.calls[0] != "x:publish me" {
		t.Errorf("publish calls = %v", pub.calls)
	}
}

func TestExecuteDecisionEscalateQueuesHITLRecord(t *testing.T) {
	j, pub, broker, _ := newTestJudge(testJudgeConfig(), "1.0")
	r := cleanResult(0, "needs a look")

	j.ExecuteDecision(context.Background(), r, task.Validation{
		Decision: task.DecisionEscalate,
		Reason:   "medium confidence, needs human review",
	})

	if len(pub.calls) != 0 {
		t.Error("escalation must not publish")
	}

	data, ok, err := broker.BlockingPop(queue.NamesFor("swarmgate").HITL, 10*time.Millisecond)
	if err != nil || !ok {
		t.Fatal("expected a record on the hitl queue")
	}
	var record struct {
		Result      task.Result `json:"result"`
		Reason      string      `json:"reason"`
		EscalatedAt string      `json:"escalated_at"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode hitl record: %v", err)
	}
	if record.Result.TaskID != r.TaskID {
		t.Error("record should embed the full result")
	}
	if record.Reason != "medium confidence, needs human review" {
		t.Errorf("reason = %q", record.Reason)
	}
	if _, err := time.Parse(time.RFC3339, record.EscalatedAt); err != nil {
		t.Errorf("escalated_at = %q: %v", record.EscalatedAt, err)
	}
}

func TestExecuteDecisionRejectHasNoSideEffects(t *testing.T) {
	j, pub, broker, _ := newTestJudge(testJudgeConfig(), "1.0")
	r := cleanResult(0, "dropped")

	j.ExecuteDecision(context.Background(), r, task.Validation{Decision: task.DecisionReject, Reason: "low confidence"})

	if len(pub.calls) != 0 {
		t.Error("reject must not publish")
	}
	if broker.Len(queue.NamesFor("swarmgate").HITL) != 0 {
		t.Error("reject must not escalate")
	}
}

func TestDryRunApprovalSkipsToolCall(t *testing.T) {
	cfg := testJudgeConfig()
	var called bool
	caller := mcpbridge.CallerFunc(func(_ context.Context, _, _ string, _ map[string]any) (string, error) {
		called = true
		return "", nil
	})
	pub := publish.New(caller, cfg.Platforms, true, logging.Nop())

	broker := queue.NewBroker()
	store := state.NewStore()
	pm := persona.NewManagerWith(&persona.Persona{Name: "Nova", Niche: "infra"})
	j := New(cfg, broker, store, alignmentEngine("1.0"), pm, pub, nil, logging.Nop())

	r := cleanResult(0, "approved content")
	v := j.ValidateResult(context.Background(), r)
	if v.Decision != task.DecisionApprove {
		t.Fatalf("decision = %s, want approve", v.Decision)
	}
	j.ExecuteDecision(context.Background(), r, v)

	if called {
		t.Error("dry run must not invoke the publish tool")
	}
}

func TestRunProcessesReviewQueue(t *testing.T) {
	j, pub, broker, _ := newTestJudge(testJudgeConfig(), "1.0")

	data, err := json.Marshal(cleanResult(0, "a clean post"))
	if err != nil {
		t.Fatal(err)
	}
	if err := broker.Push(queue.NamesFor("swarmgate").Review, data); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(finished)
	}()

	deadline := time.After(3 * time.Second)
	for pub.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("judge never published the approved result")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-finished:
	case <-time.After(3 * time.Second):
		t.Fatal("judge did not stop on cancel")
	}
}
