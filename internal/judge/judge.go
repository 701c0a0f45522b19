// Package judge implements the governance gate at the end of the pipeline.
// Every worker result passes through its validation pipeline, which scores
// persona alignment, safety, and platform compliance into a single
// confidence value, and is then published, escalated to a human, or
// rejected. Nothing reaches a platform without an approve decision.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/errors"
	"github.com/outpost-labs/swarmgate/internal/event"
	"github.com/outpost-labs/swarmgate/internal/generate"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/persona"
	"github.com/outpost-labs/swarmgate/internal/queue"
	"github.com/outpost-labs/swarmgate/internal/state"
	"github.com/outpost-labs/swarmgate/internal/task"
)

// Confidence weights. Safety carries the most weight; persona voice and
// platform fit split the rest evenly.
const (
	weightPersona    = 0.3
	weightSafety     = 0.4
	weightCompliance = 0.3
)

// neutralAlignment is assumed when the alignment rating itself fails.
const neutralAlignment = 0.5

// ContentPublisher executes the externally visible publish action.
type ContentPublisher interface {
	Publish(ctx context.Context, platform task.Platform, content string) error
}

// Judge validates worker results and executes the resulting decisions.
type Judge struct {
	cfg       *config.Config
	broker    *queue.Broker
	store     *state.Store
	engine    *generate.Engine
	persona   *persona.Manager
	publisher ContentPublisher
	safety    *SafetyFilter
	bus       *event.Bus
	logger    *logging.Logger
	queues    queue.Names

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Judge. The bus may be nil; the persona manager may be nil,
// in which case alignment scores neutral.
func New(cfg *config.Config, broker *queue.Broker, store *state.Store, engine *generate.Engine, pm *persona.Manager, publisher ContentPublisher, bus *event.Bus, logger *logging.Logger) *Judge {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Judge{
		cfg:       cfg,
		broker:    broker,
		store:     store,
		engine:    engine,
		persona:   pm,
		publisher: publisher,
		safety:    NewSafetyFilter(cfg.Safety),
		bus:       bus,
		logger:    logger.WithRole("judge"),
		queues:    queue.NamesFor(cfg.Agent.ID),
		now:       time.Now,
	}
}

// Run executes judge cycles until ctx is canceled or the broker closes.
func (j *Judge) Run(ctx context.Context) {
	j.logger.Info("judge starting", "dry_run", j.cfg.Judge.DryRun)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("judge stopping")
			return
		default:
		}

		if err := j.judgeCycle(ctx); err != nil {
			if errors.Is(err, errors.ErrQueueClosed) {
				j.logger.Info("judge stopping, queue closed")
				return
			}
			j.logger.Error("judge cycle failed", "error", err)
		}
	}
}

// judgeCycle pops at most one result, validates it, and executes the
// decision. A pop timeout is a no-op.
func (j *Judge) judgeCycle(ctx context.Context) error {
	data, ok, err := j.broker.BlockingPop(j.queues.Review, j.cfg.Judge.PopTimeout())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var r task.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	j.logger.Info("validating result", "task_id", r.TaskID, "worker_id", r.WorkerID)
	v := j.ValidateResult(ctx, r)
	j.ExecuteDecision(ctx, r, v)

	j.logger.Info("validation complete",
		"task_id", r.TaskID,
		"decision", v.Decision,
		"confidence", v.Confidence)
	return nil
}

// ValidateResult runs the validation pipeline on one result. Error results
// and stale state versions short-circuit to a zero-confidence reject; all
// other results are scored on persona alignment, safety, and platform
// compliance.
func (j *Judge) ValidateResult(ctx context.Context, r task.Result) task.Validation {
	if r.Error != "" {
		return task.Validation{
			Decision:   task.DecisionReject,
			Confidence: 0.0,
			Reason:     "task error: " + r.Error,
		}
	}

	if current := j.store.Version(); r.StateVersion != current {
		j.logger.Warn("state version conflict",
			"task_id", r.TaskID,
			"result_version", r.StateVersion,
			"current_version", current)
		return task.Validation{
			Decision:   task.DecisionReject,
			Confidence: 0.0,
			Reason:     fmt.Sprintf("state version conflict: result %d, current %d", r.StateVersion, current),
		}
	}

	personaScore := j.personaAlignment(ctx, r.Output)
	safetyStatus, matched := j.safety.Check(r.Output)
	platformOK := j.platformCompliant(r)

	compliance := 0.0
	if platformOK {
		compliance = 1.0
	}
	confidence := personaScore*weightPersona + safetyStatus.Score()*weightSafety + compliance*weightCompliance

	var decision task.Decision
	var reason string
	switch {
	case safetyStatus == SafetyUnsafe:
		decision = task.DecisionReject
		reason = fmt.Sprintf("failed safety filter: matched %q", matched)
	case !platformOK:
		decision = task.DecisionReject
		reason = "platform compliance violation"
	case confidence >= j.cfg.Judge.AutoApprove:
		decision = task.DecisionApprove
		reason = "high confidence"
	case confidence >= j.cfg.Judge.HITLReview:
		decision = task.DecisionEscalate
		reason = "medium confidence, needs human review"
	default:
		decision = task.DecisionReject
		reason = "low confidence"
	}

	return task.Validation{
		Decision:   decision,
		Confidence: confidence,
		Reason:     reason,
		Checks: map[string]any{
			"persona_alignment":  personaScore,
			"safety":             string(safetyStatus),
			"platform_compliant": platformOK,
		},
	}
}

// personaAlignment rates how well content matches the persona, defaulting
// to neutral when no persona is loaded or the rating itself fails.
func (j *Judge) personaAlignment(ctx context.Context, content string) float64 {
	if j.persona == nil || j.engine == nil {
		return neutralAlignment
	}

	score, err := j.engine.RateAlignment(ctx, content, j.persona.Persona().SystemPrompt())
	if err != nil {
		j.logger.Warn("persona alignment check failed", "error", err)
		return neutralAlignment
	}
	return score
}

// platformCompliant checks the result against its platform's constraints.
func (j *Judge) platformCompliant(r task.Result) bool {
	limit := j.cfg.CharacterLimit(string(r.Platform()))
	if n := len([]rune(r.Output)); n > limit {
		j.logger.Warn("content exceeds platform limit",
			"task_id", r.TaskID,
			"platform", r.Platform(),
			"length", n,
			"limit", limit)
		return false
	}
	return true
}

// ExecuteDecision performs the side effect the validation calls for:
// publish on approve, hand to a human on escalate, log on reject.
func (j *Judge) ExecuteDecision(ctx context.Context, r task.Result, v task.Validation) {
	switch v.Decision {
	case task.DecisionApprove:
		if err := j.publisher.Publish(ctx, r.Platform(), r.Output); err != nil {
			j.logger.Error("publish failed", "task_id", r.TaskID, "error", err)
		}
	case task.DecisionEscalate:
		if err := j.EscalateToHITL(r, v.Reason); err != nil {
			j.logger.Error("escalation failed", "task_id", r.TaskID, "error", err)
		}
	default:
		j.logger.Info("rejected result", "task_id", r.TaskID, "reason", v.Reason)
	}

	if j.bus != nil {
		j.bus.Publish(event.NewDecisionMadeEvent(r.TaskID, v.Decision.String(), v.Confidence, v.Reason))
	}
}

// hitlRecord is the wire item pushed onto the human review queue.
type hitlRecord struct {
	Result      task.Result `json:"result"`
	Reason      string      `json:"reason"`
	EscalatedAt string      `json:"escalated_at"`
}

// EscalateToHITL queues the result for human review.
func (j *Judge) EscalateToHITL(r task.Result, reason string) error {
	data, err := json.Marshal(hitlRecord{
		Result:      r,
		Reason:      reason,
		EscalatedAt: j.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal hitl record for task %s: %w", r.TaskID, err)
	}
	if err := j.broker.Push(j.queues.HITL, data); err != nil {
		return fmt.Errorf("push hitl record for task %s: %w", r.TaskID, err)
	}

	if j.bus != nil {
		j.bus.Publish(event.NewHITLEscalatedEvent(r.TaskID, reason))
	}
	j.logger.Info("escalated to human review", "task_id", r.TaskID, "reason", reason)
	return nil
}
