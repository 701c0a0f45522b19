// Package worker implements the task execution loop. Workers pop tasks from
// the shared task queue, execute them under a hard deadline, and push a
// result for every popped task onto the review queue, failures included.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/errors"
	"github.com/outpost-labs/swarmgate/internal/event"
	"github.com/outpost-labs/swarmgate/internal/generate"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/memory"
	"github.com/outpost-labs/swarmgate/internal/persona"
	"github.com/outpost-labs/swarmgate/internal/queue"
	"github.com/outpost-labs/swarmgate/internal/task"
)

// Worker executes tasks one at a time. Any number of Workers may share a
// task queue; each popped task is executed by exactly one of them.
type Worker struct {
	id      string
	cfg     *config.Config
	broker  *queue.Broker
	engine  *generate.Engine
	persona *persona.Manager
	mem     *memory.ShortTerm
	bus     *event.Bus
	logger  *logging.Logger
	queues  queue.Names
}

// New creates a Worker. The bus and memory may be nil.
func New(id string, cfg *config.Config, broker *queue.Broker, engine *generate.Engine, pm *persona.Manager, mem *memory.ShortTerm, bus *event.Bus, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Worker{
		id:      id,
		cfg:     cfg,
		broker:  broker,
		engine:  engine,
		persona: pm,
		mem:     mem,
		bus:     bus,
		logger:  logger.WithRole("worker").WithWorker(id),
		queues:  queue.NamesFor(cfg.Agent.ID),
	}
}

// Run executes work cycles until ctx is canceled or the broker closes.
// Cancellation is observed between cycles; an in-flight task completes or
// times out first.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker starting")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		if err := w.workCycle(ctx); err != nil {
			if errors.Is(err, errors.ErrQueueClosed) {
				w.logger.Info("worker stopping, queue closed")
				return
			}
			w.logger.Error("work cycle failed", "error", err)
		}
	}
}

// workCycle pops at most one task and processes it. A pop timeout is a
// no-op, not an error.
func (w *Worker) workCycle(ctx context.Context) error {
	data, ok, err := w.broker.BlockingPop(w.queues.Tasks, w.cfg.Worker.PopTimeout())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var t task.Task
	if err := json.Unmarshal(data, &t); err != nil {
		// The task is unrecoverable without an ID to report against.
		return fmt.Errorf("decode task: %w", err)
	}

	w.logger.Info("executing task", "task_id", t.ID, "type", t.Type)
	result := w.ExecuteTask(ctx, t)
	if err := w.queueResult(result); err != nil {
		return err
	}

	if result.Error != "" {
		w.logger.Warn("task failed", "task_id", t.ID, "error", result.Error)
	} else {
		w.logger.Info("task completed", "task_id", t.ID)
	}
	return nil
}

// ExecuteTask runs one task under the configured deadline and always
// returns a Result: handler errors and timeouts become error results, they
// never propagate.
func (w *Worker) ExecuteTask(ctx context.Context, t task.Task) task.Result {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Worker.TaskDeadline())
	defer cancel()

	type outcome struct {
		output string
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		output, err := w.handle(ctx, t)
		ch <- outcome{output: output, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return task.NewErrorResult(t, w.id, o.err)
		}
		return task.NewResult(t, w.id, o.output)
	case <-ctx.Done():
		err := errors.NewTimeoutError(errors.ErrExecutionTimeout, w.cfg.Worker.TaskDeadline())
		return task.NewErrorResult(t, w.id, err)
	}
}

// handle dispatches on the task's payload kind.
func (w *Worker) handle(ctx context.Context, t task.Task) (string, error) {
	limit := w.cfg.CharacterLimit(string(t.Platform))

	switch p := t.Payload.(type) {
	case task.PostPayload:
		promptCtx := w.assembleContext(fmt.Sprintf("Create a post about: %s", p.Topic))
		return w.engine.Post(ctx, p.Topic, t.Platform, promptCtx, limit)

	case task.ReplyPayload:
		promptCtx := w.assembleContext(fmt.Sprintf("Reply to @%s: %s", p.Author, p.MentionText))
		return w.engine.Reply(ctx, p.Author, p.MentionText, t.Platform, promptCtx, limit)

	case task.TrendPayload:
		return w.engine.AnalyzeTrend(ctx, p.Articles)

	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownTaskType, t.Type)
	}
}

// assembleContext builds the persona prompt context for a handler.
func (w *Worker) assembleContext(inputQuery string) string {
	if w.persona == nil {
		return inputQuery
	}
	var src persona.MemorySource
	if w.mem != nil {
		src = w.mem
	}
	return w.persona.AssembleContext(inputQuery, src)
}

// queueResult pushes the result onto the review queue and records the
// hand-off.
func (w *Worker) queueResult(r task.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result for task %s: %w", r.TaskID, err)
	}
	if err := w.broker.Push(w.queues.Review, data); err != nil {
		return fmt.Errorf("push result for task %s: %w", r.TaskID, err)
	}

	if w.bus != nil {
		w.bus.Publish(event.NewResultQueuedEvent(r.TaskID, r.WorkerID, r.Error != ""))
	}
	if w.mem != nil {
		if r.Error != "" {
			w.mem.Record("result", fmt.Sprintf("task %s failed: %s", r.TaskID, r.Error))
		} else {
			w.mem.Record("result", fmt.Sprintf("task %s produced %d chars", r.TaskID, len(r.Output)))
		}
	}
	return nil
}
