// Package planner implements the strategic planning loop. It watches
// external resources for emergent topics and inbound mentions, applies
// time-of-day triggers, and turns what it finds into tasks for the worker
// pool. It is also the sole writer of the global state store.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/event"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/mcpbridge"
	"github.com/outpost-labs/swarmgate/internal/memory"
	"github.com/outpost-labs/swarmgate/internal/queue"
	"github.com/outpost-labs/swarmgate/internal/state"
	"github.com/outpost-labs/swarmgate/internal/task"
)

// maxTopicTasksPerCycle bounds how many post tasks one news scan may enqueue.
const maxTopicTasksPerCycle = 3

// scheduledPostGap is the minimum spacing between scheduled posts. Slightly
// under a day so a cycle landing a few minutes early still fires.
const scheduledPostGap = 23 * time.Hour

// Planner produces tasks on a fixed interval. One Planner instance owns the
// global state store; nothing else writes it.
type Planner struct {
	cfg    *config.Config
	broker *queue.Broker
	store  *state.Store
	reader mcpbridge.ResourceReader
	mem    *memory.ShortTerm
	bus    *event.Bus
	logger *logging.Logger
	queues queue.Names

	// now is replaceable in tests.
	now func() time.Time

	// seenTopics and seenMentions prevent re-enqueueing work for items the
	// resource feeds keep returning across scans.
	seenTopics   map[string]struct{}
	seenMentions map[string]struct{}
}

// New creates a Planner. The bus and memory may be nil when no observer or
// recall is wired.
func New(cfg *config.Config, broker *queue.Broker, store *state.Store, reader mcpbridge.ResourceReader, mem *memory.ShortTerm, bus *event.Bus, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Planner{
		cfg:          cfg,
		broker:       broker,
		store:        store,
		reader:       reader,
		mem:          mem,
		bus:          bus,
		logger:       logger.WithRole("planner"),
		queues:       queue.NamesFor(cfg.Agent.ID),
		now:          time.Now,
		seenTopics:   make(map[string]struct{}),
		seenMentions: make(map[string]struct{}),
	}
}

// Run executes planning cycles until ctx is canceled. The first cycle runs
// immediately; cancellation is observed between cycles, never mid-cycle.
func (p *Planner) Run(ctx context.Context) {
	p.logger.Info("planner starting", "interval", p.cfg.Planner.Interval())

	ticker := time.NewTicker(p.cfg.Planner.Interval())
	defer ticker.Stop()

	p.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("planner stopping")
			return
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}

// RunCycle performs one planning pass: topic scan, mention scan, then
// time-based triggers. A failing step is logged and never aborts the rest
// of the cycle.
func (p *Planner) RunCycle(ctx context.Context) {
	if err := p.scanTopics(ctx); err != nil {
		p.logger.Warn("topic scan failed", "error", err)
	}
	if err := p.scanMentions(ctx); err != nil {
		p.logger.Warn("mention scan failed", "error", err)
	}
	if err := p.checkScheduledContent(ctx); err != nil {
		p.logger.Warn("scheduled content check failed", "error", err)
	}
	p.logger.Debug("planning cycle complete")
}

// scanTopics reads the news resource and enqueues a post task per fresh
// article, plus one trend-analysis task when several arrive together.
func (p *Planner) scanTopics(ctx context.Context) error {
	raw, err := p.reader.ReadResource(ctx, p.cfg.Planner.NewsServer, p.cfg.Planner.NewsURI)
	if err != nil {
		return fmt.Errorf("read news resource: %w", err)
	}

	var articles []task.Article
	if err := json.Unmarshal([]byte(raw), &articles); err != nil {
		return fmt.Errorf("decode news resource: %w", err)
	}

	var fresh []task.Article
	for _, a := range articles {
		if a.Title == "" {
			continue
		}
		if _, ok := p.seenTopics[a.Title]; ok {
			continue
		}
		p.seenTopics[a.Title] = struct{}{}
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 {
		return nil
	}
	p.logger.Info("detected emergent topics", "count", len(fresh))

	for i, a := range fresh {
		if i >= maxTopicTasksPerCycle {
			break
		}
		t := task.New(task.PlatformX, task.PostPayload{
			Topic:    a.Title,
			Articles: []task.Article{a},
			Urgency:  "high",
		}, p.store.Version())
		if err := p.enqueue(t); err != nil {
			return err
		}
	}

	if len(fresh) >= 2 {
		t := task.New(task.PlatformX, task.TrendPayload{Articles: fresh}, p.store.Version())
		if err := p.enqueue(t); err != nil {
			return err
		}
	}
	return nil
}

// mentionWire matches the mention feed's JSON items.
type mentionWire struct {
	ID       json.Number `json:"id"`
	Text     string      `json:"text"`
	AuthorID json.Number `json:"author_id"`
}

// scanMentions reads the mentions resource and enqueues a reply task per
// unseen mention.
func (p *Planner) scanMentions(ctx context.Context) error {
	raw, err := p.reader.ReadResource(ctx, p.cfg.Planner.MentionsServer, p.cfg.Planner.MentionsURI)
	if err != nil {
		return fmt.Errorf("read mentions resource: %w", err)
	}

	var mentions []mentionWire
	if err := json.Unmarshal([]byte(raw), &mentions); err != nil {
		return fmt.Errorf("decode mentions resource: %w", err)
	}

	for _, m := range mentions {
		id := m.ID.String()
		if id == "" || m.Text == "" {
			continue
		}
		if _, ok := p.seenMentions[id]; ok {
			continue
		}
		p.seenMentions[id] = struct{}{}

		t := task.New(task.PlatformX, task.ReplyPayload{
			MentionID:   id,
			Author:      m.AuthorID.String(),
			MentionText: m.Text,
		}, p.store.Version())
		if err := p.enqueue(t); err != nil {
			return err
		}
	}
	return nil
}

// checkScheduledContent fires the daily content trigger: at the configured
// UTC hour, provided the last scheduled post is at least scheduledPostGap
// in the past.
func (p *Planner) checkScheduledContent(_ context.Context) error {
	now := p.now().UTC()
	if now.Hour() != p.cfg.Planner.ScheduledPostHourUTC {
		return nil
	}

	last := p.store.LastScheduledPost()
	if !last.IsZero() && now.Sub(last) <= scheduledPostGap {
		return nil
	}

	p.logger.Info("planning daily content")
	// The state write happens first: the tasks must carry the post-update
	// version or their results fail the judge's version check.
	version := p.UpdateGlobalState(map[string]string{
		state.KeyLastScheduledPost: now.Format(time.RFC3339),
	})
	for name := range p.cfg.Platforms {
		t := task.New(task.Platform(name), task.PostPayload{
			Topic:   "daily insight",
			Urgency: "scheduled",
		}, version)
		if err := p.enqueue(t); err != nil {
			return err
		}
	}
	return nil
}

// enqueue serializes the task onto the shared task queue and records the
// hand-off.
func (p *Planner) enqueue(t task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	if err := p.broker.Push(p.queues.Tasks, data); err != nil {
		return fmt.Errorf("push task %s: %w", t.ID, err)
	}

	if p.bus != nil {
		p.bus.Publish(event.NewTaskEnqueuedEvent(t.ID, string(t.Type), string(t.Platform), t.StateVersion))
	}
	if p.mem != nil {
		p.mem.Record("task", fmt.Sprintf("queued %s for %s", t.Type, t.Platform))
	}
	p.logger.Debug("task queued",
		"task_id", t.ID,
		"type", t.Type,
		"platform", t.Platform,
		"state_version", t.StateVersion)
	return nil
}

// UpdateGlobalState applies updates under a fresh version and returns the
// new version. All global state writes in the process go through here.
func (p *Planner) UpdateGlobalState(updates map[string]string) int64 {
	version := p.store.IncrementAndUpdate(updates)
	if p.bus != nil {
		p.bus.Publish(event.NewStateUpdatedEvent(version))
	}
	p.logger.Info("global state updated", "version", version)
	return version
}
