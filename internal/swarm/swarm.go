// Package swarm assembles and runs the full pipeline: one planner, a pool
// of workers, and one judge, wired together through the queue broker, the
// global state store, and the event bus.
package swarm

import (
	"context"
	"fmt"
	"sync"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/errors"
	"github.com/outpost-labs/swarmgate/internal/event"
	"github.com/outpost-labs/swarmgate/internal/generate"
	"github.com/outpost-labs/swarmgate/internal/judge"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/mcpbridge"
	"github.com/outpost-labs/swarmgate/internal/memory"
	"github.com/outpost-labs/swarmgate/internal/persona"
	"github.com/outpost-labs/swarmgate/internal/planner"
	"github.com/outpost-labs/swarmgate/internal/publish"
	"github.com/outpost-labs/swarmgate/internal/queue"
	"github.com/outpost-labs/swarmgate/internal/state"
	"github.com/outpost-labs/swarmgate/internal/worker"
)

// memoryCapacity is the size of the shared short-term memory ring.
const memoryCapacity = 50

// Options carries the external capabilities the swarm cannot construct for
// itself.
type Options struct {
	// Generator is the text generation capability. Required.
	Generator generate.Generator

	// Bridge is the resource/tool capability. When nil, a stdio MCP client
	// is built from the configured servers.
	Bridge mcpbridge.Bridge

	// Logger receives all role loggers. When nil, logging is discarded.
	Logger *logging.Logger
}

// Runner owns the shared infrastructure of one agent instance and runs its
// roles to completion.
type Runner struct {
	cfg    *config.Config
	logger *logging.Logger

	broker  *queue.Broker
	store   *state.Store
	bus     *event.Bus
	mem     *memory.ShortTerm
	pm      *persona.Manager
	watcher *persona.Watcher
	bridge  mcpbridge.Bridge
	mcp     *mcpbridge.Client
	gen     generate.Generator
}

// New builds a Runner from configuration. A persisted queue snapshot is
// restored when the data directory holds one; a missing or unreadable
// persona file downgrades persona checks rather than failing startup.
func New(cfg *config.Config, opts Options) (*Runner, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("swarm: a generator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithAgent(cfg.Agent.ID)

	r := &Runner{
		cfg:    cfg,
		logger: logger,
		store:  state.NewStore(),
		bus:    event.NewBus(),
		mem:    memory.NewShortTerm(memoryCapacity),
		gen:    opts.Generator,
	}

	if cfg.Paths.DataDir != "" {
		broker, err := queue.LoadState(cfg.Paths.DataDir)
		if err != nil {
			return nil, fmt.Errorf("restore queues: %w", err)
		}
		r.broker = broker
	} else {
		r.broker = queue.NewBroker()
	}

	pm, err := persona.NewManager(cfg.Agent.PersonaFile)
	if err != nil {
		logger.Warn("persona unavailable, alignment checks will be neutral",
			"file", cfg.Agent.PersonaFile,
			"error", err)
	} else {
		r.pm = pm
		watcher, err := persona.NewWatcher(pm, logger)
		if err != nil {
			logger.Warn("persona hot reload disabled", "error", err)
		} else {
			r.watcher = watcher
		}
	}

	if opts.Bridge != nil {
		r.bridge = opts.Bridge
	} else {
		r.mcp = mcpbridge.NewClient(cfg.Servers, logger)
		r.bridge = r.mcp
	}

	return r, nil
}

// Bus exposes the event bus for observers registered before Run.
func (r *Runner) Bus() *event.Bus { return r.bus }

// Run starts the planner, the worker pool, and the judge, and blocks until
// ctx is canceled and every role has drained its in-flight work. Queue
// contents are snapshotted on the way out when a data directory is
// configured.
func (r *Runner) Run(ctx context.Context) error {
	engine := generate.NewEngine(r.gen)
	publisher := publish.New(r.bridge, r.cfg.Platforms, r.cfg.Judge.DryRun, r.logger)

	pl := planner.New(r.cfg, r.broker, r.store, r.bridge, r.mem, r.bus, r.logger)
	jd := judge.New(r.cfg, r.broker, r.store, engine, r.pm, publisher, r.bus, r.logger)

	r.logger.Info("swarm starting",
		"workers", r.cfg.Worker.Count,
		"dry_run", r.cfg.Judge.DryRun)

	var wg sync.WaitGroup

	if r.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.watcher.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		pl.Run(ctx)
	}()

	for i := 0; i < r.cfg.Worker.Count; i++ {
		id := fmt.Sprintf("worker-%d", i+1)
		w := worker.New(id, r.cfg, r.broker, engine, r.pm, r.mem, r.bus, r.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		jd.Run(ctx)
	}()

	wg.Wait()
	return r.shutdown()
}

// shutdown releases external resources and persists queue contents.
func (r *Runner) shutdown() error {
	var errs []error

	if r.cfg.Paths.DataDir != "" {
		if err := r.broker.SaveState(r.cfg.Paths.DataDir); err != nil {
			errs = append(errs, fmt.Errorf("save queues: %w", err))
		}
	}
	r.broker.Close()

	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close persona watcher: %w", err))
		}
	}
	if r.mcp != nil {
		if err := r.mcp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mcp client: %w", err))
		}
	}

	r.logger.Info("swarm stopped")
	return errors.Join(errs...)
}
