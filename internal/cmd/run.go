package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/mcpbridge"
	"github.com/outpost-labs/swarmgate/internal/swarm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent swarm",
	Long: `Run the planner, worker pool, and judge until interrupted.

External capabilities come from the MCP servers in the configuration:
the generation tool drafts content, resource servers supply news and
mentions, and platform tool servers execute approved publishes.`,
	RunE: runSwarm,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSwarm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	bridge := mcpbridge.NewClient(cfg.Servers, logger)
	defer func() { _ = bridge.Close() }()

	gen := mcpbridge.NewToolGenerator(bridge, cfg.Generation.Server, cfg.Generation.Tool)

	runner, err := swarm.New(cfg, swarm.Options{
		Generator: gen,
		Bridge:    bridge,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build swarm: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runner.Run(ctx)
}

func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	if cfg.Logging.Dir != "" {
		return logging.NewFile(cfg.Logging.Dir, cfg.Logging.Level)
	}
	return logging.New(os.Stderr, cfg.Logging.Level), nil
}
