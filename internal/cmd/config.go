package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/outpost-labs/swarmgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View swarmgate configuration",
	Long: `View swarmgate configuration.

Without arguments, displays the effective configuration after merging
defaults, the config file, and environment variables.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("agent:")
	fmt.Printf("  id: %s\n", cfg.Agent.ID)
	fmt.Printf("  persona_file: %s\n", cfg.Agent.PersonaFile)

	fmt.Println("planner:")
	fmt.Printf("  interval_seconds: %d\n", cfg.Planner.IntervalSeconds)
	fmt.Printf("  scheduled_post_hour_utc: %d\n", cfg.Planner.ScheduledPostHourUTC)
	fmt.Printf("  news: %s %s\n", cfg.Planner.NewsServer, cfg.Planner.NewsURI)
	fmt.Printf("  mentions: %s %s\n", cfg.Planner.MentionsServer, cfg.Planner.MentionsURI)

	fmt.Println("worker:")
	fmt.Printf("  count: %d\n", cfg.Worker.Count)
	fmt.Printf("  pop_timeout_seconds: %d\n", cfg.Worker.PopTimeoutSeconds)
	fmt.Printf("  task_deadline_seconds: %d\n", cfg.Worker.TaskDeadlineSeconds)

	fmt.Println("judge:")
	fmt.Printf("  auto_approve: %.2f\n", cfg.Judge.AutoApprove)
	fmt.Printf("  hitl_review: %.2f\n", cfg.Judge.HITLReview)
	fmt.Printf("  dry_run: %v\n", cfg.Judge.DryRun)

	fmt.Println("safety:")
	fmt.Printf("  banned_keywords: %s\n", joinOrNone(cfg.Safety.BannedKeywords))
	fmt.Printf("  auto_escalate_patterns: %s\n", joinOrNone(cfg.Safety.AutoEscalatePatterns))
	fmt.Printf("  sensitive_topics: %s\n", joinOrNone(cfg.Safety.SensitiveTopics))

	fmt.Println("generation:")
	fmt.Printf("  server: %s\n", cfg.Generation.Server)
	fmt.Printf("  tool: %s\n", cfg.Generation.Tool)

	fmt.Println("platforms:")
	for name, spec := range cfg.Platforms {
		fmt.Printf("  %s: limit %d, tool %s/%s\n", name, spec.CharacterLimit, spec.ToolServer, spec.ToolName)
	}

	fmt.Println("servers:")
	if len(cfg.Servers) == 0 {
		fmt.Println("  (none configured)")
	}
	for name, spec := range cfg.Servers {
		fmt.Printf("  %s: %s %s\n", name, spec.Command, strings.Join(spec.Args, " "))
	}

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}

func joinOrNone(terms []string) string {
	if len(terms) == 0 {
		return "(none)"
	}
	return strings.Join(terms, ", ")
}
