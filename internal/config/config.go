// Package config defines the swarmgate configuration surface and loads it
// through viper from config files, environment variables, and defaults.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete swarmgate configuration.
type Config struct {
	Agent      Agent                   `mapstructure:"agent"`
	Planner    Planner                 `mapstructure:"planner"`
	Worker     Worker                  `mapstructure:"worker"`
	Judge      Judge                   `mapstructure:"judge"`
	Safety     Safety                  `mapstructure:"safety"`
	Generation Generation              `mapstructure:"generation"`
	Platforms  map[string]PlatformSpec `mapstructure:"platforms"`
	Servers    map[string]ServerSpec   `mapstructure:"servers"`
	Logging    Logging                 `mapstructure:"logging"`
	Paths      Paths                   `mapstructure:"paths"`
}

// Agent identifies this agent instance and its persona.
type Agent struct {
	// ID keys the instance's queues and state in shared infrastructure.
	ID string `mapstructure:"id"`
	// PersonaFile is the path to the persona definition file.
	PersonaFile string `mapstructure:"persona_file"`
}

// Planner controls the planning loop.
type Planner struct {
	// IntervalSeconds is the fixed planning cycle interval (default: 30).
	IntervalSeconds int `mapstructure:"interval_seconds"`
	// ScheduledPostHourUTC is the UTC hour at which daily scheduled content
	// is considered (default: 9).
	ScheduledPostHourUTC int `mapstructure:"scheduled_post_hour_utc"`
	// NewsServer and NewsURI locate the emergent-topic resource.
	NewsServer string `mapstructure:"news_server"`
	NewsURI    string `mapstructure:"news_uri"`
	// MentionsServer and MentionsURI locate the inbound mentions resource.
	MentionsServer string `mapstructure:"mentions_server"`
	MentionsURI    string `mapstructure:"mentions_uri"`
}

// Worker controls the worker pool.
type Worker struct {
	// Count is the number of worker loops to run (default: 2).
	Count int `mapstructure:"count"`
	// PopTimeoutSeconds bounds each blocking pop on the task queue (default: 5).
	PopTimeoutSeconds int `mapstructure:"pop_timeout_seconds"`
	// TaskDeadlineSeconds is the hard wall-clock budget for executing one
	// task (default: 60).
	TaskDeadlineSeconds int `mapstructure:"task_deadline_seconds"`
}

// Judge controls validation thresholds and decision side effects.
type Judge struct {
	// PopTimeoutSeconds bounds each blocking pop on the review queue (default: 5).
	PopTimeoutSeconds int `mapstructure:"pop_timeout_seconds"`
	// AutoApprove is the minimum confidence for automatic publication.
	// Must be >= HITLReview.
	AutoApprove float64 `mapstructure:"auto_approve"`
	// HITLReview is the minimum confidence for human escalation; below it
	// the result is rejected.
	HITLReview float64 `mapstructure:"hitl_review"`
	// DryRun logs publish actions instead of executing them.
	DryRun bool `mapstructure:"dry_run"`
}

// Safety lists the content filters evaluated in fixed order:
// banned -> auto-escalate -> sensitive.
type Safety struct {
	BannedKeywords       []string `mapstructure:"banned_keywords"`
	AutoEscalatePatterns []string `mapstructure:"auto_escalate_patterns"`
	SensitiveTopics      []string `mapstructure:"sensitive_topics"`
}

// PlatformSpec carries per-platform publishing constraints.
type PlatformSpec struct {
	// CharacterLimit is the maximum output length (default: 280).
	CharacterLimit int `mapstructure:"character_limit"`
	// ToolServer and ToolName select the publish tool for this platform.
	ToolServer string `mapstructure:"tool_server"`
	ToolName   string `mapstructure:"tool_name"`
}

// Generation selects the MCP tool that backs the text-generation
// capability.
type Generation struct {
	Server string `mapstructure:"server"`
	Tool   string `mapstructure:"tool"`
}

// ServerSpec describes how to launch an MCP server over stdio. The map key
// is the server name referenced by planner resources and platform tools.
type ServerSpec struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`
}

// Logging controls structured log output.
type Logging struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info").
	Level string `mapstructure:"level"`
	// Dir is where the log file is written; empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// Paths controls where swarmgate stores data.
type Paths struct {
	// DataDir holds queue snapshots. Empty disables queue persistence.
	DataDir string `mapstructure:"data_dir"`
}

// Interval returns the planning interval as a time.Duration.
func (p *Planner) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// PopTimeout returns the worker pop timeout as a time.Duration.
func (w *Worker) PopTimeout() time.Duration {
	return time.Duration(w.PopTimeoutSeconds) * time.Second
}

// TaskDeadline returns the per-task execution budget as a time.Duration.
func (w *Worker) TaskDeadline() time.Duration {
	return time.Duration(w.TaskDeadlineSeconds) * time.Second
}

// PopTimeout returns the judge pop timeout as a time.Duration.
func (j *Judge) PopTimeout() time.Duration {
	return time.Duration(j.PopTimeoutSeconds) * time.Second
}

// defaultCharacterLimit applies when a platform has no configured limit.
const defaultCharacterLimit = 280

// CharacterLimit returns the configured character limit for the named
// platform, falling back to the 280-character default.
func (c *Config) CharacterLimit(platform string) int {
	if spec, ok := c.Platforms[platform]; ok && spec.CharacterLimit > 0 {
		return spec.CharacterLimit
	}
	return defaultCharacterLimit
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Agent: Agent{
			ID:          "swarmgate",
			PersonaFile: "persona.md",
		},
		Planner: Planner{
			IntervalSeconds:      30,
			ScheduledPostHourUTC: 9,
			NewsServer:           "news",
			NewsURI:              "news://tech/latest",
			MentionsServer:       "x",
			MentionsURI:          "x://mentions/recent",
		},
		Worker: Worker{
			Count:               2,
			PopTimeoutSeconds:   5,
			TaskDeadlineSeconds: 60,
		},
		Judge: Judge{
			PopTimeoutSeconds: 5,
			AutoApprove:       0.85,
			HITLReview:        0.5,
			DryRun:            true,
		},
		Safety: Safety{
			BannedKeywords:       []string{},
			AutoEscalatePatterns: []string{},
			SensitiveTopics:      []string{},
		},
		Platforms: map[string]PlatformSpec{
			"x": {
				CharacterLimit: 280,
				ToolServer:     "x",
				ToolName:       "post_tweet",
			},
			"linkedin": {
				CharacterLimit: 3000,
				ToolServer:     "linkedin",
				ToolName:       "create_post",
			},
		},
		Generation: Generation{
			Server: "llm",
			Tool:   "generate_text",
		},
		Servers: map[string]ServerSpec{},
		Logging: Logging{
			Level: "info",
			Dir:   "",
		},
		Paths: Paths{
			DataDir: "",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("agent.id", defaults.Agent.ID)
	viper.SetDefault("agent.persona_file", defaults.Agent.PersonaFile)

	viper.SetDefault("planner.interval_seconds", defaults.Planner.IntervalSeconds)
	viper.SetDefault("planner.scheduled_post_hour_utc", defaults.Planner.ScheduledPostHourUTC)
	viper.SetDefault("planner.news_server", defaults.Planner.NewsServer)
	viper.SetDefault("planner.news_uri", defaults.Planner.NewsURI)
	viper.SetDefault("planner.mentions_server", defaults.Planner.MentionsServer)
	viper.SetDefault("planner.mentions_uri", defaults.Planner.MentionsURI)

	viper.SetDefault("worker.count", defaults.Worker.Count)
	viper.SetDefault("worker.pop_timeout_seconds", defaults.Worker.PopTimeoutSeconds)
	viper.SetDefault("worker.task_deadline_seconds", defaults.Worker.TaskDeadlineSeconds)

	viper.SetDefault("judge.pop_timeout_seconds", defaults.Judge.PopTimeoutSeconds)
	viper.SetDefault("judge.auto_approve", defaults.Judge.AutoApprove)
	viper.SetDefault("judge.hitl_review", defaults.Judge.HITLReview)
	viper.SetDefault("judge.dry_run", defaults.Judge.DryRun)

	viper.SetDefault("safety.banned_keywords", defaults.Safety.BannedKeywords)
	viper.SetDefault("safety.auto_escalate_patterns", defaults.Safety.AutoEscalatePatterns)
	viper.SetDefault("safety.sensitive_topics", defaults.Safety.SensitiveTopics)

	viper.SetDefault("generation.server", defaults.Generation.Server)
	viper.SetDefault("generation.tool", defaults.Generation.Tool)

	viper.SetDefault("platforms.x.character_limit", defaults.Platforms["x"].CharacterLimit)
	viper.SetDefault("platforms.x.tool_server", defaults.Platforms["x"].ToolServer)
	viper.SetDefault("platforms.x.tool_name", defaults.Platforms["x"].ToolName)
	viper.SetDefault("platforms.linkedin.character_limit", defaults.Platforms["linkedin"].CharacterLimit)
	viper.SetDefault("platforms.linkedin.tool_server", defaults.Platforms["linkedin"].ToolServer)
	viper.SetDefault("platforms.linkedin.tool_name", defaults.Platforms["linkedin"].ToolName)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "swarmgate")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swarmgate"
	}
	return filepath.Join(home, ".config", "swarmgate")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
