// Package cmd implements the swarmgate command line interface.
package cmd

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/outpost-labs/swarmgate/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "swarmgate",
	Short: "Autonomous content agent with a governed publishing pipeline",
	Long: `Swarmgate runs a planner/worker/judge swarm for one agent persona:
the planner turns news and mentions into tasks, workers draft content,
and the judge gates everything behind safety and confidence checks
before it ever reaches a platform.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/swarmgate/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// A local .env can carry server credentials; absence is fine.
	_ = godotenv.Load()

	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/swarmgate")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SWARMGATE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SWARMGATE_JUDGE_DRY_RUN for judge.dry_run
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
