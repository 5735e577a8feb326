package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	backlogcmd "github.com/Iron-Ham/hivemind/internal/cmd/backlog"
	configcmd "github.com/Iron-Ham/hivemind/internal/cmd/config"
	"github.com/Iron-Ham/hivemind/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "Shared-log coordinator for a hive of analysis workers",
	Long: `Hive coordinates a team of specialist workers through one append-only
event log per session. A queen plans and assigns the work, audits every
worker's output, re-spawns or escalates failures and hands the finished
session to synthesis.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/hive/config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "workspace root holding .hive (default is the current directory)")
	rootCmd.PersistentFlags().String("log-level", "", "debug log level (debug/info/warn/error)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("paths.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	configcmd.Register(rootCmd)
	backlogcmd.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HIVE")
	// HIVE_COORDINATION_MAX_RESPAWNS for coordination.max_respawns
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
