// Package cmd wires the roundtable CLI: starting, resuming, and inspecting
// conversations.
package cmd

import (
	"strings"

	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "roundtable",
	Short: "Multi-agent decision orchestrator",
	Long: `Roundtable drives a small team of language-model-backed participants
through a structured conversation: exploration, discussion, and a weighted
vote, ending in an agreed decision. Conversations pause for human input and
resume exactly where they left off.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/roundtable/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
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
		viper.AddConfigPath("$HOME/.config/roundtable")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ROUNDTABLE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., ROUNDTABLE_BACKENDS_PREFERRED for backends.preferred
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
