package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "agentic",
	Short: "Goal-driven task execution with an LLM planner",
	Long: `Agentic runs a goal through a plan/execute loop: an LLM planner
decomposes the goal into tool invocations, an executor dispatches them one
at a time, and the orchestrator retries, replans, or stops based on the
results. The loop is bounded; a run always ends with a final report.

Configuration is read from flags, AGENTIC_* environment variables, and an
optional .env file in the working directory. Provider API keys come from
the usual environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env or config file is fine; explicit environment and
		// flags always win.
		_ = godotenv.Load()
		viper.SetConfigName(".agentic")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		_ = viper.ReadInConfig()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("provider", "openai", "LLM provider (openai, anthropic, ollama, ...)")
	rootCmd.PersistentFlags().String("model", "", "Model identifier (provider default if empty)")
	rootCmd.PersistentFlags().String("workdir", "", "Working directory for file and shell tools (default: current directory)")

	viper.SetEnvPrefix("AGENTIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{"provider", "model", "workdir"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(toolsCmd)
}
