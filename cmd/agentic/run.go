package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/martinemde/agentic/reasonllm"
	"github.com/martinemde/agentic/taskrun"
)

var (
	runMaxCycles       int
	runMaxStepRetries  int
	runStepTimeout     time.Duration
	runPlanningTimeout time.Duration
	runJSON            bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run a goal through the planning loop",
	Long: `Run a goal to completion. The planner decomposes the goal into steps
over the builtin tool set, the executor runs them in order, and failed
steps are retried and then replanned until the goal is met or a budget
runs out.

Examples:
  agentic run "list the files here and summarize what this project is"
  agentic run --provider anthropic "compute (17 * 4) - 3 and write the result to out.txt"`,
	Args: cobra.ExactArgs(1),
	RunE: runGoal,
}

func init() {
	defaults := taskrun.DefaultConfig()
	runCmd.Flags().IntVar(&runMaxCycles, "max-cycles", defaults.MaxPlanningCycles, "Maximum planner calls per run")
	runCmd.Flags().IntVar(&runMaxStepRetries, "max-step-retries", defaults.MaxStepRetries, "Extra attempts per failing step before replanning")
	runCmd.Flags().DurationVar(&runStepTimeout, "step-timeout", defaults.StepTimeout, "Timeout for a single tool invocation")
	runCmd.Flags().DurationVar(&runPlanningTimeout, "planning-timeout", defaults.PlanningTimeout, "Timeout for a single planner call")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the final report as JSON")
}

func runGoal(cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(args[0])
	if goal == "" {
		return fmt.Errorf("goal must not be empty")
	}

	backend, err := reasonllm.NewGollmBackend(
		viper.GetString("provider"),
		"", // resolved from the provider's environment variable
		reasonllm.WithModel(viper.GetString("model")),
	)
	if err != nil {
		return err
	}

	env := taskrun.NewLocalEnvironment(viper.GetString("workdir"))
	registry := taskrun.NewRegistry()
	if err := taskrun.RegisterBuiltinTools(registry, env); err != nil {
		return err
	}

	cfg := taskrun.Config{
		MaxPlanningCycles: runMaxCycles,
		MaxStepRetries:    runMaxStepRetries,
		StepTimeout:       runStepTimeout,
		PlanningTimeout:   runPlanningTimeout,
	}
	orch, err := taskrun.New(taskrun.NewLLMPlanner(backend), registry, cfg,
		taskrun.WithEventSink(printEvent))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := orch.Run(ctx, goal)
	if runJSON {
		return printReportJSON(report)
	}
	printReport(report)
	if !report.Succeeded {
		os.Exit(1)
	}
	return nil
}

func printEvent(ev taskrun.RunEvent) {
	switch ev.Kind {
	case taskrun.EventPlanningStart:
		color.Cyan("» planning (cycle %v)", ev.Data["cycle"])
	case taskrun.EventPlanAdopted:
		color.Cyan("» plan adopted: %v step(s)", ev.Data["steps"])
	case taskrun.EventStepStart:
		fmt.Printf("  step %v: %v (attempt %v)\n", ev.Data["index"], ev.Data["tool"], ev.Data["attempt"])
	case taskrun.EventStepEnd:
		color.Green("  ✓ step %v done in %v", ev.Data["index"], ev.Data["duration"])
	case taskrun.EventStepRetry:
		color.Yellow("  ↻ step %v failed (%v), retrying (attempt %v)", ev.Data["index"], ev.Data["fault"], ev.Data["attempt"])
	case taskrun.EventReplan:
		color.Yellow("  ✗ step %v failed (%v), replanning", ev.Data["index"], ev.Data["fault"])
	case taskrun.EventNoFurtherAction:
		color.Cyan("» planner: %v", ev.Data["reason"])
	}
}
