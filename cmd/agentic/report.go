package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/martinemde/agentic/taskrun"
)

func printReport(report *taskrun.FinalReport) {
	fmt.Println()
	if report.Succeeded {
		color.Green("✓ goal achieved in %d step(s), %d planning cycle(s), %s",
			len(report.History), report.PlanningCycles, report.Duration.Round(time.Millisecond))
	} else {
		color.Red("✗ run failed: %s", report.FailureReason)
		if report.FailureDetail != "" {
			fmt.Printf("  %s\n", report.FailureDetail)
		}
	}

	if len(report.History) == 0 {
		return
	}
	fmt.Println("\nHistory:")
	for _, r := range report.History {
		status := color.GreenString("OK")
		detail := summarizeOutput(r.Output)
		if !r.Succeeded() {
			status = color.RedString("FAILED (%s)", r.Fault)
			detail = r.Error
		}
		fmt.Printf("  [%d.%d] %s %s %s\n", r.StepIndex, r.Attempt, r.Tool, status, detail)
	}
}

func printReportJSON(report *taskrun.FinalReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func summarizeOutput(v any) string {
	s, ok := v.(string)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		s = string(b)
	}
	const limit = 120
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
