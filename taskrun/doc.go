// Package taskrun implements an autonomous task-execution loop.
//
// Given a natural-language goal, a Planner decomposes it into an ordered
// sequence of tool-invoking steps, an Executor carries out each step through
// a Registry, and results feed back into subsequent planning decisions
// until the goal is satisfied or blocked.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Registry: Named tool capabilities with declared input schemas,
//     configured once before any run and read-only afterwards.
//   - Planner: Turns a goal plus accumulated run history into an ordered
//     Plan, or a terminal directive when no further action is productive.
//   - Executor: Dispatches one step to its tool, converting every
//     tool-level fault into a failure StepResult rather than an error.
//   - Orchestrator: The finite state machine that owns run state, applies
//     retry and replanning policy under configured budgets, and produces
//     the FinalReport.
//
// # Quick Start
//
//	backend, _ := reasonllm.NewGollmBackend("openai", os.Getenv("OPENAI_API_KEY"))
//	reg := taskrun.NewRegistry()
//	taskrun.RegisterBuiltinTools(reg, taskrun.NewLocalEnvironment(""))
//
//	orc, err := taskrun.New(taskrun.NewLLMPlanner(backend), reg, taskrun.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report := orc.Run(ctx, "list the files in /tmp and summarize them")
//	fmt.Println(report.Succeeded)
//
// Steps within a run execute strictly sequentially. Independent runs may
// execute concurrently against the same Registry.
package taskrun
