// Package reasonllm provides the reasoning backend consumed by the planner.
// It wraps the gollm library (github.com/teilomillet/gollm) behind a small
// single-shot generation interface with bounded retry and error
// classification.
//
// The package deliberately exposes far less surface than a full LLM SDK:
// the planner needs exactly one capability, turning a prompt context into
// text, and everything else (providers, models, retry policy) is
// configuration.
//
// # Quick Start
//
//	backend, err := reasonllm.NewGollmBackend("openai", os.Getenv("OPENAI_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := backend.Generate(ctx, reasonllm.Request{
//	    System: "You are a planner.",
//	    Prompt: "Produce a plan as a JSON array.",
//	})
//
// Retry behavior is owned by this package, not gollm: transient failures
// (rate limits, server errors, network faults) are retried with exponential
// backoff up to the configured budget, while permanent failures
// (authentication, invalid requests) surface immediately.
package reasonllm
