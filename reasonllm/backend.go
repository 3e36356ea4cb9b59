package reasonllm

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"
)

// Request is a single-shot generation request.
type Request struct {
	System string // system instructions, may be empty
	Prompt string // the user-visible prompt context
}

// Backend turns a prompt context into generated text. Implementations must
// be safe for concurrent use; the orchestrator may drive multiple runs
// against one backend.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GollmBackend implements Backend on top of a gollm.LLM instance.
type GollmBackend struct {
	provider string
	llm      gollm.LLM
	policy   RetryPolicy
}

// GollmOption configures a GollmBackend.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	model       string
	maxTokens   int
	temperature float64
	policy      RetryPolicy
	extraOpts   []gollm.ConfigOption
}

// WithModel sets the model identifier.
func WithModel(model string) GollmOption {
	return func(c *gollmConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the generation token limit.
func WithMaxTokens(n int) GollmOption {
	return func(c *gollmConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature. Planning wants low
// temperature output; the default is 0.2.
func WithTemperature(t float64) GollmOption {
	return func(c *gollmConfig) {
		c.temperature = t
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) GollmOption {
	return func(c *gollmConfig) {
		c.policy = p
	}
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmBackend creates a backend for the given provider. If apiKey is
// empty, gollm reads it from the provider's environment variable.
func NewGollmBackend(provider, apiKey string, opts ...GollmOption) (*GollmBackend, error) {
	cfg := &gollmConfig{
		maxTokens:   4096,
		temperature: 0.2,
		policy:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-5-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retry policy is owned here, not by gollm
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmBackend{provider: provider, llm: llm, policy: cfg.policy}, nil
}

// NewGollmBackendFromLLM wraps an existing gollm.LLM instance.
func NewGollmBackendFromLLM(provider string, llm gollm.LLM) *GollmBackend {
	return &GollmBackend{provider: provider, llm: llm, policy: DefaultRetryPolicy()}
}

// Provider returns the provider identifier.
func (b *GollmBackend) Provider() string {
	return b.provider
}

// Generate sends the request and returns the generated text, retrying
// transient failures per the backend's policy.
func (b *GollmBackend) Generate(ctx context.Context, req Request) (string, error) {
	promptOpts := []gollm.PromptOption{}
	if req.System != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(req.System), gollm.CacheTypeEphemeral))
	}
	prompt := gollm.NewPrompt(req.Prompt, promptOpts...)

	return retry(ctx, b.policy, func(ctx context.Context) (string, error) {
		text, err := b.llm.Generate(ctx, prompt)
		if err != nil {
			return "", classifyError(b.provider, err)
		}
		return text, nil
	})
}
