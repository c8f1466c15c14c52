package research

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safescan/pkg/anthropic"
)

// ErrGeneratorUnavailable is returned when no report generator is configured.
var ErrGeneratorUnavailable = eris.New("research: report generator not configured")

// Generator turns a research prompt into free text organized under the
// canonical "## " section headings.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// AnthropicGenerator generates reports with a Claude model.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// GeneratorConfig configures NewAnthropicGenerator.
type GeneratorConfig struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// NewAnthropicGenerator wraps client. A nil client yields a generator whose
// every call fails with ErrGeneratorUnavailable.
func NewAnthropicGenerator(client anthropic.Client, cfg GeneratorConfig) *AnthropicGenerator {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8000
	}
	return &AnthropicGenerator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrGeneratorUnavailable
	}
	temp := g.temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "research: generate report")
	}
	resp.Usage.LogCost(g.model, "deep_research")
	if resp.Truncated() {
		zap.L().Warn("research: report hit the token limit", zap.Int64("max_tokens", g.maxTokens))
	}
	return resp.Text(), nil
}
