package anthropic

import "go.uber.org/zap"

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Total is every token billed for the call.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// price is USD per million tokens.
type price struct {
	in, out float64
}

const (
	cacheWriteMultiplier = 1.25
	cacheReadMultiplier  = 0.1
)

var prices = map[string]price{
	"claude-haiku-4-5-20251001":  {in: 1, out: 5},
	"claude-sonnet-4-20250514":   {in: 3, out: 15},
	"claude-sonnet-4-5-20250929": {in: 3, out: 15},
	"claude-opus-4-1-20250805":   {in: 15, out: 75},
}

// EstimateCost returns the approximate USD cost of u on model, or 0 for a
// model without a known price.
func (u TokenUsage) EstimateCost(model string) float64 {
	p, ok := prices[model]
	if !ok {
		return 0
	}
	perTok := func(n int64, rate float64) float64 { return float64(n) / 1e6 * rate }
	return perTok(u.InputTokens, p.in) +
		perTok(u.OutputTokens, p.out) +
		perTok(u.CacheCreationInputTokens, p.in*cacheWriteMultiplier) +
		perTok(u.CacheReadInputTokens, p.in*cacheReadMultiplier)
}

// LogCost records usage for one call under phase.
func (u TokenUsage) LogCost(model, phase string, fields ...zap.Field) {
	zap.L().Info("anthropic: usage", append([]zap.Field{
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("total_tokens", u.Total()),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	}, fields...)...)
}
