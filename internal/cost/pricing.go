// Package cost estimates run cost from token usage and a static model
// pricing table.
package cost

import "math"

// ModelPricing is the price per million tokens for a single model, in USD.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// pricingTable maps model ids to their per-million-token prices.
var pricingTable = map[string]ModelPricing{
	// OpenAI models
	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	// Anthropic models
	"claude-sonnet-4-5": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku-4-5":  {InputPerMillion: 1.00, OutputPerMillion: 5.00},
}

// modelAliases maps dated model versions to the base model that carries
// their pricing. The table is maintained manually; no alias resolution is
// derived from provider responses.
var modelAliases = map[string]string{
	"claude-sonnet-4-5-20250929": "claude-sonnet-4-5",
	"claude-haiku-4-5-20241022":  "claude-haiku-4-5",
}

// Estimate returns the estimated USD cost for the given token counts,
// rounded to 6 decimal places, or nil when the model has no pricing entry.
// Unknown cost stays nil throughout the pipeline; it is never zero.
func Estimate(model string, inputTokens, outputTokens int) *float64 {
	resolved := model
	if base, ok := modelAliases[model]; ok {
		resolved = base
	}
	pricing, ok := pricingTable[resolved]
	if !ok {
		return nil
	}
	c := float64(inputTokens)/1_000_000*pricing.InputPerMillion +
		float64(outputTokens)/1_000_000*pricing.OutputPerMillion
	c = math.Round(c*1e6) / 1e6
	return &c
}

// Known reports whether the model (or an alias of it) has a pricing entry.
func Known(model string) bool {
	resolved := model
	if base, ok := modelAliases[model]; ok {
		resolved = base
	}
	_, ok := pricingTable[resolved]
	return ok
}
