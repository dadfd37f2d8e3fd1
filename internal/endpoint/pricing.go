package endpoint

import "github.com/bridgify/batchdispatch/config"

// estimateCost prices one call's usage against the configured
// per-model table, grounded on worker_llm_cost.go's CalculateCost.
// Unknown models fall back to the zero-value entry (no charge),
// matching the original's "unlisted model, no billing" behavior
// rather than guessing a price.
func estimateCost(pricing map[string]config.ModelPricing, model string, promptTokens, completionTokens int) float64 {
	rate, ok := pricing[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*rate.InputPer1K + float64(completionTokens)/1000*rate.OutputPer1K
}
