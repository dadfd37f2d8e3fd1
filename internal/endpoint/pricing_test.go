package endpoint

import (
	"testing"

	"github.com/bridgify/batchdispatch/config"
)

func TestEstimateCostKnownModel(t *testing.T) {
	pricing := map[string]config.ModelPricing{
		"gpt-4o-mini": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	}
	cost := estimateCost(pricing, "gpt-4o-mini", 1000, 1000)
	want := 0.00015 + 0.0006
	if cost != want {
		t.Errorf("expected cost %v, got %v", want, cost)
	}
}

func TestEstimateCostUnknownModelIsFree(t *testing.T) {
	pricing := map[string]config.ModelPricing{}
	cost := estimateCost(pricing, "mystery-model", 1000, 1000)
	if cost != 0 {
		t.Errorf("expected zero cost for unlisted model, got %v", cost)
	}
}
