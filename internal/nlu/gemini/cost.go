package gemini

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing is USD per 1M text tokens.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// Cost is the USD spent on one model call.
type Cost struct {
	Input  float64
	Output float64
}

func (c Cost) Total() float64 { return c.Input + c.Output }

// Keys are model name prefixes; the longest match wins so that
// "gemini-2.5-flash-lite" is not billed as "gemini-2.5-flash".
var pricingTable = map[string]Pricing{
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
}

// ResolvePricing looks up model, tolerating a "models/" prefix and version
// suffixes such as "-001". Unknown models cost nothing.
func ResolvePricing(model string) Pricing {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(model)), "models/")
	var (
		best    Pricing
		bestLen int
	)
	for prefix, p := range pricingTable {
		if strings.HasPrefix(name, prefix) && len(prefix) > bestLen {
			best, bestLen = p, len(prefix)
		}
	}
	return best
}

func (p Pricing) Cost(usage *schema.TokenUsage) Cost {
	if usage == nil {
		return Cost{}
	}
	return Cost{
		Input:  p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0,
		Output: p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0,
	}
}
