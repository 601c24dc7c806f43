package llm

// modelPricing holds USD rates per 1M tokens, split by direction.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// fallbackPricingModel is used when a model has no table entry; the
// gateway logs a warning and bumps a metric when this happens.
const fallbackPricingModel = "gpt-4o-mini"

// pricePer1M mirrors the published per-model rates. Keep in sync with
// https://platform.openai.com/docs/pricing when adding models.
var pricePer1M = map[string]modelPricing{
	"gpt-4o":              {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini":         {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4-turbo":         {InputPerMillion: 10.00, OutputPerMillion: 30.00},
	"gpt-4-turbo-preview": {InputPerMillion: 10.00, OutputPerMillion: 30.00},
	"gpt-4":               {InputPerMillion: 30.00, OutputPerMillion: 60.00},
	"gpt-3.5-turbo":       {InputPerMillion: 0.50, OutputPerMillion: 1.50},
	"o1-mini":             {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"o4-mini":             {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"gpt-5":               {InputPerMillion: 1.25, OutputPerMillion: 10.00},
	"gpt-5-mini":          {InputPerMillion: 0.25, OutputPerMillion: 2.00},
}

// costFor computes the billed cost from the provider-reported token
// split. The second return reports whether the model was priced at the
// fallback model's rates.
func costFor(model string, inputTokens, outputTokens int) (float64, bool) {
	pricing, known := pricePer1M[model]
	if !known {
		pricing = pricePer1M[fallbackPricingModel]
	}

	cost := (float64(inputTokens)*pricing.InputPerMillion +
		float64(outputTokens)*pricing.OutputPerMillion) / 1_000_000

	return cost, !known
}
