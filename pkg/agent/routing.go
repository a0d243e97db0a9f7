package agent

// ModelRoute is one row of the complexity → (provider, model, max_tokens,
// temperature) routing matrix, with a declared fallback used when the
// primary provider fails (pkg/llmprovider.Provider already implements the
// retry-then-fallback mechanics; this table only supplies the parameters).
type ModelRoute struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64

	FallbackProvider string
	FallbackModel    string
}

// routingTable maps each Complexity tier to its model route. Simple turns
// get a fast, cheap model with a short budget; complex turns get the
// largest model and the most generous token budget, since they may carry
// a supervisor/specialist round trip.
var routingTable = map[Complexity]ModelRoute{
	ComplexitySimple: {
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		MaxTokens:        512,
		Temperature:      0.3,
		FallbackProvider: "anthropic",
		FallbackModel:    "claude-3-5-haiku",
	},
	ComplexityMedium: {
		Provider:         "openai",
		Model:            "gpt-4o",
		MaxTokens:        1536,
		Temperature:      0.2,
		FallbackProvider: "anthropic",
		FallbackModel:    "claude-3-5-sonnet",
	},
	ComplexityComplex: {
		Provider:         "anthropic",
		Model:            "claude-3-5-sonnet",
		MaxTokens:        4096,
		Temperature:      0.1,
		FallbackProvider: "openai",
		FallbackModel:    "gpt-4o",
	},
}

// RouteFor returns the routing-table entry for complexity, defaulting to
// the medium tier for an unrecognized value rather than panicking on a map
// miss — callers always get a usable route.
func RouteFor(complexity Complexity) ModelRoute {
	if r, ok := routingTable[complexity]; ok {
		return r
	}
	return routingTable[ComplexityMedium]
}
