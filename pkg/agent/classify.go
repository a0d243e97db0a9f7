package agent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/hoferino/dealintel/pkg/cache"
)

// classificationTTL is long-lived since classification is a pure function
// of message text; it only needs to expire to bound cache growth, not
// because the classification could go stale.
const classificationTTL = 24 * time.Hour

// IntentType is the closed set of intents the classifier assigns to the
// last user message, before any retrieval or tool loading happens.
type IntentType string

const (
	IntentFactual       IntentType = "factual"
	IntentAnalytical    IntentType = "analytical"
	IntentProcedural    IntentType = "procedural"
	IntentConversational IntentType = "conversational"
	IntentCorrection    IntentType = "correction"
)

// Complexity drives both tool-tier loading and model routing.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Classification is the classifier's verdict on one turn.
type Classification struct {
	Type            IntentType `json:"type"`
	Complexity      Complexity `json:"complexity"`
	Confidence      float64    `json:"confidence"`
	SuggestedTools  []string   `json:"suggested_tools"`
	SuggestedModel  string     `json:"suggested_model"`
}

var (
	greetingPattern    = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|thanks|thank you|bye|goodbye)\b`)
	metaPattern        = regexp.MustCompile(`(?i)\b(summarize our chat|what did (we|you) (just )?say|can you repeat)\b`)
	correctionPattern  = regexp.MustCompile(`(?i)\b(actually|i meant|not\s+\w+,|that'?s wrong|correction:|to clarify)\b`)
	quantifierPattern  = regexp.MustCompile(`(?i)\b(\d+(\.\d+)?%?|growth|margin|ebitda|revenue|multiple|compare|versus|vs\.?|trend|ratio)\b`)
	domainTermPattern  = regexp.MustCompile(`(?i)\b(revenue|ebitda|churn|arr|customer|contract|liability|covenant|valuation|synerg\w*|diligence)\b`)
	procedurePattern   = regexp.MustCompile(`(?i)\b(how do i|how to|what'?s the process|steps to|walk me through)\b`)
)

// Classifier assigns intent + complexity to the last user message in a
// turn, the pre-model step spec.md §4.8 describes. Results are cached by
// message hash since the same sentence classifies identically every time.
type Classifier struct {
	cache cache.Cache
}

// NewClassifier builds a Classifier backed by c for memoizing results.
func NewClassifier(c cache.Cache) *Classifier {
	return &Classifier{cache: c}
}

// Classify returns the cached classification for message if present,
// otherwise runs the heuristics below and caches the result for
// classificationTTL.
func (c *Classifier) Classify(ctx context.Context, message string) Classification {
	key := cacheMessageKey(message)
	var cached Classification
	if c.cache != nil {
		if hit, err := c.cache.Get(ctx, cache.NamespaceClassification, key, &cached); err == nil && hit {
			return cached
		}
	}

	result := classifyHeuristic(message)

	if c.cache != nil {
		_ = c.cache.Set(ctx, cache.NamespaceClassification, key, result, classificationTTL)
	}
	return result
}

func classifyHeuristic(message string) Classification {
	trimmed := strings.TrimSpace(message)

	switch {
	case correctionPattern.MatchString(trimmed):
		return Classification{
			Type:       IntentCorrection,
			Complexity: ComplexityMedium,
			Confidence: 0.75,
			SuggestedModel: routingTable[ComplexityMedium].Model,
		}
	case len(trimmed) < 40 && greetingPattern.MatchString(trimmed):
		return Classification{
			Type:       IntentConversational,
			Complexity: ComplexitySimple,
			Confidence: 0.9,
			SuggestedModel: routingTable[ComplexitySimple].Model,
		}
	case metaPattern.MatchString(trimmed):
		return Classification{
			Type:       IntentConversational,
			Complexity: ComplexitySimple,
			Confidence: 0.7,
			SuggestedModel: routingTable[ComplexitySimple].Model,
		}
	case procedurePattern.MatchString(trimmed):
		return Classification{
			Type:       IntentProcedural,
			Complexity: ComplexityMedium,
			Confidence: 0.6,
			SuggestedTools:  []string{"get_document_info"},
			SuggestedModel:  routingTable[ComplexityMedium].Model,
		}
	case domainTermPattern.MatchString(trimmed) && quantifierPattern.MatchString(trimmed):
		return Classification{
			Type:       IntentAnalytical,
			Complexity: ComplexityComplex,
			Confidence: 0.8,
			SuggestedTools:  []string{"search_knowledge_graph", "financial_ratio", "search_documents"},
			SuggestedModel:  routingTable[ComplexityComplex].Model,
		}
	case domainTermPattern.MatchString(trimmed):
		return Classification{
			Type:       IntentFactual,
			Complexity: ComplexityMedium,
			Confidence: 0.65,
			SuggestedTools:  []string{"search_documents", "get_finding"},
			SuggestedModel:  routingTable[ComplexityMedium].Model,
		}
	default:
		return Classification{
			Type:       IntentConversational,
			Complexity: ComplexitySimple,
			Confidence: 0.5,
			SuggestedModel: routingTable[ComplexitySimple].Model,
		}
	}
}

// skipsRetrieval reports whether the Select hook should skip retrieval for
// this classification — conversational/procedural turns and any turn the
// meta/greeting patterns already caught.
func (c Classification) skipsRetrieval() bool {
	return c.Type == IntentConversational || c.Type == IntentProcedural
}

func cacheMessageKey(message string) string {
	return cache.MessageHashKey(message)
}
