package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierFor_MapsComplexityToStartingTier(t *testing.T) {
	require.Equal(t, TierSimple, tierFor(ComplexitySimple))
	require.Equal(t, TierMedium, tierFor(ComplexityMedium))
	require.Equal(t, TierComplex, tierFor(ComplexityComplex))
}

func TestAllowsTool_SimpleTierLoadsNoTools(t *testing.T) {
	require.False(t, allowsTool(TierSimple, "search_documents"))
}

func TestAllowsTool_MediumTierExcludesComplexOnlyTools(t *testing.T) {
	require.True(t, allowsTool(TierMedium, "search_documents"))
	require.False(t, allowsTool(TierMedium, "financial_ratio"))
	require.False(t, allowsTool(TierMedium, "detect_contradiction"))
}

func TestAllowsTool_ComplexTierLoadsFullSet(t *testing.T) {
	for _, name := range toolTiers[TierComplex] {
		require.True(t, allowsTool(TierComplex, name))
	}
}

func TestEscalate_StepsUpOneTierAtATime(t *testing.T) {
	require.Equal(t, TierMedium, escalate(TierSimple))
	require.Equal(t, TierComplex, escalate(TierMedium))
}

func TestEscalate_StaysAtTopTier(t *testing.T) {
	require.Equal(t, TierComplex, escalate(TierComplex))
}

func TestToolsForTier_OnlyRendersLoadedNames(t *testing.T) {
	defs := toolsForTier(TierMedium)
	names := make(map[string]bool, len(defs))
	for _, d := range defs {
		names[d.Name] = true
	}
	require.True(t, names["search_documents"])
	require.False(t, names["financial_ratio"])
}
