package agent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoferino/dealintel/pkg/llmprovider"
)

func TestCompressHistory_LeavesShortHistoryUntouched(t *testing.T) {
	rt := &Runtime{}
	history := make([]llmprovider.ConversationMessage, 10)
	for i := range history {
		history[i] = llmprovider.ConversationMessage{Role: "user", Content: "hi"}
	}
	out, err := rt.compressHistory(nil, history)
	require.NoError(t, err)
	require.Equal(t, history, out)
}

func TestSummaryCacheKey_IsStableForSamePrefix(t *testing.T) {
	messages := []llmprovider.ConversationMessage{{Role: "user", Content: "hello"}}
	require.Equal(t, summaryCacheKey(messages), summaryCacheKey(messages))
}

func TestRouteFor_UnknownComplexityDefaultsToMedium(t *testing.T) {
	require.Equal(t, routingTable[ComplexityMedium], RouteFor(Complexity("bogus")))
}
