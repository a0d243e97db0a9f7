package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoferino/dealintel/pkg/cache"
)

type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string][]byte{}} }

func (f *fakeCache) Get(ctx context.Context, ns cache.Namespace, key string, dest any) (bool, error) {
	return false, nil
}
func (f *fakeCache) Set(ctx context.Context, ns cache.Namespace, key string, value any, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) Delete(ctx context.Context, ns cache.Namespace, key string) error { return nil }

func TestClassify_GreetingIsSimpleConversational(t *testing.T) {
	c := NewClassifier(newFakeCache())
	result := c.Classify(context.Background(), "Hi there")
	require.Equal(t, IntentConversational, result.Type)
	require.Equal(t, ComplexitySimple, result.Complexity)
}

func TestClassify_DomainTermsWithQuantifierAreComplexAnalytical(t *testing.T) {
	c := NewClassifier(newFakeCache())
	result := c.Classify(context.Background(), "Compare revenue growth vs. EBITDA margin over the last 3 years")
	require.Equal(t, IntentAnalytical, result.Type)
	require.Equal(t, ComplexityComplex, result.Complexity)
}

func TestClassify_CorrectionPhraseIsCorrectionIntent(t *testing.T) {
	c := NewClassifier(newFakeCache())
	result := c.Classify(context.Background(), "Actually, the churn rate is 4%, not 6%")
	require.Equal(t, IntentCorrection, result.Type)
}

func TestClassify_PlainDomainQuestionIsFactualMedium(t *testing.T) {
	c := NewClassifier(newFakeCache())
	result := c.Classify(context.Background(), "What's the customer contract renewal date?")
	require.Equal(t, IntentFactual, result.Type)
	require.Equal(t, ComplexityMedium, result.Complexity)
}

func TestSkipsRetrieval_ConversationalAndProceduralOnly(t *testing.T) {
	require.True(t, Classification{Type: IntentConversational}.skipsRetrieval())
	require.True(t, Classification{Type: IntentProcedural}.skipsRetrieval())
	require.False(t, Classification{Type: IntentFactual}.skipsRetrieval())
	require.False(t, Classification{Type: IntentAnalytical}.skipsRetrieval())
}
