package retriever

import (
	"context"
	"testing"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
	"github.com/dominicdesy/intelia-expert-sub005/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Disable()
	m.Run()
}

type fakeEmbed struct{ vec []float32 }

func (f fakeEmbed) Embed(context.Context, string) []float32 { return f.vec }
func (f fakeEmbed) Dimensions() int                         { return len(f.vec) }

type fakeStore struct {
	// responses keyed by whether the age filter is present
	withAge    []schema.SearchResult
	withoutAge []schema.SearchResult
	keyword    []schema.SearchResult

	vectorCalls  []map[string]string
	keywordCalls [][]string
}

func (f *fakeStore) SearchVectors(_ context.Context, _ []float32, opts schema.SearchOptions) ([]schema.SearchResult, error) {
	f.vectorCalls = append(f.vectorCalls, opts.Filter)
	if opts.Filter["age_days"] != "" {
		return f.withAge, nil
	}
	return f.withoutAge, nil
}

func (f *fakeStore) SearchKeywords(_ context.Context, terms []string, _ schema.SearchOptions) ([]schema.SearchResult, error) {
	f.keywordCalls = append(f.keywordCalls, terms)
	return f.keyword, nil
}

func (f *fakeStore) Close() error { return nil }

func doc(title, source string, score float64) schema.SearchResult {
	return schema.SearchResult{
		Document: schema.Document{
			Content:  "passage " + title,
			Metadata: map[string]string{"title": title, "source": source},
		},
		Score: score,
	}
}

func newHybrid(store *fakeStore) *Hybrid {
	cfg := config.DefaultPipeline()
	cfg.ConfidenceThreshold = 0.55
	return New(fakeEmbed{vec: []float32{0.1, 0.2}}, store, vocab.Default(), cfg)
}

func metricIntent() schema.IntentResult {
	return schema.IntentResult{
		Intent:     schema.IntentMetric,
		Confidence: 0.9,
		Entities:   map[string]string{"breed": "ross 308", "age_days": "35", "metric": "body_weight"},
	}
}

func TestSearchHappyPath(t *testing.T) {
	store := &fakeStore{withAge: []schema.SearchResult{
		doc("bw-targets", "manual", 0.82),
		doc("fcr-table", "manual", 0.61),
	}}
	h := newHybrid(store)

	results, info, err := h.Search(context.Background(), schema.Query{Text: "ross 308 weight at 35 days"}, metricIntent(), 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, info.AgeFallbackUsed)
	assert.False(t, info.KeywordFallbackUsed)
	// entity filter was passed through
	require.Len(t, store.vectorCalls, 1)
	assert.Equal(t, "35", store.vectorCalls[0]["age_days"])
	assert.Equal(t, "ross 308", store.vectorCalls[0]["breed"])
	// sorted descending
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearchAgeRelaxedRetry(t *testing.T) {
	store := &fakeStore{
		withAge:    nil,
		withoutAge: []schema.SearchResult{doc("bw-targets", "manual", 0.78)},
	}
	h := newHybrid(store)

	results, info, err := h.Search(context.Background(), schema.Query{Text: "ross 308 weight at 35 days"}, metricIntent(), 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, info.AgeFallbackUsed)
	require.Len(t, store.vectorCalls, 2)
	// the retry keeps every entity except the age bucket
	assert.Empty(t, store.vectorCalls[1]["age_days"])
	assert.Equal(t, "ross 308", store.vectorCalls[1]["breed"])
}

func TestSearchKeywordFallbackMergesAndDedups(t *testing.T) {
	store := &fakeStore{
		withAge:    []schema.SearchResult{doc("bw-targets", "manual", 0.40)},
		withoutAge: []schema.SearchResult{doc("bw-targets", "manual", 0.40)},
		keyword: []schema.SearchResult{
			doc("bw-targets", "manual", 0.9), // duplicate of the vector hit
			doc("grower-guide", "handbook", 0.8),
		},
	}
	h := newHybrid(store)

	results, info, err := h.Search(context.Background(), schema.Query{Text: "broiler weight targets"}, metricIntent(), 0)
	require.NoError(t, err)
	assert.True(t, info.KeywordFallbackUsed)

	titles := map[string]int{}
	for _, r := range results {
		titles[r.Title()]++
	}
	// the duplicate keyword hit collapsed onto the vector hit
	assert.LessOrEqual(t, titles["bw-targets"], 1)
	assert.Equal(t, 1, titles["grower-guide"])
}

func TestMergeDedup(t *testing.T) {
	primary := []schema.SearchResult{doc("a", "s1", 0.9)}
	secondary := []schema.SearchResult{
		doc("a", "s1", 0.8), // duplicate
		doc("b", "s2", 0.7),
	}
	merged := mergeDedup(primary, secondary)
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].Title())
	assert.Equal(t, "b", merged[1].Title())

	// untitled documents dedup by id instead
	d1 := schema.SearchResult{Document: schema.Document{ID: "x", Content: "c1"}}
	d2 := schema.SearchResult{Document: schema.Document{ID: "x", Content: "c1 copy"}}
	merged = mergeDedup([]schema.SearchResult{d1}, []schema.SearchResult{d2})
	assert.Len(t, merged, 1)
}

func TestSearchKeywordTermsAreDomainTokens(t *testing.T) {
	store := &fakeStore{}
	h := newHybrid(store)

	_, _, err := h.Search(context.Background(), schema.Query{Text: "broiler mortality in the barn"}, schema.IntentResult{}, 0)
	require.NoError(t, err)
	require.Len(t, store.keywordCalls, 1)
	assert.Contains(t, store.keywordCalls[0], "broiler")
	assert.Contains(t, store.keywordCalls[0], "mortality")
	assert.NotContains(t, store.keywordCalls[0], "the")
}

func TestEffectiveThresholdHighTopRaises(t *testing.T) {
	h := newHybrid(&fakeStore{})
	base := h.baseThreshold

	eff := h.effectiveThreshold([]schema.SearchResult{{Score: 0.95}}, false)
	assert.Greater(t, eff, base)

	// monotonic: a higher top never lowers the threshold
	prev := 0.0
	for _, top := range []float64{0.85, 0.88, 0.91, 0.94, 0.99} {
		eff := h.effectiveThreshold([]schema.SearchResult{{Score: top}}, false)
		assert.GreaterOrEqual(t, eff, prev)
		prev = eff
	}
}

func TestEffectiveThresholdWeakKeywordLowers(t *testing.T) {
	h := newHybrid(&fakeStore{})
	base := h.baseThreshold

	eff := h.effectiveThreshold([]schema.SearchResult{{Score: 0.4}}, true)
	assert.Less(t, eff, base)

	// without keyword fallback the bar does not drop
	eff = h.effectiveThreshold([]schema.SearchResult{{Score: 0.4}}, false)
	assert.Equal(t, base, eff)

	// monotonic in the top score
	prev := 0.0
	for _, top := range []float64{0.1, 0.3, 0.5, 0.65} {
		eff := h.effectiveThreshold([]schema.SearchResult{{Score: top}}, true)
		assert.GreaterOrEqual(t, eff, prev)
		prev = eff
	}
}

func TestSearchRespectsTopK(t *testing.T) {
	var many []schema.SearchResult
	for i := 0; i < 20; i++ {
		many = append(many, doc("t", "s", 0.9))
	}
	store := &fakeStore{withAge: many, withoutAge: many}
	h := newHybrid(store)

	results, _, err := h.Search(context.Background(), schema.Query{Text: "broiler weight"}, schema.IntentResult{}, 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 5)
}
