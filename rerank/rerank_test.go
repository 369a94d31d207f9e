package rerank

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominicdesy/intelia-expert-sub005/common/httpx"
	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

func TestMain(m *testing.M) {
	logger.Disable()
	m.Run()
}

func candidate(content string, score float64, md map[string]string) schema.SearchResult {
	return schema.SearchResult{
		Document: schema.Document{Content: content, Metadata: md},
		Score:    score,
	}
}

func newReranker(endpoint string) *Reranker {
	cfg := config.DefaultPipeline()
	cfg.RerankEndpoint = endpoint
	var client *httpx.Client
	if endpoint != "" {
		client = httpx.NewFromConfig(config.HTTPClientConfig{TimeoutMs: 500})
	}
	return New(cfg, client, nil)
}

func distinctDocs(n int) []schema.SearchResult {
	out := make([]schema.SearchResult, n)
	for i := range out {
		out[i] = candidate(
			fmt.Sprintf("unique passage number %d about topic%d and subject%d", i, i, i),
			0.9-float64(i)*0.05, nil)
	}
	return out
}

func TestRerankEmptyInput(t *testing.T) {
	assert.Nil(t, newReranker("").Rerank(context.Background(), "q", nil, schema.IntentResult{}))
}

func TestRerankOutputBound(t *testing.T) {
	out := newReranker("").Rerank(context.Background(), "q", distinctDocs(15), schema.IntentResult{})
	assert.Len(t, out, 8)
}

func TestSemanticStageBlends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// invert the order: last document is most relevant
		w.Write([]byte(`{"results":[{"index":0,"relevance_score":0.1},{"index":4,"relevance_score":1.0}]}`))
	}))
	defer srv.Close()

	in := distinctDocs(5)
	out := newReranker(srv.URL).Rerank(context.Background(), "q", in, schema.IntentResult{})
	require.NotEmpty(t, out)

	// doc 4: 0.3*0.7 + 0.7*1.0 = 0.91, doc 0: 0.3*0.9 + 0.7*0.1 = 0.34
	assert.Equal(t, in[4].Document.Content, out[0].Document.Content)
	assert.InDelta(t, 0.91, out[0].Score, 1e-9)
}

func TestSemanticStageSkippedUnderMinimum(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	r := newReranker(srv.URL)
	r.Rerank(context.Background(), "q", distinctDocs(3), schema.IntentResult{})
	assert.False(t, called)

	r.ForceSemantic = true
	r.Rerank(context.Background(), "q", distinctDocs(3), schema.IntentResult{})
	assert.True(t, called)
}

func TestSemanticStageFailurePassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	in := distinctDocs(6)
	out := newReranker(srv.URL).Rerank(context.Background(), "q", in, schema.IntentResult{})
	require.NotEmpty(t, out)
	// original order and scores survive
	assert.Equal(t, in[0].Document.Content, out[0].Document.Content)
	assert.Equal(t, in[0].Score, out[0].Score)
}

func TestBoostStage(t *testing.T) {
	intent := schema.IntentResult{Entities: map[string]string{
		"breed": "ross 308", "age_days": "35",
	}}
	in := []schema.SearchResult{
		candidate("generic broiler guidance text here", 0.50, nil),
		candidate("ross targets at thirty five days", 0.50, map[string]string{"breed": "ross 308", "age_days": "35"}),
	}
	out := newReranker("").Rerank(context.Background(), "q", in, intent)
	require.Len(t, out, 2)

	// 0.50 * 1.4 * 1.25 = 0.875
	assert.Equal(t, "ross targets at thirty five days", out[0].Document.Content)
	assert.InDelta(t, 0.875, out[0].Score, 1e-9)
	assert.InDelta(t, 0.50, out[1].Score, 1e-9)
}

func TestBoostClampedToOne(t *testing.T) {
	intent := schema.IntentResult{Entities: map[string]string{
		"breed": "ross 308", "species": "broiler", "age_days": "35", "phase": "grower",
	}}
	md := map[string]string{"breed": "ross 308", "species": "broiler", "age_days": "35", "phase": "grower"}
	in := []schema.SearchResult{candidate("everything matches", 0.9, md)}

	out := newReranker("").Rerank(context.Background(), "q", in, intent)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].Score)
}

func TestDiversityStageDropsNearDuplicates(t *testing.T) {
	in := []schema.SearchResult{
		candidate("target weight ross 308 males 35 days 2200 g", 0.9, nil),
		candidate("target weight ross 308 males 35 days 2200 grams", 0.8, nil), // near duplicate
		candidate("ventilation rates and litter management in winter housing", 0.7, nil),
	}
	out := newReranker("").Rerank(context.Background(), "q", in, schema.IntentResult{})
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Document.Content, out[0].Document.Content)
	assert.Equal(t, in[2].Document.Content, out[1].Document.Content)
}

func TestDiversityPairwiseBound(t *testing.T) {
	var in []schema.SearchResult
	for i := 0; i < 12; i++ {
		in = append(in, candidate(
			fmt.Sprintf("shared broiler weight words plus token%d filler%d extra%d", i, i, i),
			0.9-float64(i)*0.01, nil))
	}
	r := newReranker("")
	out := r.Rerank(context.Background(), "q", in, schema.IntentResult{})

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			o := overlap(tokenSet(out[i].Document.Content), tokenSet(out[j].Document.Content))
			assert.Less(t, o, r.diversity)
		}
	}
}

func TestRerankWithWorkerPool(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	cfg := config.DefaultPipeline()
	r := New(cfg, nil, pool)
	out := r.Rerank(context.Background(), "q", distinctDocs(10), schema.IntentResult{})
	assert.Len(t, out, 8)
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	in := distinctDocs(5)
	before := in[0].Score
	newReranker("").Rerank(context.Background(), "q", in, schema.IntentResult{})
	assert.Equal(t, before, in[0].Score)
}
