// Package rerank reorders retrieval candidates in three stages:
// external semantic re-scoring, entity-based boosting, and a greedy
// diversity filter.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/dominicdesy/intelia-expert-sub005/common/httpx"
	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/gate"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

// Reranker applies the three stages. Every stage degrades to a
// passthrough on failure; reranking never loses the candidate list.
type Reranker struct {
	client *httpx.Client
	pool   *ants.Pool

	endpoint string
	apiKey   string
	model    string

	blend     float64 // weight of the external score
	minDocs   int     // stage 1 skipped below this unless forced
	topN      int
	diversity float64
	boosts    map[string]float64

	// ForceSemantic runs stage 1 even under the candidate minimum.
	ForceSemantic bool
}

func New(cfg config.PipelineConfig, client *httpx.Client, pool *ants.Pool) *Reranker {
	return &Reranker{
		client:    client,
		pool:      pool,
		endpoint:  cfg.RerankEndpoint,
		apiKey:    cfg.RerankAPIKey,
		model:     cfg.RerankModel,
		blend:     cfg.RerankBlend,
		minDocs:   cfg.RerankMinDocs,
		topN:      cfg.RerankTopN,
		diversity: cfg.DiversityCutoff,
		boosts:    cfg.BoostMultipliers,
	}
}

// Rerank returns at most topN results sorted by final score. The input
// slice is not mutated.
func (r *Reranker) Rerank(ctx context.Context, query string, in []schema.SearchResult, intent schema.IntentResult) []schema.SearchResult {
	if len(in) == 0 {
		return nil
	}
	out := make([]schema.SearchResult, len(in))
	copy(out, in)

	out = r.semanticStage(ctx, query, out)
	out = r.boostStage(out, intent)
	sortByScore(out)
	out = r.diversityStage(out)

	if len(out) > r.topN {
		out = out[:r.topN]
	}
	return out
}

type rerankReq struct {
	Query     string   `json:"query"`
	Model     string   `json:"model,omitempty"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResp struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"relevance_score"`
	} `json:"results"`
}

// semanticStage re-scores candidates through the external cross-encoder
// and blends the new score with the retrieval score. Any failure keeps
// the original scores.
func (r *Reranker) semanticStage(ctx context.Context, query string, in []schema.SearchResult) []schema.SearchResult {
	if r.endpoint == "" {
		return in
	}
	if len(in) < r.minDocs && !r.ForceSemantic {
		return in
	}

	docs := make([]string, len(in))
	for i, c := range in {
		docs[i] = c.Document.Content
	}
	body, err := json.Marshal(rerankReq{Query: query, Model: r.model, Documents: docs, TopN: len(in)})
	if err != nil {
		return in
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return in
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Warnf("rerank: service call failed, keeping retrieval order: %v", err)
		return in
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warnf("rerank: service returned %d, keeping retrieval order", resp.StatusCode)
		return in
	}
	var rr rerankResp
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil || len(rr.Results) == 0 {
		logger.Warnf("rerank: bad response payload: %v", err)
		return in
	}

	for _, res := range rr.Results {
		if res.Index < 0 || res.Index >= len(in) {
			continue
		}
		c := &in[res.Index]
		c.Score = (1-r.blend)*c.Score + r.blend*clamp01(res.Score)
	}
	return in
}

// boostStage multiplies scores for documents whose metadata matches the
// extracted entities. Factors compose; the result clamps to 1.0.
func (r *Reranker) boostStage(in []schema.SearchResult, intent schema.IntentResult) []schema.SearchResult {
	if len(intent.Entities) == 0 {
		return in
	}
	for i := range in {
		md := in[i].Document.Metadata
		factor := 1.0
		if b := intent.Entities["breed"]; b != "" && strings.EqualFold(md["breed"], b) {
			factor *= r.boost("breed", 1.4)
		}
		if s := intent.Entities["species"]; s != "" && strings.EqualFold(md["species"], s) {
			factor *= r.boost("species", 1.3)
		}
		if a := intent.Entities["age_days"]; a != "" && md["age_days"] == a {
			factor *= r.boost("age", 1.25)
		}
		if p := intent.Entities["phase"]; p != "" && strings.EqualFold(md["phase"], p) {
			factor *= r.boost("phase", 1.3)
		}
		in[i].Score = clamp01(in[i].Score * factor)
	}
	return in
}

func (r *Reranker) boost(key string, fallback float64) float64 {
	if f, ok := r.boosts[key]; ok {
		return f
	}
	return fallback
}

// diversityStage keeps the highest-scored documents whose token overlap
// with every already-kept document stays under the cutoff. Token sets
// are computed on the shared worker pool.
func (r *Reranker) diversityStage(in []schema.SearchResult) []schema.SearchResult {
	if len(in) <= 1 {
		return in
	}
	sets := r.tokenSets(in)

	kept := in[:0:0]
	keptSets := make([]map[string]bool, 0, len(in))
	for i, c := range in {
		redundant := false
		for _, ks := range keptSets {
			if overlap(sets[i], ks) >= r.diversity {
				redundant = true
				break
			}
		}
		if redundant {
			continue
		}
		kept = append(kept, c)
		keptSets = append(keptSets, sets[i])
	}
	return kept
}

func (r *Reranker) tokenSets(in []schema.SearchResult) []map[string]bool {
	sets := make([]map[string]bool, len(in))
	if r.pool == nil {
		for i, c := range in {
			sets[i] = tokenSet(c.Document.Content)
		}
		return sets
	}
	var wg sync.WaitGroup
	for i := range in {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			sets[i] = tokenSet(in[i].Document.Content)
		}
		if err := r.pool.Submit(task); err != nil {
			// pool saturated or closed: compute inline
			task()
		}
	}
	wg.Wait()
	return sets
}

func tokenSet(content string) map[string]bool {
	tokens := gate.Tokenize(strings.ToLower(content))
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// overlap is |A ∩ B| over the smaller set size.
func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for t := range small {
		if large[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

func sortByScore(in []schema.SearchResult) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Score > in[j].Score })
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
