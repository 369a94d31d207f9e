// Package retriever implements hybrid corpus retrieval: filtered vector
// search with an age-relaxed retry and a keyword fallback merge.
package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/embedding"
	"github.com/dominicdesy/intelia-expert-sub005/gate"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
	"github.com/dominicdesy/intelia-expert-sub005/vectordb"
	"github.com/dominicdesy/intelia-expert-sub005/vocab"
)

// Info reports how retrieval arrived at its result set.
type Info struct {
	AgeFallbackUsed     bool    `json:"age_fallback_used"`
	KeywordFallbackUsed bool    `json:"keyword_fallback_used"`
	EffectiveThreshold  float64 `json:"effective_threshold"`
}

// Hybrid runs the retrieval chain. Safe for concurrent use.
type Hybrid struct {
	embed embedding.Provider
	store vectordb.Provider
	vocab *vocab.Vocabulary

	topK          int
	baseThreshold float64
	highGate      float64
	lowGate       float64
}

func New(embed embedding.Provider, store vectordb.Provider, v *vocab.Vocabulary, cfg config.PipelineConfig) *Hybrid {
	return &Hybrid{
		embed:         embed,
		store:         store,
		vocab:         v,
		topK:          cfg.TopK,
		baseThreshold: cfg.ConfidenceThreshold,
		highGate:      cfg.HighScoreGate,
		lowGate:       cfg.LowScoreGate,
	}
}

// Search retrieves candidate passages for the query. Fallbacks fire in
// order: drop the age filter, then merge keyword matches. The returned
// slice is already filtered by the effective threshold and sorted by
// score descending.
func (h *Hybrid) Search(ctx context.Context, q schema.Query, intent schema.IntentResult, topK int) ([]schema.SearchResult, Info, error) {
	if topK <= 0 {
		topK = h.topK
	}
	info := Info{EffectiveThreshold: h.baseThreshold}

	filter := buildFilter(intent.Entities)
	queryText := q.Text
	if intent.ExpandedQuery != "" {
		queryText = intent.ExpandedQuery
	}

	var results []schema.SearchResult
	vec := h.embed.Embed(ctx, queryText)
	if len(vec) == 0 {
		logger.Warnf("retriever: embedding unavailable, keyword search only")
	} else {
		var err error
		results, err = h.store.SearchVectors(ctx, vec, schema.SearchOptions{TopK: topK, Filter: filter})
		if err != nil {
			logger.Warnf("retriever: vector search failed: %v", err)
		}

		if h.lowConfidence(results) && filter["age_days"] != "" {
			relaxed := cloneFilter(filter)
			delete(relaxed, "age_days")
			retry, err := h.store.SearchVectors(ctx, vec, schema.SearchOptions{TopK: topK, Filter: relaxed})
			if err != nil {
				logger.Warnf("retriever: relaxed search failed: %v", err)
			} else if len(retry) > 0 {
				results = retry
				info.AgeFallbackUsed = true
			}
		}
	}

	if h.lowConfidence(results) {
		terms := h.keywordTerms(queryText)
		kw, err := h.store.SearchKeywords(ctx, terms, schema.SearchOptions{TopK: topK})
		if err != nil {
			logger.Warnf("retriever: keyword fallback failed: %v", err)
		} else if len(kw) > 0 {
			results = mergeDedup(results, kw)
			info.KeywordFallbackUsed = true
		}
	}

	sortByScore(results)
	info.EffectiveThreshold = h.effectiveThreshold(results, info.KeywordFallbackUsed)

	kept := results[:0:0]
	for _, r := range results {
		if r.Score >= info.EffectiveThreshold {
			kept = append(kept, r)
		}
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept, info, nil
}

// lowConfidence holds when nothing came back or every score sits below
// the base threshold.
func (h *Hybrid) lowConfidence(results []schema.SearchResult) bool {
	for _, r := range results {
		if r.Score >= h.baseThreshold {
			return false
		}
	}
	return true
}

// effectiveThreshold adapts the acceptance bar to the result quality.
// A very strong top hit raises the bar to shed marginal passages; a weak
// top hit after keyword fallback lowers it so the answer is not starved.
// Both adjustments are monotonic in the top score.
func (h *Hybrid) effectiveThreshold(results []schema.SearchResult, keywordUsed bool) float64 {
	eff := h.baseThreshold
	if len(results) == 0 {
		return eff
	}
	top := results[0].Score
	switch {
	case top >= h.highGate:
		eff = h.baseThreshold + 0.5*(top-h.highGate)
	case keywordUsed && top < h.lowGate:
		eff = h.baseThreshold * top / h.lowGate
	}
	return eff
}

// keywordTerms picks the domain-bearing tokens for the fallback query.
func (h *Hybrid) keywordTerms(query string) []string {
	tokens := gate.Tokenize(gate.Normalize(query))
	var terms []string
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		if tier, _, ok := h.vocab.Lookup(t); ok && tier != vocab.TierGeneric {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		// nothing recognized: fall back to the longest tokens
		for _, t := range tokens {
			if len(t) >= 4 {
				terms = append(terms, t)
			}
			if len(terms) == 5 {
				break
			}
		}
	}
	return terms
}

func buildFilter(entities map[string]string) map[string]string {
	if len(entities) == 0 {
		return nil
	}
	filter := make(map[string]string, len(entities))
	for _, key := range []string{"breed", "species", "age_days", "phase", "sex"} {
		if v := entities[key]; v != "" {
			filter[key] = v
		}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func cloneFilter(filter map[string]string) map[string]string {
	out := make(map[string]string, len(filter))
	for k, v := range filter {
		out[k] = v
	}
	return out
}

// mergeDedup appends keyword hits to the vector hits, dropping
// duplicates by (title, source).
func mergeDedup(primary, secondary []schema.SearchResult) []schema.SearchResult {
	seen := make(map[string]bool, len(primary))
	for _, r := range primary {
		seen[dedupKey(r)] = true
	}
	out := primary
	for _, r := range secondary {
		k := dedupKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func dedupKey(r schema.SearchResult) string {
	title, source := strings.ToLower(r.Title()), strings.ToLower(r.Source())
	if title == "" && source == "" {
		if r.Document.ID != "" {
			return "id:" + r.Document.ID
		}
		return "c:" + r.Document.Content
	}
	return title + "\x00" + source
}

func sortByScore(results []schema.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
