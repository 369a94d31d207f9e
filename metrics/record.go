package metrics

import (
	"time"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
)

// QueryRecord is the per-query metrics snapshot, emitted as one
// structured log line per request for offline analysis.
type QueryRecord struct {
	QueryID   string    `json:"query_id"`
	Timestamp time.Time `json:"timestamp"`
	Language  string    `json:"language,omitempty"`

	Intent           string  `json:"intent,omitempty"`
	IntentConfidence float64 `json:"intent_confidence,omitempty"`
	DomainScore      float64 `json:"domain_score"`
	DomainTier       string  `json:"domain_tier,omitempty"`
	InDomain         bool    `json:"in_domain"`
	TranslationUsed  bool    `json:"translation_used,omitempty"`

	CacheHit  bool   `json:"cache_hit"`
	CacheTier string `json:"cache_tier,omitempty"`

	Retrieved           int     `json:"retrieved"`
	Reranked            int     `json:"reranked"`
	AgeFallbackUsed     bool    `json:"age_fallback_used,omitempty"`
	KeywordFallbackUsed bool    `json:"keyword_fallback_used,omitempty"`
	EffectiveThreshold  float64 `json:"effective_threshold,omitempty"`

	Verified   bool    `json:"verified,omitempty"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`

	GateLatencyMs     int64 `json:"gate_latency_ms,omitempty"`
	RetrieveLatencyMs int64 `json:"retrieve_latency_ms,omitempty"`
	RerankLatencyMs   int64 `json:"rerank_latency_ms,omitempty"`
	GenerateLatencyMs int64 `json:"generate_latency_ms,omitempty"`
	TotalLatencyMs    int64 `json:"total_latency_ms"`
}

// Emit writes the record as a structured log line and feeds the
// aggregate collectors.
func (r *QueryRecord) Emit() {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	IncAnswer(r.Status)
	l := logger.L()
	l.Info().
		Str("query_id", r.QueryID).
		Str("status", r.Status).
		Str("intent", r.Intent).
		Float64("domain_score", r.DomainScore).
		Bool("in_domain", r.InDomain).
		Bool("cache_hit", r.CacheHit).
		Str("cache_tier", r.CacheTier).
		Int("retrieved", r.Retrieved).
		Int("reranked", r.Reranked).
		Bool("age_fallback", r.AgeFallbackUsed).
		Bool("keyword_fallback", r.KeywordFallbackUsed).
		Float64("confidence", r.Confidence).
		Int64("total_latency_ms", r.TotalLatencyMs).
		Msg("query processed")
}
