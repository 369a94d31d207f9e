package schema

import "time"

// Query is a single user question flowing through the pipeline.
// It is immutable once built and lives for one request.
type Query struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	SessionID string `json:"session_id,omitempty"`
	// Context carries the folded conversation history for this session.
	Context string `json:"context,omitempty"`
}

// Intent is the coarse category assigned by the domain gate.
type Intent string

const (
	IntentMetric      Intent = "metric_query"
	IntentEnvironment Intent = "environment_setting"
	IntentDiagnosis   Intent = "diagnosis"
	IntentEconomics   Intent = "economics"
	IntentProtocol    Intent = "protocol_query"
	IntentGeneral     Intent = "general_poultry"
)

// IntentResult is produced once by the gate and read-only downstream.
type IntentResult struct {
	Intent        Intent            `json:"intent"`
	Confidence    float64           `json:"confidence"`
	Entities      map[string]string `json:"entities,omitempty"`
	ExpandedQuery string            `json:"expanded_query,omitempty"`
}

// RelevanceTier buckets the domain score for reporting.
type RelevanceTier string

const (
	TierHigh    RelevanceTier = "high"
	TierMedium  RelevanceTier = "medium"
	TierLow     RelevanceTier = "low"
	TierGeneric RelevanceTier = "generic"
	TierBlocked RelevanceTier = "blocked"
)

// DomainScore records the gate decision and how it was reached.
type DomainScore struct {
	FinalScore       float64       `json:"final_score"`
	Tier             RelevanceTier `json:"tier"`
	MatchedTerms     []string      `json:"matched_terms,omitempty"`
	BlockedTerms     []string      `json:"blocked_terms,omitempty"`
	ThresholdApplied float64       `json:"threshold_applied"`
	InDomain         bool          `json:"in_domain"`
	Reasoning        string        `json:"reasoning,omitempty"`
	// Translation provenance when the gate re-ran on a translated query.
	SourceLanguage  string  `json:"source_language,omitempty"`
	TranslatedText  string  `json:"translated_text,omitempty"`
	TranslationUsed bool    `json:"translation_used,omitempty"`
	TranslationConf float64 `json:"translation_confidence,omitempty"`
}

// Document is an opaque corpus passage. Metadata must carry at least
// title and source; boost tags (breed, species, age_days, phase) are
// optional and drive reranking.
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// SearchResult pairs a document with its relevance score. When the
// underlying index reported a raw distance it is preserved alongside the
// derived score for diagnostics.
type SearchResult struct {
	Document    Document `json:"document"`
	Score       float64  `json:"score"`
	RawDistance float64  `json:"raw_distance,omitempty"`
	HasDistance bool     `json:"has_distance,omitempty"`
}

// Title returns the document title tag, empty when missing.
func (r SearchResult) Title() string { return r.Document.Metadata["title"] }

// Source returns the document source tag, empty when missing.
func (r SearchResult) Source() string { return r.Document.Metadata["source"] }

// CacheEntry is the serialized unit stored by the semantic cache.
type CacheEntry struct {
	Payload    []byte    `json:"payload"`
	ExpiresAt  time.Time `json:"expires_at"`
	Namespace  string    `json:"namespace"`
	SizeBytes  int       `json:"size_bytes"`
	Compressed bool      `json:"compressed,omitempty"`
}

// Status is the terminal outcome of a pipeline run.
type Status string

const (
	StatusAnswered       Status = "answered"
	StatusRejected       Status = "rejected_out_of_domain"
	StatusFallbackNeeded Status = "fallback_needed"
	StatusErrored        Status = "errored"
)

// PipelineResult is returned to the caller and not persisted beyond logs.
type PipelineResult struct {
	QueryID    string         `json:"query_id,omitempty"`
	Status     Status         `json:"status"`
	Answer     string         `json:"answer,omitempty"`
	Message    string         `json:"message,omitempty"`
	Confidence float64        `json:"confidence"`
	Documents  []SearchResult `json:"documents,omitempty"`
	Intent     IntentResult   `json:"intent"`
	Domain     DomainScore    `json:"domain"`

	FromCache bool   `json:"from_cache,omitempty"`
	CacheTier string `json:"cache_tier,omitempty"`

	AgeFallbackUsed     bool `json:"age_fallback_used,omitempty"`
	KeywordFallbackUsed bool `json:"keyword_fallback_used,omitempty"`
	Verified            bool `json:"verified,omitempty"`

	TookMs int64 `json:"took_ms"`
}

// SearchOptions narrows a vector or keyword search.
type SearchOptions struct {
	TopK      int
	Threshold float64
	// Filter restricts matches on metadata fields (exact match per key).
	Filter map[string]string
}
