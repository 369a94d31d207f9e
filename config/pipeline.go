package config

// PipelineConfig groups the per-stage tunables of the query pipeline.
// The heuristic constants (boost multipliers, blend weight, thresholds)
// are deliberate configuration rather than hard-coded truths; the
// defaults mirror values observed against real query logs.
type PipelineConfig struct {
	// Retrieval.
	TopK                int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	// HighScoreGate raises the effective threshold when the top result
	// scores at or above it; LowScoreGate lowers it when keyword
	// fallback was needed and the top result stays below it.
	HighScoreGate float64 `json:"high_score_gate,omitempty" yaml:"high_score_gate,omitempty"`
	LowScoreGate  float64 `json:"low_score_gate,omitempty" yaml:"low_score_gate,omitempty"`

	// Gate.
	PrimaryLanguage    string  `json:"primary_language,omitempty" yaml:"primary_language,omitempty"`
	GateBlockCount     int     `json:"gate_block_count,omitempty" yaml:"gate_block_count,omitempty"`
	GateMaxScore       float64 `json:"gate_max_score,omitempty" yaml:"gate_max_score,omitempty"`
	TranslationPenalty float64 `json:"translation_penalty,omitempty" yaml:"translation_penalty,omitempty"`
	VocabularyFile     string  `json:"vocabulary_file,omitempty" yaml:"vocabulary_file,omitempty"`

	// Rerank.
	RerankTopN       int               `json:"rerank_top_n,omitempty" yaml:"rerank_top_n,omitempty"`
	RerankEndpoint   string            `json:"rerank_endpoint,omitempty" yaml:"rerank_endpoint,omitempty"`
	RerankAPIKey     string            `json:"rerank_api_key,omitempty" yaml:"rerank_api_key,omitempty"`
	RerankModel      string            `json:"rerank_model,omitempty" yaml:"rerank_model,omitempty"`
	RerankBlend      float64           `json:"rerank_blend,omitempty" yaml:"rerank_blend,omitempty"`
	RerankMinDocs    int               `json:"rerank_min_docs,omitempty" yaml:"rerank_min_docs,omitempty"`
	DiversityCutoff  float64           `json:"diversity_cutoff,omitempty" yaml:"diversity_cutoff,omitempty"`
	BoostMultipliers map[string]float64 `json:"boost_multipliers,omitempty" yaml:"boost_multipliers,omitempty"`

	// Generation and verification.
	ContextTokenBudget int     `json:"context_token_budget,omitempty" yaml:"context_token_budget,omitempty"`
	CompressRatio      float64 `json:"compress_ratio,omitempty" yaml:"compress_ratio,omitempty"`
	EnableVerification bool    `json:"enable_verification,omitempty" yaml:"enable_verification,omitempty"`
	SmartVerification  bool    `json:"smart_verification,omitempty" yaml:"smart_verification,omitempty"`
	VerifyBelow        float64 `json:"verify_below,omitempty" yaml:"verify_below,omitempty"`

	// Conversation memory.
	MemoryMaxExchanges int `json:"memory_max_exchanges,omitempty" yaml:"memory_max_exchanges,omitempty"`

	// Per-stage timeouts, milliseconds. Every external call gets one.
	GateTimeoutMs      int `json:"gate_timeout_ms,omitempty" yaml:"gate_timeout_ms,omitempty"`
	EmbedTimeoutMs     int `json:"embed_timeout_ms,omitempty" yaml:"embed_timeout_ms,omitempty"`
	SearchTimeoutMs    int `json:"search_timeout_ms,omitempty" yaml:"search_timeout_ms,omitempty"`
	RerankTimeoutMs    int `json:"rerank_timeout_ms,omitempty" yaml:"rerank_timeout_ms,omitempty"`
	GenerateTimeoutMs  int `json:"generate_timeout_ms,omitempty" yaml:"generate_timeout_ms,omitempty"`
	VerifyTimeoutMs    int `json:"verify_timeout_ms,omitempty" yaml:"verify_timeout_ms,omitempty"`
	TranslateTimeoutMs int `json:"translate_timeout_ms,omitempty" yaml:"translate_timeout_ms,omitempty"`
	CacheTimeoutMs     int `json:"cache_timeout_ms,omitempty" yaml:"cache_timeout_ms,omitempty"`
}

// CacheConfig controls the semantic cache and its backing store.
type CacheConfig struct {
	Enable bool `json:"enable" yaml:"enable"`
	// Store: "redis" or "memory".
	Store         string `json:"store,omitempty" yaml:"store,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`

	// TTLs per tier, seconds. The fallback tier must stay shorter than
	// the strict tier because its key is more permissive.
	StrictTTLSeconds   int  `json:"strict_ttl_seconds,omitempty" yaml:"strict_ttl_seconds,omitempty"`
	FallbackTTLSeconds int  `json:"fallback_ttl_seconds,omitempty" yaml:"fallback_ttl_seconds,omitempty"`
	ExactTTLSeconds    int  `json:"exact_ttl_seconds,omitempty" yaml:"exact_ttl_seconds,omitempty"`
	EnableFallbackTier bool `json:"enable_fallback_tier,omitempty" yaml:"enable_fallback_tier,omitempty"`

	// Resource policy.
	MaxValueBytes    int     `json:"max_value_bytes,omitempty" yaml:"max_value_bytes,omitempty"`
	MemoryLimitMB    int     `json:"memory_limit_mb,omitempty" yaml:"memory_limit_mb,omitempty"`
	PurgeAtRatio     float64 `json:"purge_at_ratio,omitempty" yaml:"purge_at_ratio,omitempty"`
	WarnAtRatio      float64 `json:"warn_at_ratio,omitempty" yaml:"warn_at_ratio,omitempty"`
	MaxPurgeRatio    float64 `json:"max_purge_ratio,omitempty" yaml:"max_purge_ratio,omitempty"`
	MaxKeysPerSpace  int     `json:"max_keys_per_namespace,omitempty" yaml:"max_keys_per_namespace,omitempty"`

	// Compression of payloads above the threshold.
	Compression         bool `json:"compression,omitempty" yaml:"compression,omitempty"`
	CompressionMinBytes int  `json:"compression_min_bytes,omitempty" yaml:"compression_min_bytes,omitempty"`

	// Error backoff: after BackoffAfter consecutive store errors the
	// cache short-circuits for an exponentially growing window.
	BackoffAfter  int `json:"backoff_after,omitempty" yaml:"backoff_after,omitempty"`
	BackoffBaseMs int `json:"backoff_base_ms,omitempty" yaml:"backoff_base_ms,omitempty"`
	BackoffMaxMs  int `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
}

// DefaultPipeline returns the default stage tunables.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		TopK:                12,
		ConfidenceThreshold: 0.55,
		HighScoreGate:       0.85,
		LowScoreGate:        0.70,

		PrimaryLanguage:    "en",
		GateBlockCount:     2,
		GateMaxScore:       0.98,
		TranslationPenalty: 0.30,

		RerankTopN:      8,
		RerankBlend:     0.7,
		RerankMinDocs:   5,
		DiversityCutoff: 0.75,
		BoostMultipliers: map[string]float64{
			"breed":   1.4,
			"species": 1.3,
			"age":     1.25,
			"phase":   1.3,
		},

		ContextTokenBudget: 3000,
		CompressRatio:      0.7,
		EnableVerification: true,
		SmartVerification:  true,
		VerifyBelow:        0.75,

		MemoryMaxExchanges: 8,

		GateTimeoutMs:      800,
		EmbedTimeoutMs:     2000,
		SearchTimeoutMs:    2500,
		RerankTimeoutMs:    2000,
		GenerateTimeoutMs:  20000,
		VerifyTimeoutMs:    8000,
		TranslateTimeoutMs: 1500,
		CacheTimeoutMs:     500,
	}
}

// DefaultCache returns the default cache policy.
func DefaultCache() CacheConfig {
	return CacheConfig{
		Enable:             true,
		Store:              "memory",
		StrictTTLSeconds:   24 * 3600,
		FallbackTTLSeconds: 4 * 3600,
		ExactTTLSeconds:    12 * 3600,
		EnableFallbackTier: false,

		MaxValueBytes:   256 * 1024,
		MemoryLimitMB:   64,
		PurgeAtRatio:    0.90,
		WarnAtRatio:     0.75,
		MaxPurgeRatio:   0.35,
		MaxKeysPerSpace: 10000,

		Compression:         false,
		CompressionMinBytes: 2048,

		BackoffAfter:  3,
		BackoffBaseMs: 250,
		BackoffMaxMs:  30000,
	}
}
