package config

import (
	"fmt"
	"strings"
)

// ValidationError reports a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. [%s] %s\n", i+1, err.Field, err.Message))
	}
	return b.String()
}

// Validate checks the complete configuration. Missing credentials for
// required services are fatal; tunables out of range are fatal too so a
// typo cannot silently change pipeline behavior.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateServices()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validatePipeline()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateServices() ValidationErrors {
	var errs ValidationErrors

	if c.LLM.APIKey == "" {
		errs = append(errs, ValidationError{Field: "llm.api_key", Message: "api key is required"})
	}
	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{Field: "llm.model", Message: "model is required"})
	}
	if c.Embedding.APIKey == "" {
		errs = append(errs, ValidationError{Field: "embedding.api_key", Message: "api key is required"})
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, ValidationError{Field: "embedding.dimensions", Message: "dimensions must be positive"})
	}
	if c.VectorDB.Address == "" {
		errs = append(errs, ValidationError{Field: "vectordb.address", Message: "address is required"})
	}
	if c.VectorDB.Collection == "" {
		errs = append(errs, ValidationError{Field: "vectordb.collection", Message: "collection is required"})
	}
	switch c.VectorDB.MetricType {
	case "IP", "COSINE", "L2":
	default:
		errs = append(errs, ValidationError{Field: "vectordb.metric_type", Message: "must be one of IP, COSINE, L2"})
	}
	return errs
}

func (c *Config) validateCache() ValidationErrors {
	var errs ValidationErrors
	cc := c.Cache
	if !cc.Enable {
		return nil
	}
	if cc.Store != "memory" && cc.Store != "redis" {
		errs = append(errs, ValidationError{Field: "cache.store", Message: "must be memory or redis"})
	}
	if cc.Store == "redis" && cc.RedisAddr == "" {
		errs = append(errs, ValidationError{Field: "cache.redis_addr", Message: "redis address is required when store is redis"})
	}
	if cc.StrictTTLSeconds <= 0 || cc.ExactTTLSeconds <= 0 {
		errs = append(errs, ValidationError{Field: "cache.ttl", Message: "tier TTLs must be positive"})
	}
	if cc.EnableFallbackTier && cc.FallbackTTLSeconds >= cc.StrictTTLSeconds {
		errs = append(errs, ValidationError{Field: "cache.fallback_ttl_seconds", Message: "fallback TTL must be shorter than strict TTL"})
	}
	if cc.MaxPurgeRatio <= 0 || cc.MaxPurgeRatio > 1 {
		errs = append(errs, ValidationError{Field: "cache.max_purge_ratio", Message: "must be in (0, 1]"})
	}
	if cc.PurgeAtRatio <= cc.WarnAtRatio {
		errs = append(errs, ValidationError{Field: "cache.purge_at_ratio", Message: "purge ratio must exceed warn ratio"})
	}
	return errs
}

func (c *Config) validatePipeline() ValidationErrors {
	var errs ValidationErrors
	p := c.Pipeline
	if p.TopK <= 0 {
		errs = append(errs, ValidationError{Field: "pipeline.top_k", Message: "top_k must be positive"})
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		errs = append(errs, ValidationError{Field: "pipeline.confidence_threshold", Message: "must be in [0, 1]"})
	}
	if p.RerankTopN <= 0 {
		errs = append(errs, ValidationError{Field: "pipeline.rerank_top_n", Message: "rerank_top_n must be positive"})
	}
	if p.RerankBlend < 0 || p.RerankBlend > 1 {
		errs = append(errs, ValidationError{Field: "pipeline.rerank_blend", Message: "must be in [0, 1]"})
	}
	if p.DiversityCutoff <= 0 || p.DiversityCutoff > 1 {
		errs = append(errs, ValidationError{Field: "pipeline.diversity_cutoff", Message: "must be in (0, 1]"})
	}
	if p.TranslationPenalty < 0 || p.TranslationPenalty > 1 {
		errs = append(errs, ValidationError{Field: "pipeline.translation_penalty", Message: "must be in [0, 1]"})
	}
	for tag, m := range p.BoostMultipliers {
		if m < 1 {
			errs = append(errs, ValidationError{Field: "pipeline.boost_multipliers." + tag, Message: "boost multipliers must be >= 1"})
		}
	}
	if p.ContextTokenBudget <= 0 {
		errs = append(errs, ValidationError{Field: "pipeline.context_token_budget", Message: "must be positive"})
	}
	if p.MemoryMaxExchanges < 0 {
		errs = append(errs, ValidationError{Field: "pipeline.memory_max_exchanges", Message: "must not be negative"})
	}
	return errs
}
