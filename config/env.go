package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromEnv builds the configuration from the process environment on top
// of Default(). When EXPERT_CONFIG_FILE points at a YAML file it is
// layered between the defaults and the environment, so env vars always
// win. The result is not validated; call Validate before use.
func FromEnv() (Config, error) {
	cfg := Default()

	if path := os.Getenv("EXPERT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	envStr(&cfg.LogLevel, "EXPERT_LOG_LEVEL")

	envStr(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	envStr(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	envStr(&cfg.LLM.Model, "EXPERT_LLM_MODEL")
	envFloat(&cfg.LLM.Temperature, "EXPERT_LLM_TEMPERATURE")
	envInt(&cfg.LLM.MaxTokens, "EXPERT_LLM_MAX_TOKENS")

	// Embedding defaults to the LLM credentials unless overridden.
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = cfg.LLM.BaseURL
	}
	envStr(&cfg.Embedding.APIKey, "EXPERT_EMBEDDING_API_KEY")
	envStr(&cfg.Embedding.Model, "EXPERT_EMBEDDING_MODEL")
	envInt(&cfg.Embedding.Dimensions, "EXPERT_EMBEDDING_DIMENSIONS")

	envStr(&cfg.VectorDB.Address, "MILVUS_ADDRESS")
	envStr(&cfg.VectorDB.Database, "MILVUS_DATABASE")
	envStr(&cfg.VectorDB.Collection, "MILVUS_COLLECTION")
	envStr(&cfg.VectorDB.Username, "MILVUS_USERNAME")
	envStr(&cfg.VectorDB.Password, "MILVUS_PASSWORD")
	envStr(&cfg.VectorDB.MetricType, "MILVUS_METRIC_TYPE")

	envStr(&cfg.Translation.Endpoint, "TRANSLATE_ENDPOINT")
	envStr(&cfg.Translation.APIKey, "TRANSLATE_API_KEY")
	envInt(&cfg.Translation.TimeoutMs, "TRANSLATE_TIMEOUT_MS")

	envBool(&cfg.Cache.Enable, "EXPERT_CACHE")
	envStr(&cfg.Cache.Store, "EXPERT_CACHE_STORE")
	envStr(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	envStr(&cfg.Cache.RedisPassword, "REDIS_PASSWORD")
	envInt(&cfg.Cache.RedisDB, "REDIS_DB")
	envInt(&cfg.Cache.StrictTTLSeconds, "EXPERT_CACHE_TTL_STRICT")
	envInt(&cfg.Cache.FallbackTTLSeconds, "EXPERT_CACHE_TTL_FALLBACK")
	envInt(&cfg.Cache.ExactTTLSeconds, "EXPERT_CACHE_TTL_EXACT")
	envBool(&cfg.Cache.EnableFallbackTier, "EXPERT_CACHE_FALLBACK_TIER")
	envInt(&cfg.Cache.MemoryLimitMB, "EXPERT_CACHE_MEMORY_LIMIT_MB")
	envInt(&cfg.Cache.MaxKeysPerSpace, "EXPERT_CACHE_MAX_KEYS")
	envBool(&cfg.Cache.Compression, "EXPERT_CACHE_COMPRESSION")

	envInt(&cfg.Pipeline.TopK, "EXPERT_TOP_K")
	envFloat(&cfg.Pipeline.ConfidenceThreshold, "EXPERT_CONFIDENCE_THRESHOLD")
	envStr(&cfg.Pipeline.PrimaryLanguage, "EXPERT_PRIMARY_LANGUAGE")
	envStr(&cfg.Pipeline.VocabularyFile, "EXPERT_VOCABULARY_FILE")
	envInt(&cfg.Pipeline.RerankTopN, "EXPERT_RERANK_TOP_N")
	envStr(&cfg.Pipeline.RerankEndpoint, "EXPERT_RERANK_ENDPOINT")
	envStr(&cfg.Pipeline.RerankAPIKey, "EXPERT_RERANK_API_KEY")
	envStr(&cfg.Pipeline.RerankModel, "EXPERT_RERANK_MODEL")
	envBool(&cfg.Pipeline.EnableVerification, "EXPERT_VERIFICATION")
	envBool(&cfg.Pipeline.SmartVerification, "EXPERT_SMART_VERIFICATION")
	envInt(&cfg.Pipeline.MemoryMaxExchanges, "EXPERT_MEMORY_MAX_EXCHANGES")
	envInt(&cfg.Pipeline.ContextTokenBudget, "EXPERT_CONTEXT_TOKEN_BUDGET")

	return cfg, nil
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
