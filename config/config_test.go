package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.LLM.APIKey = "sk-test"
	cfg.Embedding.APIKey = "sk-test"
	cfg.VectorDB.Address = "localhost:19530"
	return cfg
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingCredentials(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "llm.api_key")
	assert.Contains(t, fields, "embedding.api_key")
	assert.Contains(t, fields, "vectordb.address")
}

func TestValidateCacheTiers(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.EnableFallbackTier = true
	cfg.Cache.FallbackTTLSeconds = cfg.Cache.StrictTTLSeconds
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback TTL")
}

func TestValidatePipelineRanges(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.RerankBlend = 1.5
	cfg.Pipeline.BoostMultipliers["breed"] = 0.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rerank_blend")
	assert.Contains(t, err.Error(), "boost_multipliers.breed")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("EXPERT_TOP_K", "20")
	t.Setenv("EXPERT_CACHE_FALLBACK_TIER", "true")
	t.Setenv("EXPERT_CONFIDENCE_THRESHOLD", "0.6")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
	assert.Equal(t, 20, cfg.Pipeline.TopK)
	assert.True(t, cfg.Cache.EnableFallbackTier)
	assert.InDelta(t, 0.6, cfg.Pipeline.ConfidenceThreshold, 1e-9)
}

func TestFromEnvBadIntIgnored(t *testing.T) {
	t.Setenv("EXPERT_TOP_K", "not-a-number")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default().Pipeline.TopK, cfg.Pipeline.TopK)
}
