package config

// Config is the root configuration for the expert pipeline. It is built
// once at startup (FromEnv, optionally layered with a YAML file) and
// injected into components as an immutable value; nothing mutates it
// after Validate passes.
type Config struct {
	LogLevel string `json:"log_level" yaml:"log_level"`

	LLM         LLMConfig         `json:"llm" yaml:"llm"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding"`
	VectorDB    VectorDBConfig    `json:"vectordb" yaml:"vectordb"`
	Translation TranslationConfig `json:"translation" yaml:"translation"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
	Pipeline    PipelineConfig    `json:"pipeline" yaml:"pipeline"`
	HTTP        HTTPClientConfig  `json:"http" yaml:"http"`
}

// LLMConfig defines the text generation service.
type LLMConfig struct {
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// EmbeddingConfig defines the embedding service.
type EmbeddingConfig struct {
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines the vector index connection.
type VectorDBConfig struct {
	Address    string `json:"address" yaml:"address"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection" yaml:"collection"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	// MetricType: "IP", "COSINE" (certainty) or "L2" (distance).
	// Drives the distance-to-score normalization in the retriever.
	MetricType string `json:"metric_type,omitempty" yaml:"metric_type,omitempty"`
	// VectorField and ContentField name the collection columns.
	VectorField  string `json:"vector_field,omitempty" yaml:"vector_field,omitempty"`
	ContentField string `json:"content_field,omitempty" yaml:"content_field,omitempty"`
}

// TranslationConfig defines the optional translation service. An empty
// endpoint disables translation; the gate then degrades to its
// untranslated strategies.
type TranslationConfig struct {
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// HTTPClientConfig defines common options for outbound HTTP calls
// (translation, rerank service).
type HTTPClientConfig struct {
	TimeoutMs              int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	MaxConsecutiveFailures int `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// Default returns the built-in defaults. FromEnv starts from these and
// overrides whatever the environment provides.
func Default() Config {
	return Config{
		LogLevel: "info",
		LLM: LLMConfig{
			Model:       "gpt-4o",
			Temperature: 0.1,
			MaxTokens:   900,
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		VectorDB: VectorDBConfig{
			Collection:   "poultry_knowledge",
			MetricType:   "COSINE",
			VectorField:  "vector",
			ContentField: "content",
		},
		Cache:    DefaultCache(),
		Pipeline: DefaultPipeline(),
		HTTP: HTTPClientConfig{
			TimeoutMs:              1500,
			Retry:                  1,
			BackoffMinMs:           100,
			BackoffMaxMs:           800,
			MaxConsecutiveFailures: 5,
			CircuitOpenSeconds:     5,
		},
	}
}
