package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"

	expert "github.com/dominicdesy/intelia-expert-sub005"
	"github.com/dominicdesy/intelia-expert-sub005/cache"
	"github.com/dominicdesy/intelia-expert-sub005/common/httpx"
	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/embedding"
	"github.com/dominicdesy/intelia-expert-sub005/feedback"
	"github.com/dominicdesy/intelia-expert-sub005/gate"
	"github.com/dominicdesy/intelia-expert-sub005/generator"
	"github.com/dominicdesy/intelia-expert-sub005/llm"
	"github.com/dominicdesy/intelia-expert-sub005/memory"
	"github.com/dominicdesy/intelia-expert-sub005/pipeline"
	"github.com/dominicdesy/intelia-expert-sub005/rerank"
	"github.com/dominicdesy/intelia-expert-sub005/retriever"
	"github.com/dominicdesy/intelia-expert-sub005/translate"
	"github.com/dominicdesy/intelia-expert-sub005/vectordb"
	"github.com/dominicdesy/intelia-expert-sub005/vocab"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Errorf("main: load config: %v", err)
		os.Exit(1)
	}
	logger.Setup(os.Stderr, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Errorf("main: invalid config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Errorf("main: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	vocabulary := vocab.Default()
	if path := cfg.Pipeline.VocabularyFile; path != "" {
		loaded, err := vocab.Load(path)
		if err != nil {
			return err
		}
		vocabulary = loaded
	}

	httpClient := httpx.NewFromConfig(cfg.HTTP)
	translator := translate.New(cfg.Translation, httpClient)
	domainGate := gate.New(vocabulary, translator, gate.OptionsFromConfig(cfg.Pipeline))

	store, err := vectordb.NewMilvus(ctx, cfg.VectorDB)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder := embedding.NewOpenAI(cfg.Embedding)
	completer := llm.NewOpenAI(cfg.LLM)
	hybrid := retriever.New(embedder, store, vocabulary, cfg.Pipeline)

	pool, err := ants.NewPool(8)
	if err != nil {
		return err
	}
	defer pool.Release()
	reranker := rerank.New(cfg.Pipeline, httpClient, pool)

	gen := generator.New(completer, cfg.Pipeline)
	verifier := generator.NewVerifier(completer)
	mem := buildMemory(cfg)
	fm := feedback.NewManager()

	deps := pipeline.Deps{
		Gate:        domainGate,
		Retriever:   hybrid,
		Reranker:    reranker,
		Generator:   gen,
		Verifier:    verifier,
		Memory:      mem,
		ContextHash: cache.ContextHash,
		Feedback:    fm,
	}
	if cfg.Cache.Enable {
		semantic, err := buildCache(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		deps.Cache = semantic
	}

	pipe := pipeline.New(cfg.Pipeline, deps)
	return expert.ServeStdio(expert.NewServer(pipe, mem, fm))
}

// buildMemory keeps conversation history in redis when the cache is
// redis-backed, so sessions survive restarts alongside cached answers.
func buildMemory(cfg config.Config) memory.History {
	if cfg.Cache.Enable && cfg.Cache.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		ttl := time.Duration(cfg.Cache.ExactTTLSeconds) * time.Second
		return memory.NewRedisHistory(client, ttl, cfg.Pipeline.MemoryMaxExchanges)
	}
	return memory.NewStore(cfg.Pipeline.MemoryMaxExchanges)
}

func buildCache(ctx context.Context, cfg config.CacheConfig) (*cache.Semantic, error) {
	if cfg.Store == "redis" {
		rs, err := cache.NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewSemantic(rs, cfg), nil
	}
	return cache.NewSemantic(cache.NewMemoryStore(cfg.MaxKeysPerSpace*3), cfg), nil
}
