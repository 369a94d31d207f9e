// Package pipeline wires the stages into the single ProcessQuery flow:
// gate, cache lookup, retrieve, rerank, generate, verify, cache write.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/feedback"
	"github.com/dominicdesy/intelia-expert-sub005/gate"
	"github.com/dominicdesy/intelia-expert-sub005/generator"
	"github.com/dominicdesy/intelia-expert-sub005/memory"
	"github.com/dominicdesy/intelia-expert-sub005/metrics"
	"github.com/dominicdesy/intelia-expert-sub005/retriever"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

// Stage interfaces. The pipeline depends on behavior, not on the
// concrete providers, so stages can be swapped in tests.
type Gater interface {
	Classify(ctx context.Context, q schema.Query) (schema.IntentResult, schema.DomainScore)
}

type Retriever interface {
	Search(ctx context.Context, q schema.Query, intent schema.IntentResult, topK int) ([]schema.SearchResult, retriever.Info, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, in []schema.SearchResult, intent schema.IntentResult) []schema.SearchResult
}

type Cache interface {
	Lookup(ctx context.Context, lang string, intent schema.IntentResult, normalizedText, contextHash string) (*schema.PipelineResult, string, bool)
	Write(ctx context.Context, lang string, intent schema.IntentResult, normalizedText, contextHash string, result *schema.PipelineResult)
}

type Generator interface {
	Generate(ctx context.Context, q schema.Query, docs []schema.SearchResult, lang string) (string, float64, error)
}

type Verifier interface {
	Verify(ctx context.Context, q schema.Query, answer string, docs []schema.SearchResult) (supported bool, ok bool)
}

// ContextHasher derives the cache context hash; split out so the cache
// package owns the digest format.
type ContextHasher func(context string) string

// Pipeline processes queries end to end. Safe for concurrent use.
type Pipeline struct {
	cfg config.PipelineConfig

	gate      Gater
	retriever Retriever
	reranker  Reranker
	cache     Cache
	generator Generator
	verifier  Verifier
	memory    memory.History
	hashCtx   ContextHasher
	feedback  *feedback.Manager
}

// Deps carries the stage implementations.
type Deps struct {
	Gate        Gater
	Retriever   Retriever
	Reranker    Reranker
	Cache       Cache
	Generator   Generator
	Verifier    Verifier
	Memory      memory.History
	ContextHash ContextHasher
	Feedback    *feedback.Manager
}

func New(cfg config.PipelineConfig, deps Deps) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		gate:      deps.Gate,
		retriever: deps.Retriever,
		reranker:  deps.Reranker,
		cache:     deps.Cache,
		generator: deps.Generator,
		verifier:  deps.Verifier,
		memory:    deps.Memory,
		hashCtx:   deps.ContextHash,
		feedback:  deps.Feedback,
	}
	if p.memory == nil {
		p.memory = memory.NewStore(cfg.MemoryMaxExchanges)
	}
	if p.hashCtx == nil {
		p.hashCtx = func(string) string { return "none" }
	}
	return p
}

// ProcessQuery runs the full flow. It always returns a result; internal
// failures map onto the Errored or FallbackNeeded statuses rather than
// escaping as errors.
func (p *Pipeline) ProcessQuery(ctx context.Context, text, language, sessionID string) schema.PipelineResult {
	start := time.Now()
	lang := language
	if lang == "" {
		lang = p.cfg.PrimaryLanguage
	}
	q := schema.Query{
		ID:        uuid.NewString(),
		Text:      text,
		Language:  lang,
		SessionID: sessionID,
		Context:   p.memory.ContextString(sessionID, p.cfg.MemoryMaxExchanges),
	}
	record := metrics.QueryRecord{QueryID: q.ID, Language: lang, Timestamp: start}

	result := p.run(ctx, q, &record)
	result.QueryID = q.ID
	result.TookMs = time.Since(start).Milliseconds()

	record.Status = string(result.Status)
	record.Confidence = result.Confidence
	record.TotalLatencyMs = result.TookMs
	record.Emit()

	if result.Status == schema.StatusAnswered {
		p.memory.Append(sessionID, memory.Exchange{Question: text, Answer: result.Answer})
	}
	if p.feedback != nil {
		p.feedback.RecordOutcome(feedback.Outcome{
			QueryID:    q.ID,
			Intent:     string(result.Intent.Intent),
			Status:     string(result.Status),
			Verified:   result.Verified,
			Confidence: result.Confidence,
			FromCache:  result.FromCache,
		})
	}
	return result
}

func (p *Pipeline) run(ctx context.Context, q schema.Query, record *metrics.QueryRecord) schema.PipelineResult {
	// stage 1: gate
	gateStart := time.Now()
	intent, domain := p.classify(ctx, q)
	record.GateLatencyMs = time.Since(gateStart).Milliseconds()
	record.Intent = string(intent.Intent)
	record.IntentConfidence = intent.Confidence
	record.DomainScore = domain.FinalScore
	record.DomainTier = string(domain.Tier)
	record.InDomain = domain.InDomain
	record.TranslationUsed = domain.TranslationUsed
	metrics.ObserveGate(domain.InDomain, string(domain.Tier), domain.FinalScore)

	if !domain.InDomain {
		return schema.PipelineResult{
			Status:  schema.StatusRejected,
			Message: "the question is outside the broiler production domain",
			Intent:  intent,
			Domain:  domain,
		}
	}

	normalized := gate.Normalize(q.Text)
	ctxHash := p.hashCtx(q.Context)

	// stage 2: cache lookup
	if p.cache != nil {
		cctx, cancel := p.stageCtx(ctx, p.cfg.CacheTimeoutMs)
		cached, tier, hit := p.cache.Lookup(cctx, q.Language, intent, normalized, ctxHash)
		cancel()
		metrics.ObserveCache(hit, tier)
		if hit {
			record.CacheHit = true
			record.CacheTier = tier
			out := *cached
			out.FromCache = true
			out.CacheTier = tier
			out.Intent = intent
			out.Domain = domain
			return out
		}
	}

	// stage 3: retrieve
	topK := p.cfg.TopK
	if p.feedback != nil && p.feedback.ShouldExpandSearch() {
		topK = topK * 3 / 2
		logger.Infof("pipeline: widening retrieval to top_k=%d after unhelpful streak", topK)
	}
	retrStart := time.Now()
	rctx, cancel := p.stageCtx(ctx, p.cfg.SearchTimeoutMs)
	docs, info, err := p.retriever.Search(rctx, q, intent, topK)
	cancel()
	record.RetrieveLatencyMs = time.Since(retrStart).Milliseconds()
	record.Retrieved = len(docs)
	record.AgeFallbackUsed = info.AgeFallbackUsed
	record.KeywordFallbackUsed = info.KeywordFallbackUsed
	record.EffectiveThreshold = info.EffectiveThreshold
	metrics.ObserveStage("retrieve", retrStart)
	metrics.ObserveRetrieval(len(docs), info.AgeFallbackUsed, info.KeywordFallbackUsed)
	if err != nil {
		logger.Errorf("pipeline: retrieval failed for %s: %v", q.ID, err)
		return schema.PipelineResult{Status: schema.StatusErrored, Message: "retrieval unavailable", Intent: intent, Domain: domain}
	}
	if len(docs) == 0 {
		return schema.PipelineResult{
			Status:              schema.StatusFallbackNeeded,
			Message:             "no supporting passages found",
			Intent:              intent,
			Domain:              domain,
			AgeFallbackUsed:     info.AgeFallbackUsed,
			KeywordFallbackUsed: info.KeywordFallbackUsed,
		}
	}

	// stage 4: rerank
	rerankStart := time.Now()
	if p.reranker != nil {
		kctx, cancel := p.stageCtx(ctx, p.cfg.RerankTimeoutMs)
		docs = p.reranker.Rerank(kctx, q.Text, docs, intent)
		cancel()
	}
	record.RerankLatencyMs = time.Since(rerankStart).Milliseconds()
	record.Reranked = len(docs)
	metrics.ObserveStage("rerank", rerankStart)

	// stage 5: generate
	genStart := time.Now()
	gctx, cancel := p.stageCtx(ctx, p.cfg.GenerateTimeoutMs)
	answer, confidence, err := p.generator.Generate(gctx, q, docs, q.Language)
	cancel()
	record.GenerateLatencyMs = time.Since(genStart).Milliseconds()
	metrics.ObserveStage("generate", genStart)
	if err != nil {
		logger.Errorf("pipeline: generation failed for %s: %v", q.ID, err)
		return schema.PipelineResult{Status: schema.StatusErrored, Message: "answer generation failed", Intent: intent, Domain: domain}
	}

	// stage 6: verify
	verified := false
	if p.verifier != nil && p.cfg.EnableVerification &&
		(!p.cfg.SmartVerification || generator.ShouldVerify(intent, answer, confidence, p.cfg.VerifyBelow)) {
		vctx, cancel := p.stageCtx(ctx, p.cfg.VerifyTimeoutMs)
		supported, ok := p.verifier.Verify(vctx, q, answer, docs)
		cancel()
		switch {
		case !ok:
			confidence *= 0.9
		case supported:
			verified = true
		default:
			confidence *= 0.6
		}
	}
	record.Verified = verified

	result := schema.PipelineResult{
		Status:              schema.StatusAnswered,
		Answer:              answer,
		Confidence:          confidence,
		Documents:           docs,
		Intent:              intent,
		Domain:              domain,
		AgeFallbackUsed:     info.AgeFallbackUsed,
		KeywordFallbackUsed: info.KeywordFallbackUsed,
		Verified:            verified,
	}

	// stage 7: cache write
	if p.cache != nil {
		wctx, cancel := p.stageCtx(ctx, p.cfg.CacheTimeoutMs)
		p.cache.Write(wctx, q.Language, intent, normalized, ctxHash, &result)
		cancel()
	}
	return result
}

func (p *Pipeline) classify(ctx context.Context, q schema.Query) (schema.IntentResult, schema.DomainScore) {
	gctx, cancel := p.stageCtx(ctx, p.cfg.GateTimeoutMs)
	defer cancel()
	return p.gate.Classify(gctx, q)
}

func (p *Pipeline) stageCtx(ctx context.Context, timeoutMs int) (context.Context, context.CancelFunc) {
	if timeoutMs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
}
