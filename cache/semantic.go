// Package cache implements the three-tier semantic response cache:
// strict entity keys, an optional permissive fallback tier, and an
// exact-text tier. Backed by Redis or an in-memory LRU store.
package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

// Semantic is the tiered cache. A cache failure is never a request
// failure: Get degrades to a miss, Set to a no-op, and consecutive
// store errors open an exponential backoff window during which all
// operations short-circuit.
type Semantic struct {
	store Store
	cfg   config.CacheConfig

	mu           sync.Mutex
	failures     int
	blockedUntil time.Time
}

func NewSemantic(store Store, cfg config.CacheConfig) *Semantic {
	return &Semantic{store: store, cfg: cfg}
}

// Lookup searches the tiers in order: strict, fallback (when enabled),
// exact. Returns the cached result and the tier it came from.
func (s *Semantic) Lookup(ctx context.Context, lang string, intent schema.IntentResult, normalizedText, contextHash string) (*schema.PipelineResult, string, bool) {
	if !s.cfg.Enable || s.unavailable() {
		return nil, "", false
	}
	for _, tk := range candidateKeys(lang, intent, normalizedText, contextHash, s.cfg.EnableFallbackTier) {
		raw, found, err := s.store.Get(ctx, tk.key)
		if err != nil {
			s.recordFailure(err)
			return nil, "", false
		}
		if !found {
			continue
		}
		s.recordSuccess()
		result, err := s.decode(raw)
		if err != nil {
			logger.Warnf("cache: undecodable entry at %s: %v", tk.key, err)
			continue
		}
		return result, tk.tier, true
	}
	s.recordSuccess()
	return nil, "", false
}

// Write stores the result. The exact tier is always populated; strict
// and fallback only when the query is eligible for them.
func (s *Semantic) Write(ctx context.Context, lang string, intent schema.IntentResult, normalizedText, contextHash string, result *schema.PipelineResult) {
	if !s.cfg.Enable || s.unavailable() {
		return
	}
	payload, err := s.encode(result)
	if err != nil {
		logger.Warnf("cache: encode failed: %v", err)
		return
	}
	if s.cfg.MaxValueBytes > 0 && len(payload) > s.cfg.MaxValueBytes {
		logger.Warnf("cache: value of %d bytes exceeds limit %d, not cached", len(payload), s.cfg.MaxValueBytes)
		return
	}

	s.maybeEvict(ctx)

	if k, ok := StrictKey(lang, intent.Entities); ok {
		s.set(ctx, k, payload, s.ttl(TierStrict))
	}
	if s.cfg.EnableFallbackTier {
		if k, ok := FallbackKey(lang, intent.Entities); ok {
			s.set(ctx, k, payload, s.ttl(TierFallback))
		}
	}
	s.set(ctx, ExactKey(lang, normalizedText, contextHash), payload, s.ttl(TierExact))
}

// Invalidate drops a whole tier namespace, e.g. after a corpus reindex.
func (s *Semantic) Invalidate(ctx context.Context, namespace string) (int, error) {
	return s.store.DeletePrefix(ctx, namespace, 1)
}

func (s *Semantic) set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := s.store.Set(ctx, key, payload, ttl); err != nil {
		s.recordFailure(err)
		return
	}
	s.recordSuccess()
}

func (s *Semantic) ttl(tier string) time.Duration {
	switch tier {
	case TierStrict:
		return time.Duration(s.cfg.StrictTTLSeconds) * time.Second
	case TierFallback:
		return time.Duration(s.cfg.FallbackTTLSeconds) * time.Second
	default:
		return time.Duration(s.cfg.ExactTTLSeconds) * time.Second
	}
}

// maybeEvict purges namespaces, shortest TTL class first, when usage
// crosses the purge threshold. Each namespace loses at most the
// configured fraction per pass so a single write cannot empty the
// cache.
func (s *Semantic) maybeEvict(ctx context.Context) {
	limit := int64(s.cfg.MemoryLimitMB) << 20
	if limit <= 0 {
		return
	}
	used, err := s.store.UsedBytes(ctx)
	if err != nil {
		s.recordFailure(err)
		return
	}
	ratio := float64(used) / float64(limit)
	if ratio >= s.cfg.WarnAtRatio && ratio < s.cfg.PurgeAtRatio {
		logger.Warnf("cache: memory usage at %.0f%% of limit", ratio*100)
	}
	if ratio < s.cfg.PurgeAtRatio {
		return
	}

	for _, ns := range s.evictionOrder() {
		if _, err := s.store.DeletePrefix(ctx, ns, s.cfg.MaxPurgeRatio); err != nil {
			s.recordFailure(err)
			return
		}
		used, err = s.store.UsedBytes(ctx)
		if err != nil {
			s.recordFailure(err)
			return
		}
		if float64(used)/float64(limit) < s.cfg.WarnAtRatio {
			return
		}
	}
}

// evictionOrder sorts the namespaces by their TTL class, shortest
// first.
func (s *Semantic) evictionOrder() []string {
	type nsTTL struct {
		ns  string
		ttl time.Duration
	}
	order := []nsTTL{
		{NamespaceFallback, s.ttl(TierFallback)},
		{NamespaceExact, s.ttl(TierExact)},
		{NamespaceStrict, s.ttl(TierStrict)},
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if order[j].ttl < order[i].ttl {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	out := make([]string, len(order))
	for i, o := range order {
		out[i] = o.ns
	}
	return out
}

func (s *Semantic) encode(result *schema.PipelineResult) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	entry := schema.CacheEntry{Payload: raw, SizeBytes: len(raw)}
	if s.cfg.Compression && len(raw) >= s.cfg.CompressionMinBytes {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err == nil && zw.Close() == nil {
			entry.Payload = buf.Bytes()
			entry.Compressed = true
		}
	}
	return json.Marshal(entry)
}

func (s *Semantic) decode(raw []byte) (*schema.PipelineResult, error) {
	var entry schema.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	payload := entry.Payload
	if entry.Compressed {
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		payload, err = io.ReadAll(zr)
		if err != nil {
			return nil, err
		}
	}
	var result schema.PipelineResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// unavailable reports whether the error backoff window is open.
func (s *Semantic) unavailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.blockedUntil)
}

func (s *Semantic) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if s.failures < s.cfg.BackoffAfter {
		return
	}
	backoff := time.Duration(s.cfg.BackoffBaseMs) * time.Millisecond
	for i := s.cfg.BackoffAfter; i < s.failures; i++ {
		backoff *= 2
	}
	if max := time.Duration(s.cfg.BackoffMaxMs) * time.Millisecond; backoff > max {
		backoff = max
	}
	s.blockedUntil = time.Now().Add(backoff)
	logger.Warnf("cache: store failing (%d consecutive), backing off %v: %v", s.failures, backoff, err)
}

func (s *Semantic) recordSuccess() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}
