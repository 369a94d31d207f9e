package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

// Namespace prefixes. Eviction order follows TTL class, shortest first.
const (
	NamespaceStrict   = "sc:strict:"
	NamespaceFallback = "sc:fb:"
	NamespaceExact    = "sc:exact:"
)

// TierStrict et al. name the tier a hit came from in PipelineResult.
const (
	TierStrict   = "strict"
	TierFallback = "fallback"
	TierExact    = "exact"
)

// StrictKey derives the strict semantic key. It requires a recognized
// entity line, a metric and an explicit age qualifier; with any of them
// missing the strict tier is skipped entirely, never partially applied.
func StrictKey(lang string, entities map[string]string) (string, bool) {
	breed := entities["breed"]
	metric := entities["metric"]
	age := entities["age_days"]
	if breed == "" || metric == "" || age == "" {
		return "", false
	}
	return NamespaceStrict + keyPart(lang) + ":" + keyPart(breed) + ":" + keyPart(metric) + ":" + keyPart(age), true
}

// FallbackKey derives the permissive key: entity plus metric, age
// optional. Callers must only use it when the fallback tier is enabled.
func FallbackKey(lang string, entities map[string]string) (string, bool) {
	breed := entities["breed"]
	metric := entities["metric"]
	if breed == "" || metric == "" {
		return "", false
	}
	return NamespaceFallback + keyPart(lang) + ":" + keyPart(breed) + ":" + keyPart(metric), true
}

// ExactKey hashes the normalized query text together with the
// conversation context hash and the language. Same question, same
// context, same language: same key.
func ExactKey(lang, normalizedText, contextHash string) string {
	h := sha1.Sum([]byte(normalizedText + "\x00" + contextHash))
	return fmt.Sprintf("%s%s:%s", NamespaceExact, keyPart(lang), hex.EncodeToString(h[:]))
}

// ContextHash folds the conversation context into a short digest for
// the exact key.
func ContextHash(context string) string {
	if context == "" {
		return "none"
	}
	h := sha1.Sum([]byte(context))
	return hex.EncodeToString(h[:8])
}

func keyPart(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, " ", "_")
	v = strings.ReplaceAll(v, ":", "_")
	if v == "" {
		return "none"
	}
	return v
}

// candidateKeys lists lookup keys in tier order for a query.
func candidateKeys(lang string, intent schema.IntentResult, normalizedText, contextHash string, fallbackEnabled bool) []tierKey {
	var keys []tierKey
	if k, ok := StrictKey(lang, intent.Entities); ok {
		keys = append(keys, tierKey{tier: TierStrict, key: k})
	}
	if fallbackEnabled {
		if k, ok := FallbackKey(lang, intent.Entities); ok {
			keys = append(keys, tierKey{tier: TierFallback, key: k})
		}
	}
	keys = append(keys, tierKey{tier: TierExact, key: ExactKey(lang, normalizedText, contextHash)})
	return keys
}

type tierKey struct {
	tier string
	key  string
}
