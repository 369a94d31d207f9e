// Package vocab holds the domain vocabulary backing the query gate: a
// four-tier weighted multilingual term table, the acronym expansions,
// the categorized block list, the universal brand and number-unit
// patterns, and the per-language threshold adjustment factors.
package vocab

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier classifies how strongly a term signals the domain.
type Tier string

const (
	TierHigh    Tier = "high"
	TierMedium  Tier = "medium"
	TierLow     Tier = "low"
	TierGeneric Tier = "generic"
)

// Weight returns the scoring weight of the tier.
func (t Tier) Weight() float64 {
	switch t {
	case TierHigh:
		return 1.0
	case TierMedium:
		return 0.6
	case TierLow:
		return 0.3
	case TierGeneric:
		return 0.1
	}
	return 0
}

// Vocabulary is immutable after construction and safe for concurrent
// reads.
type Vocabulary struct {
	terms    map[string]Tier   // normalized term -> tier
	acronyms map[string]string // lower-cased acronym -> expansion
	blocked  map[string]string // normalized term -> category
	factors  map[string]float64

	brandRe      *regexp.Regexp
	numberUnitRe *regexp.Regexp
}

// Overlay is the YAML override shape. Each section merges over the
// built-in defaults; it cannot remove defaults, only add or retier.
type Overlay struct {
	Terms           map[string][]string `yaml:"terms"`   // tier -> terms
	Acronyms        map[string]string   `yaml:"acronyms"`
	Blocked         map[string][]string `yaml:"blocked"` // category -> terms
	LanguageFactors map[string]float64  `yaml:"language_factors"`
}

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	v := &Vocabulary{
		terms:    make(map[string]Tier, 256),
		acronyms: make(map[string]string, 16),
		blocked:  make(map[string]string, 64),
		factors: map[string]float64{
			"en": 1.00,
			"fr": 0.90,
			"es": 0.85,
			"de": 0.85,
			"pt": 0.80,
			"it": 0.80,
			"pl": 0.75,
			"nl": 0.75,
			"*":  0.70, // weakest coverage
		},
		brandRe: regexp.MustCompile(`(?i)\b(ross\s*308|ross\s*708|cobb\s*500|cobb\s*700|hubbard\s*(flex|classic|ja\d*)?|arbor\s*acres|lohmann|hy-?line|isa\s*brown)\b`),
		// a number next to a production unit, script independent
		numberUnitRe: regexp.MustCompile(`(?i)\d+([.,]\d+)?\s*(g|kg|lb|lbs|%|°c|°f|days?|jours?|días?|tage?|wks?|weeks?|semaines?|semanas?|kcal|ppm|lux|m2|m²|cm|ml|l)\b`),
	}

	for tier, terms := range defaultTerms {
		for _, t := range terms {
			v.terms[t] = tier
		}
	}
	for category, terms := range defaultBlocked {
		for _, t := range terms {
			v.blocked[t] = category
		}
	}
	for a, x := range defaultAcronyms {
		v.acronyms[a] = x
	}
	return v
}

// Load builds the default vocabulary and merges the YAML overlay at
// path on top. Empty path returns the defaults unchanged.
func Load(path string) (*Vocabulary, error) {
	v := Default()
	if path == "" {
		return v, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	var ov Overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}
	v.merge(&ov)
	return v, nil
}

func (v *Vocabulary) merge(ov *Overlay) {
	for tier, terms := range ov.Terms {
		t := Tier(tier)
		if t.Weight() == 0 {
			continue
		}
		for _, term := range terms {
			v.terms[strings.ToLower(term)] = t
		}
	}
	for a, x := range ov.Acronyms {
		v.acronyms[strings.ToLower(a)] = x
	}
	for category, terms := range ov.Blocked {
		for _, term := range terms {
			v.blocked[strings.ToLower(term)] = category
		}
	}
	for lang, f := range ov.LanguageFactors {
		if f > 0 && f <= 1 {
			v.factors[lang] = f
		}
	}
}

// Lookup returns the tier and weight of a normalized token.
func (v *Vocabulary) Lookup(token string) (Tier, float64, bool) {
	t, ok := v.terms[token]
	if !ok {
		return "", 0, false
	}
	return t, t.Weight(), true
}

// BlockedCategory returns the block-list category of the token, empty
// when the token is not blocked.
func (v *Vocabulary) BlockedCategory(token string) string {
	return v.blocked[token]
}

// Expand replaces known acronyms in the lower-cased query with their
// expansions so the scorer sees the full terms.
func (v *Vocabulary) Expand(query string) string {
	fields := strings.Fields(query)
	changed := false
	for i, f := range fields {
		if x, ok := v.acronyms[f]; ok {
			fields[i] = x
			changed = true
		}
	}
	if !changed {
		return query
	}
	return strings.Join(fields, " ")
}

// LanguageFactor returns the threshold adjustment for the language.
// Unknown languages get the permissive wildcard factor.
func (v *Vocabulary) LanguageFactor(lang string) float64 {
	if f, ok := v.factors[lang]; ok {
		return f
	}
	return v.factors["*"]
}

// MatchesUniversal reports whether the raw query carries a
// language-independent domain signal: a known breed brand or a number
// with a production unit.
func (v *Vocabulary) MatchesUniversal(query string) bool {
	return v.brandRe.MatchString(query) || v.numberUnitRe.MatchString(query)
}

// HasBrand reports a breed-brand match specifically.
func (v *Vocabulary) HasBrand(query string) bool {
	return v.brandRe.MatchString(query)
}
