package gate

import (
	"regexp"

	"github.com/dominicdesy/intelia-expert-sub005/vocab"
)

// ContextType buckets the query shape; each bucket maps to a base
// acceptance threshold.
type ContextType string

const (
	ContextTechnical  ContextType = "technical"
	ContextNumeric    ContextType = "numeric"
	ContextStandard   ContextType = "standard"
	ContextGeneric    ContextType = "generic"
	ContextSuspicious ContextType = "suspicious"
)

var defaultThresholds = map[ContextType]float64{
	ContextTechnical:  0.10,
	ContextNumeric:    0.15,
	ContextStandard:   0.20,
	ContextGeneric:    0.35,
	ContextSuspicious: 0.50,
}

var (
	ageRe        = regexp.MustCompile(`\b(\d{1,3})\s*(d|day|days|j|jour|jours|dia|dias|tag|tage)\b`)
	weekRe       = regexp.MustCompile(`\b(\d{1,2})\s*(wk|wks|week|weeks|semaine|semaines|semana|semanas|woche|wochen)\b`)
	numberUnitRe = regexp.MustCompile(`\d+([.,]\d+)?\s*(g|kg|lb|lbs|%|°c|°f|kcal|ppm|lux|m2|m²|cm|ml|l)\b`)
	urlRe        = regexp.MustCompile(`https?://|www\.`)
	codeRe       = regexp.MustCompile("[{}<>;`]|\\b(select|insert|delete|drop table|function|var|const)\\b")
)

// classifyContext inspects the normalized query and counts technical
// indicators. The indicator count later feeds the context bonus.
func classifyContext(normalized string, v *vocab.Vocabulary) (ContextType, int) {
	indicators := 0
	if v.HasBrand(normalized) {
		indicators += 2
	}
	hasNumberUnit := numberUnitRe.MatchString(normalized)
	hasAge := ageRe.MatchString(normalized) || weekRe.MatchString(normalized)
	if hasNumberUnit {
		indicators++
	}
	if hasAge {
		indicators++
	}

	if urlRe.MatchString(normalized) || codeRe.MatchString(normalized) {
		return ContextSuspicious, indicators
	}

	switch {
	case v.HasBrand(normalized) && (hasNumberUnit || hasAge):
		return ContextTechnical, indicators
	case hasNumberUnit || hasAge:
		return ContextNumeric, indicators
	}

	tokens := Tokenize(normalized)
	if len(tokens) <= 3 && !anyDomainToken(tokens, v) {
		return ContextGeneric, indicators
	}
	if len(tokens) == 0 {
		return ContextSuspicious, indicators
	}
	return ContextStandard, indicators
}

func anyDomainToken(tokens []string, v *vocab.Vocabulary) bool {
	for _, t := range tokens {
		if _, _, ok := v.Lookup(t); ok {
			return true
		}
	}
	return false
}

// baseThreshold returns the acceptance threshold for the context type,
// honoring overrides.
func (g *Gate) baseThreshold(ct ContextType) float64 {
	if t, ok := g.opt.Thresholds[ct]; ok {
		return t
	}
	return defaultThresholds[ContextStandard]
}
