// Package gate decides whether a query belongs to the broiler
// production domain and what the caller is asking for. It is the first
// pipeline stage; everything downstream trusts its IntentResult and
// DomainScore.
package gate

import (
	"context"
	"fmt"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
	"github.com/dominicdesy/intelia-expert-sub005/translate"
	"github.com/dominicdesy/intelia-expert-sub005/vocab"
)

// Options are the gate tunables. Zero values fall back to defaults.
type Options struct {
	PrimaryLanguage    string
	MaxScore           float64
	BlockCount         int
	TranslationPenalty float64
	Thresholds         map[ContextType]float64
}

// OptionsFromConfig lifts the gate tunables out of the pipeline config.
func OptionsFromConfig(p config.PipelineConfig) Options {
	return Options{
		PrimaryLanguage:    p.PrimaryLanguage,
		MaxScore:           p.GateMaxScore,
		BlockCount:         p.GateBlockCount,
		TranslationPenalty: p.TranslationPenalty,
	}
}

func (o Options) withDefaults() Options {
	if o.PrimaryLanguage == "" {
		o.PrimaryLanguage = "en"
	}
	if o.MaxScore <= 0 {
		o.MaxScore = 0.98
	}
	if o.BlockCount <= 0 {
		o.BlockCount = 2
	}
	if o.TranslationPenalty <= 0 {
		o.TranslationPenalty = 0.30
	}
	if o.Thresholds == nil {
		o.Thresholds = defaultThresholds
	}
	return o
}

// Gate classifies queries. Safe for concurrent use.
type Gate struct {
	vocab      *vocab.Vocabulary
	translator translate.Translator
	opt        Options
}

func New(v *vocab.Vocabulary, tr translate.Translator, opt Options) *Gate {
	if tr == nil {
		tr = translate.Disabled{}
	}
	return &Gate{vocab: v, translator: tr, opt: opt.withDefaults()}
}

// pass is one full scoring run over a single text variant.
type pass struct {
	intent    schema.IntentResult
	score     float64
	threshold float64
	ctxType   ContextType
	matched   []string
	blocked   []string
	lang      string
}

// Classify runs the gating algorithm. It never returns an error: any
// internal failure degrades to an in-domain, zero-confidence general
// intent so the pipeline can still try to answer.
func (g *Gate) Classify(ctx context.Context, q schema.Query) (schema.IntentResult, schema.DomainScore) {
	lang := q.Language
	if lang == "" {
		lang = g.opt.PrimaryLanguage
	}

	normalized := Normalize(q.Text)
	if normalized == "" {
		return schema.IntentResult{Intent: schema.IntentGeneral},
			g.decide(pass{ctxType: ContextSuspicious, threshold: g.baseThreshold(ContextSuspicious), lang: lang}, schema.DomainScore{})
	}

	if IsLatin(normalized) {
		return g.classifyLatin(ctx, normalized, lang)
	}
	return g.classifyNonLatin(ctx, q.Text, normalized, lang)
}

func (g *Gate) classifyLatin(ctx context.Context, normalized, lang string) (schema.IntentResult, schema.DomainScore) {
	p := g.runPass(normalized, lang)
	if lang == g.opt.PrimaryLanguage || p.score > p.threshold {
		return p.intent, g.decide(p, schema.DomainScore{})
	}

	// Weak match in a non-primary Latin language: translate and retry
	// with a stricter threshold proportional to translation doubt.
	res, ok := g.translator.Translate(ctx, normalized, g.opt.PrimaryLanguage)
	if !ok {
		return p.intent, g.decide(p, schema.DomainScore{})
	}
	tp := g.runPass(Normalize(res.Text), g.opt.PrimaryLanguage)
	tp.threshold *= 1 + g.opt.TranslationPenalty*(1-res.Confidence)
	prov := schema.DomainScore{
		SourceLanguage:  lang,
		TranslatedText:  res.Text,
		TranslationUsed: true,
		TranslationConf: res.Confidence,
	}
	if tp.score > tp.threshold && len(tp.blocked) < g.opt.BlockCount {
		return tp.intent, g.decide(tp, prov)
	}
	// Keep whichever pass looked better relative to its threshold.
	if p.score-p.threshold >= tp.score-tp.threshold {
		return p.intent, g.decide(p, schema.DomainScore{})
	}
	return tp.intent, g.decide(tp, prov)
}

func (g *Gate) classifyNonLatin(ctx context.Context, raw, normalized, lang string) (schema.IntentResult, schema.DomainScore) {
	// Brand names and number-unit pairs survive any script.
	if g.vocab.MatchesUniversal(raw) {
		p := g.runPass(normalized, lang)
		p.ctxType = ContextTechnical
		p.threshold = g.baseThreshold(ContextTechnical) * g.vocab.LanguageFactor(lang)
		if p.score < 0.5 {
			p.score = 0.5
			p.matched = append(p.matched, "universal_pattern")
		}
		return p.intent, g.decide(p, schema.DomainScore{})
	}

	if res, ok := g.translator.Translate(ctx, raw, g.opt.PrimaryLanguage); ok {
		tp := g.runPass(Normalize(res.Text), g.opt.PrimaryLanguage)
		tp.threshold *= 1 + g.opt.TranslationPenalty*(1-res.Confidence)
		return tp.intent, g.decide(tp, schema.DomainScore{
			SourceLanguage:  lang,
			TranslatedText:  res.Text,
			TranslationUsed: true,
			TranslationConf: res.Confidence,
		})
	}

	// Last resort: permissive keyword match with the weakest language
	// factor. Embedded Latin tokens (brand names, acronyms) still hit.
	p := g.runPass(normalized, "*")
	logger.Debugf("gate: non-latin fallback keyword match score=%.3f", p.score)
	return p.intent, g.decide(p, schema.DomainScore{})
}

// runPass scores one text variant end to end.
func (g *Gate) runPass(normalized, lang string) pass {
	expanded := g.vocab.Expand(normalized)
	ctxType, indicators := classifyContext(expanded, g.vocab)
	intent := classifyIntent(expanded)

	tokens := Tokenize(expanded)
	var sum float64
	var matched, blocked []string
	for _, t := range tokens {
		if _, w, ok := g.vocab.Lookup(t); ok {
			sum += w
			matched = append(matched, t)
		}
		if cat := g.vocab.BlockedCategory(t); cat != "" {
			blocked = append(blocked, t+":"+cat)
		}
	}
	score := 0.0
	if len(tokens) > 0 {
		score = sum / float64(len(tokens))
	}

	if ctxType == ContextTechnical {
		score += 0.15
	}
	score += 0.05 * float64(indicators)
	if intent.Confidence > 0.8 {
		score += 0.1
	}
	if score > g.opt.MaxScore {
		score = g.opt.MaxScore
	}

	threshold := g.baseThreshold(ctxType) * g.vocab.LanguageFactor(lang)
	return pass{
		intent:    intent,
		score:     score,
		threshold: threshold,
		ctxType:   ctxType,
		matched:   matched,
		blocked:   blocked,
		lang:      lang,
	}
}

// decide turns a pass into the final DomainScore, enforcing the
// blocked-term rule and composing the reasoning string.
func (g *Gate) decide(p pass, prov schema.DomainScore) schema.DomainScore {
	inDomain := p.score > p.threshold && len(p.blocked) < g.opt.BlockCount

	tier := schema.TierGeneric
	switch {
	case len(p.blocked) >= g.opt.BlockCount:
		tier = schema.TierBlocked
	case p.score >= 0.6:
		tier = schema.TierHigh
	case p.score >= 0.3:
		tier = schema.TierMedium
	case inDomain:
		tier = schema.TierLow
	}

	reason := fmt.Sprintf("ctx=%s score=%.3f threshold=%.3f matched=%d blocked=%d lang=%s",
		p.ctxType, p.score, p.threshold, len(p.matched), len(p.blocked), p.lang)
	if prov.TranslationUsed {
		reason += fmt.Sprintf(" translated_from=%s conf=%.2f", prov.SourceLanguage, prov.TranslationConf)
	}

	prov.FinalScore = p.score
	prov.Tier = tier
	prov.MatchedTerms = p.matched
	prov.BlockedTerms = p.blocked
	prov.ThresholdApplied = p.threshold
	prov.InDomain = inDomain
	prov.Reasoning = reason
	return prov
}
