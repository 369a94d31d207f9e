package gate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
	"github.com/dominicdesy/intelia-expert-sub005/translate"
	"github.com/dominicdesy/intelia-expert-sub005/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Disable()
	m.Run()
}

type fixedTranslator struct {
	text string
	conf float64
	ok   bool
}

func (f fixedTranslator) Translate(_ context.Context, _, _ string) (translate.Result, bool) {
	return translate.Result{Text: f.text, Confidence: f.conf, SourceLanguage: "xx"}, f.ok
}

func newGate(tr translate.Translator) *Gate {
	return New(vocab.Default(), tr, Options{})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "eclosabilite a 35 jours", Normalize("Éclosabilité à 35 jours"))
	// non-Latin text is lower-cased only
	assert.Equal(t, "体重 35 日龄", Normalize("体重 35 日龄"))
}

func TestIsLatin(t *testing.T) {
	assert.True(t, IsLatin("poids cible ross 308"))
	assert.False(t, IsLatin("目标体重是多少"))
	assert.True(t, IsLatin("35 days 2.2 kg"))
}

func TestClassifyTechnicalQuery(t *testing.T) {
	g := newGate(nil)
	intent, score := g.Classify(context.Background(), schema.Query{
		Text: "What is the target weight for Ross 308 males at 35 days?", Language: "en",
	})

	assert.True(t, score.InDomain)
	assert.Equal(t, schema.IntentMetric, intent.Intent)
	assert.Equal(t, "ross 308", intent.Entities["breed"])
	assert.Equal(t, "35", intent.Entities["age_days"])
	assert.Equal(t, "male", intent.Entities["sex"])
	assert.Equal(t, "body_weight", intent.Entities["metric"])
	assert.NotEmpty(t, score.Reasoning)
}

func TestClassifyOutOfDomain(t *testing.T) {
	g := newGate(nil)
	_, score := g.Classify(context.Background(), schema.Query{
		Text: "best netflix movie about poker tonight", Language: "en",
	})
	assert.False(t, score.InDomain)
}

func TestBlockedTermsForceRejection(t *testing.T) {
	g := newGate(nil)
	// domain words present, but two blocked terms force the decision
	_, score := g.Classify(context.Background(), schema.Query{
		Text: "broiler weight for my dog and cat", Language: "en",
	})
	assert.False(t, score.InDomain)
	assert.GreaterOrEqual(t, len(score.BlockedTerms), 2)
	assert.Equal(t, schema.TierBlocked, score.Tier)
}

func TestScoreThresholdInvariant(t *testing.T) {
	g := newGate(fixedTranslator{text: "broiler weight", conf: 0.9, ok: true})
	queries := []schema.Query{
		{Text: "target weight ross 308 at 35 days", Language: "en"},
		{Text: "poids cible ross 308 a 35 jours", Language: "fr"},
		{Text: "how do I cook pasta", Language: "en"},
		{Text: "netflix gaming crypto", Language: "en"},
		{Text: "ventilation rate at 21 days", Language: "en"},
		{Text: "", Language: "en"},
	}
	for _, q := range queries {
		_, score := g.Classify(context.Background(), q)
		want := score.FinalScore > score.ThresholdApplied && len(score.BlockedTerms) < 2
		assert.Equal(t, want, score.InDomain, "query %q", q.Text)
	}
}

func TestBlockedMonotonicity(t *testing.T) {
	g := newGate(nil)
	base := "broiler fcr for my dog and cat"
	_, rejected := g.Classify(context.Background(), schema.Query{Text: base, Language: "en"})
	require.False(t, rejected.InDomain)

	// adding more blocked terms must not flip the decision back
	for _, extra := range []string{"horse", "pig", "netflix"} {
		base = base + " " + extra
		_, score := g.Classify(context.Background(), schema.Query{Text: base, Language: "en"})
		assert.False(t, score.InDomain, "with %s", extra)
	}
}

func TestLatinNonPrimaryTranslationRetry(t *testing.T) {
	// a language with no vocabulary coverage at all, forced through the
	// translation path
	g := newGate(fixedTranslator{text: "broiler mortality at 21 days", conf: 0.9, ok: true})
	intent, score := g.Classify(context.Background(), schema.Query{
		Text: "kuolleisuus broilereilla 21 paivana", Language: "fi",
	})
	assert.True(t, score.TranslationUsed)
	assert.Equal(t, "fi", score.SourceLanguage)
	assert.True(t, score.InDomain)
	assert.Equal(t, schema.IntentDiagnosis, intent.Intent)
}

func TestTranslationPenaltyRaisesThreshold(t *testing.T) {
	confident := newGate(fixedTranslator{text: "broiler weight", conf: 1.0, ok: true})
	doubtful := newGate(fixedTranslator{text: "broiler weight", conf: 0.2, ok: true})

	q := schema.Query{Text: "zzz qqq xxx yyy", Language: "fi"}
	_, s1 := confident.Classify(context.Background(), q)
	_, s2 := doubtful.Classify(context.Background(), q)
	if s1.TranslationUsed && s2.TranslationUsed {
		assert.Greater(t, s2.ThresholdApplied, s1.ThresholdApplied)
	}
}

func TestTranslationUnavailableDegrades(t *testing.T) {
	g := newGate(fixedTranslator{ok: false})
	_, score := g.Classify(context.Background(), schema.Query{
		Text: "poids cible ross 308 a 35 jours", Language: "fr",
	})
	// french vocabulary coverage carries this without translation
	assert.False(t, score.TranslationUsed)
	assert.True(t, score.InDomain)
}

func TestNonLatinUniversalPattern(t *testing.T) {
	g := newGate(fixedTranslator{ok: false})
	_, score := g.Classify(context.Background(), schema.Query{
		Text: "Ross 308 35日龄 目标体重 2.2 kg", Language: "zh",
	})
	assert.True(t, score.InDomain)
	assert.Contains(t, strings.Join(score.MatchedTerms, " "), "universal_pattern")
}

func TestNonLatinWithoutSignalRejected(t *testing.T) {
	g := newGate(fixedTranslator{ok: false})
	_, score := g.Classify(context.Background(), schema.Query{
		Text: "今晚有什么好看的电影", Language: "zh",
	})
	assert.False(t, score.InDomain)
}

func TestIntentDefaultsToGeneral(t *testing.T) {
	g := newGate(nil)
	intent, _ := g.Classify(context.Background(), schema.Query{Text: "tell me about chickens", Language: "en"})
	assert.Equal(t, schema.IntentGeneral, intent.Intent)
}

func TestIntentCategories(t *testing.T) {
	g := newGate(nil)
	cases := map[string]schema.Intent{
		"target fcr for cobb 500 at 42 days":          schema.IntentMetric,
		"barn temperature for week 1 brooding":        schema.IntentEnvironment,
		"birds lame with diarrhea and high mortality": schema.IntentDiagnosis,
		"feed cost per kg of gain this cycle":         schema.IntentEconomics,
		"gumboro vaccination schedule for broilers":   schema.IntentProtocol,
	}
	for text, want := range cases {
		intent, _ := g.Classify(context.Background(), schema.Query{Text: text, Language: "en"})
		assert.Equal(t, want, intent.Intent, text)
	}
}

func TestScoreCap(t *testing.T) {
	g := newGate(nil)
	// pile up high-tier terms and technical indicators
	text := "broiler fcr mortality starter grower finisher ross 308 cobb 500 at 35 days 2.2 kg"
	_, score := g.Classify(context.Background(), schema.Query{Text: text, Language: "en"})
	assert.LessOrEqual(t, score.FinalScore, 0.98)
}

func TestWeekToAgeDays(t *testing.T) {
	got := extractEntities(Normalize("temperature for week 3"))
	require.NotNil(t, got)
	assert.Equal(t, "21", got["age_days"])
}

func ExampleNormalize() {
	fmt.Println(Normalize("Éclosabilité"))
	// Output: eclosabilite
}
