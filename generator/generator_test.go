package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

func TestMain(m *testing.M) {
	logger.Disable()
	m.Run()
}

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
	systems []string
}

func (f *fakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, user)
	return f.reply, f.err
}

func passage(title, content string, score float64) schema.SearchResult {
	return schema.SearchResult{
		Document: schema.Document{
			Content:  content,
			Metadata: map[string]string{"title": title, "source": "manual"},
		},
		Score: score,
	}
}

func TestGenerateGroundedPrompt(t *testing.T) {
	f := &fakeLLM{reply: "Target is 2.2 kg at 35 days."}
	g := New(f, config.DefaultPipeline())

	q := schema.Query{Text: "ross 308 weight at 35 days", Context: "user asked about males earlier"}
	docs := []schema.SearchResult{
		passage("bw-table", "Ross 308 male target bodyweight at 35 days is 2200 g.", 0.9),
	}
	answer, conf, err := g.Generate(context.Background(), q, docs, "en")
	require.NoError(t, err)
	assert.Equal(t, "Target is 2.2 kg at 35 days.", answer)
	assert.Greater(t, conf, 0.8)

	require.Len(t, f.prompts, 1)
	prompt := f.prompts[0]
	assert.Contains(t, prompt, "Ross 308 male target bodyweight")
	assert.Contains(t, prompt, "user asked about males earlier")
	assert.Contains(t, prompt, q.Text)
	assert.Contains(t, prompt, "Answer in English.")
}

func TestGenerateLanguageForcing(t *testing.T) {
	f := &fakeLLM{reply: "ok"}
	g := New(f, config.DefaultPipeline())

	_, _, err := g.Generate(context.Background(), schema.Query{Text: "q"},
		[]schema.SearchResult{passage("t", "content", 0.8)}, "fr")
	require.NoError(t, err)
	assert.Contains(t, f.prompts[0], "Answer in French")
}

func TestGenerateNoDocs(t *testing.T) {
	g := New(&fakeLLM{}, config.DefaultPipeline())
	_, _, err := g.Generate(context.Background(), schema.Query{Text: "q"}, nil, "en")
	assert.Error(t, err)
}

func TestGenerateLLMError(t *testing.T) {
	g := New(&fakeLLM{err: errors.New("rate limited")}, config.DefaultPipeline())
	_, _, err := g.Generate(context.Background(), schema.Query{Text: "q"},
		[]schema.SearchResult{passage("t", "content", 0.8)}, "en")
	assert.Error(t, err)
}

func TestTokenBudgetDropsOverflowingPassages(t *testing.T) {
	cfg := config.DefaultPipeline()
	cfg.ContextTokenBudget = 120
	g := New(&fakeLLM{reply: "ok"}, cfg)

	long := strings.Repeat("filler words padding the passage out considerably ", 40)
	docs := []schema.SearchResult{
		passage("first", "Short relevant passage about broiler weight targets.", 0.9),
		passage("second", long, 0.8),
		passage("third", long, 0.7),
	}
	f := g.llm.(*fakeLLM)
	_, _, err := g.Generate(context.Background(), schema.Query{Text: "q"}, docs, "en")
	require.NoError(t, err)

	prompt := f.prompts[0]
	assert.Contains(t, prompt, "Short relevant passage")
	// the budget cannot fit both long passages in full
	assert.Less(t, g.countTokens(prompt), 400)
}

func TestCompressText(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	assert.Equal(t, "one two three four five six seven", compressText(text, 0.7))
	assert.Equal(t, text, compressText(text, 0))
	assert.Equal(t, text, compressText(text, 1))
	assert.Equal(t, "one", compressText(text, 0.01))
}

func TestConfidenceReflectsEvidence(t *testing.T) {
	g := New(&fakeLLM{}, config.DefaultPipeline())
	strong := g.confidence([]schema.SearchResult{{Score: 0.95}, {Score: 0.9}})
	weak := g.confidence([]schema.SearchResult{{Score: 0.4}, {Score: 0.2}})
	assert.Greater(t, strong, weak)
	assert.LessOrEqual(t, strong, 0.98)
}

func TestShouldVerify(t *testing.T) {
	metric := schema.IntentResult{Intent: schema.IntentMetric}
	general := schema.IntentResult{Intent: schema.IntentGeneral}

	assert.True(t, ShouldVerify(metric, "plain text answer", 0.9, 0.75))
	assert.True(t, ShouldVerify(general, "target is 2200 g", 0.9, 0.75))
	assert.True(t, ShouldVerify(general, "no numbers here", 0.5, 0.75))
	assert.False(t, ShouldVerify(general, "no numbers here", 0.9, 0.75))
}

func TestVerifyVerdicts(t *testing.T) {
	q := schema.Query{Text: "q"}
	docs := []schema.SearchResult{passage("t", "evidence", 0.9)}

	supported, ok := NewVerifier(&fakeLLM{reply: "SUPPORTED"}).Verify(context.Background(), q, "a", docs)
	assert.True(t, ok)
	assert.True(t, supported)

	supported, ok = NewVerifier(&fakeLLM{reply: "unsupported"}).Verify(context.Background(), q, "a", docs)
	assert.True(t, ok)
	assert.False(t, supported)

	_, ok = NewVerifier(&fakeLLM{err: errors.New("timeout")}).Verify(context.Background(), q, "a", docs)
	assert.False(t, ok)

	_, ok = NewVerifier(&fakeLLM{reply: "maybe?"}).Verify(context.Background(), q, "a", docs)
	assert.False(t, ok)
}
