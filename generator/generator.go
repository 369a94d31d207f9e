// Package generator produces the grounded answer from retrieved
// passages and optionally verifies it against them.
package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/llm"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

const systemPrompt = `You are a broiler production expert assistant.
Answer using ONLY the reference passages provided. If the passages do
not contain the answer, say you do not have that information. Quote
numeric targets exactly as given in the passages. Keep answers concise
and practical.`

var languageNames = map[string]string{
	"en": "English", "fr": "French", "es": "Spanish", "de": "German",
	"pt": "Portuguese", "it": "Italian", "pl": "Polish", "nl": "Dutch",
	"zh": "Chinese", "th": "Thai",
}

// Generator assembles the grounded prompt under a token budget and
// calls the model.
type Generator struct {
	llm    llm.Provider
	budget int
	ratio  float64

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

func New(provider llm.Provider, cfg config.PipelineConfig) *Generator {
	return &Generator{
		llm:    provider,
		budget: cfg.ContextTokenBudget,
		ratio:  cfg.CompressRatio,
	}
}

// Generate returns the answer and a confidence derived from evidence
// strength.
func (g *Generator) Generate(ctx context.Context, q schema.Query, docs []schema.SearchResult, lang string) (string, float64, error) {
	if len(docs) == 0 {
		return "", 0, fmt.Errorf("generate: no supporting passages")
	}

	prompt := g.buildPrompt(q, docs, lang)
	answer, err := g.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", 0, fmt.Errorf("generate: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", 0, fmt.Errorf("generate: empty completion")
	}
	return answer, g.confidence(docs), nil
}

func (g *Generator) buildPrompt(q schema.Query, docs []schema.SearchResult, lang string) string {
	var b strings.Builder
	b.WriteString("Reference passages:\n\n")

	remaining := g.budget
	included := 0
	for i, d := range docs {
		block := fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, d.Title(), d.Source(), d.Document.Content)
		cost := g.countTokens(block)
		if cost > remaining {
			// shrink the passage before giving up on it
			compressed := compressText(d.Document.Content, g.ratio)
			block = fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, d.Title(), d.Source(), compressed)
			cost = g.countTokens(block)
			if cost > remaining {
				break
			}
		}
		b.WriteString(block)
		remaining -= cost
		included++
	}
	if included < len(docs) {
		logger.Debugf("generator: token budget kept %d of %d passages", included, len(docs))
	}

	if q.Context != "" {
		b.WriteString("Earlier conversation:\n")
		b.WriteString(q.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(q.Text)
	b.WriteString("\n\n")
	b.WriteString(languageInstruction(lang))
	return b.String()
}

// confidence reflects how strong the evidence was, not how fluent the
// answer is.
func (g *Generator) confidence(docs []schema.SearchResult) float64 {
	top := docs[0].Score
	var sum float64
	for _, d := range docs {
		sum += d.Score
	}
	avg := sum / float64(len(docs))
	conf := 0.6*top + 0.4*avg
	if conf > 0.98 {
		conf = 0.98
	}
	return conf
}

func (g *Generator) countTokens(text string) int {
	g.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warnf("generator: tiktoken unavailable, estimating tokens: %v", err)
			return
		}
		g.enc = enc
	})
	if g.enc == nil {
		// rough estimate, ~1.3 tokens per word
		return len(strings.Fields(text)) * 4 / 3
	}
	return len(g.enc.Encode(text, nil, nil))
}

func languageInstruction(lang string) string {
	name, ok := languageNames[lang]
	if !ok || lang == "en" {
		return "Answer in English."
	}
	return fmt.Sprintf("Answer in %s, even though the passages are in English.", name)
}

// compressText keeps the leading fraction of the text by word count.
func compressText(text string, targetRatio float64) string {
	if targetRatio <= 0 || targetRatio >= 1 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	keep := int(float64(len(words)) * targetRatio)
	if keep <= 0 {
		keep = 1
	}
	if keep >= len(words) {
		return text
	}
	return strings.Join(words[:keep], " ")
}
