package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/llm"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

const verifySystemPrompt = `You check whether an answer is supported by
reference passages. Reply with exactly one word: SUPPORTED if every
factual claim in the answer appears in the passages, UNSUPPORTED
otherwise.`

var numericRe = regexp.MustCompile(`\d`)

// Verifier cross-checks a generated answer against its evidence.
type Verifier struct {
	llm llm.Provider
}

func NewVerifier(provider llm.Provider) *Verifier {
	return &Verifier{llm: provider}
}

// ShouldVerify implements the smart-mode decision: verify numeric or
// metric answers, and anything generated with low confidence.
func ShouldVerify(intent schema.IntentResult, answer string, confidence, verifyBelow float64) bool {
	if intent.Intent == schema.IntentMetric {
		return true
	}
	if numericRe.MatchString(answer) {
		return true
	}
	return confidence < verifyBelow
}

// Verify returns (supported, ok). ok is false when the check itself
// failed; callers must then only lower confidence, never drop the
// answer.
func (v *Verifier) Verify(ctx context.Context, q schema.Query, answer string, docs []schema.SearchResult) (bool, bool) {
	var b strings.Builder
	b.WriteString("Passages:\n\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, d.Document.Content)
	}
	fmt.Fprintf(&b, "Question: %s\n\nAnswer to check:\n%s", q.Text, answer)

	verdict, err := v.llm.Complete(ctx, verifySystemPrompt, b.String())
	if err != nil {
		logger.Warnf("verifier: check failed: %v", err)
		return false, false
	}
	verdict = strings.ToUpper(strings.TrimSpace(verdict))
	switch {
	case strings.HasPrefix(verdict, "SUPPORTED"):
		return true, true
	case strings.HasPrefix(verdict, "UNSUPPORTED"):
		return false, true
	default:
		logger.Warnf("verifier: unparseable verdict %q", verdict)
		return false, false
	}
}
