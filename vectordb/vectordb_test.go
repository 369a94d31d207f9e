package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScoreL2(t *testing.T) {
	s, isDist := NormalizeScore("L2", 0)
	assert.True(t, isDist)
	assert.Equal(t, 1.0, s)

	s, _ = NormalizeScore("L2", 1)
	assert.Equal(t, 0.5, s)

	// closer distance always scores higher
	near, _ := NormalizeScore("L2", 0.3)
	far, _ := NormalizeScore("L2", 2.7)
	assert.Greater(t, near, far)
}

func TestNormalizeScoreCosine(t *testing.T) {
	s, isDist := NormalizeScore("COSINE", 1)
	assert.False(t, isDist)
	assert.Equal(t, 1.0, s)

	s, _ = NormalizeScore("COSINE", -1)
	assert.Equal(t, 0.0, s)

	s, _ = NormalizeScore("COSINE", 0)
	assert.Equal(t, 0.5, s)
}

func TestNormalizeScoreIPClamped(t *testing.T) {
	s, isDist := NormalizeScore("IP", 1.7)
	assert.False(t, isDist)
	assert.Equal(t, 1.0, s)

	s, _ = NormalizeScore("IP", -0.2)
	assert.Equal(t, 0.0, s)
}

func TestBuildFilterExpr(t *testing.T) {
	expr := buildFilterExpr(map[string]string{
		"breed":    "ross 308",
		"age_days": "35",
	})
	assert.Contains(t, expr, `breed == "ross 308"`)
	assert.Contains(t, expr, `age_days == "35"`)
	assert.Contains(t, expr, " and ")

	assert.Empty(t, buildFilterExpr(nil))
	// unknown keys are ignored, values sanitized
	expr = buildFilterExpr(map[string]string{"breed": `ro"ss%`, "bogus": "x"})
	assert.Equal(t, `breed == "ross"`, expr)
}

func TestKeywordScore(t *testing.T) {
	content := "Ross 308 target bodyweight at 35 days is 2.2 kg"
	assert.Equal(t, 1.0, keywordScore(content, []string{"ross", "bodyweight"}))
	assert.Equal(t, 0.5, keywordScore(content, []string{"ross", "mortality"}))
	assert.Equal(t, 0.0, keywordScore(content, []string{"mortality"}))
}
