// Package translate provides best-effort query translation for the
// domain gate. Translation is always optional: any failure degrades to
// a miss rather than an error, and the gate falls back to its
// untranslated strategies.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dominicdesy/intelia-expert-sub005/common/httpx"
	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
)

// Result carries the translated text and the service's confidence in
// it. Confidence feeds the gate's threshold penalty.
type Result struct {
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	SourceLanguage string  `json:"source_language,omitempty"`
}

// Translator converts text into the target language. The boolean is
// false when translation was unavailable or failed; callers must treat
// that as "proceed without".
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (Result, bool)
}

// Disabled is the no-op translator used when no endpoint is configured.
type Disabled struct{}

func (Disabled) Translate(context.Context, string, string) (Result, bool) {
	return Result{}, false
}

// HTTPTranslator calls a JSON translation service through the shared
// resilient client.
type HTTPTranslator struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *httpx.Client
}

// New returns the translator for the configuration: Disabled when no
// endpoint is set.
func New(cfg config.TranslationConfig, client *httpx.Client) Translator {
	if cfg.Endpoint == "" {
		return Disabled{}
	}
	to := 1500 * time.Millisecond
	if cfg.TimeoutMs > 0 {
		to = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	return &HTTPTranslator{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  to,
		client:   client,
	}
}

type translateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, targetLang string) (Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	body, err := json.Marshal(translateRequest{Text: text, Target: targetLang})
	if err != nil {
		return Result{}, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, false
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		logger.Warnf("translate: request failed: %v", err)
		return Result{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warnf("translate: service returned %d", resp.StatusCode)
		return Result{}, false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, false
	}
	var out Result
	if err := json.Unmarshal(data, &out); err != nil || out.Text == "" {
		logger.Warnf("translate: bad response payload: %v", err)
		return Result{}, false
	}
	if out.Confidence <= 0 || out.Confidence > 1 {
		out.Confidence = 0.5
	}
	return out, true
}
