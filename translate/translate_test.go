package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dominicdesy/intelia-expert-sub005/common/httpx"
	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Disable()
	m.Run()
}

func newTranslator(endpoint string) Translator {
	client := httpx.NewFromConfig(config.HTTPClientConfig{TimeoutMs: 500})
	return New(config.TranslationConfig{Endpoint: endpoint, TimeoutMs: 500}, client)
}

func TestTranslateOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"target weight ross 308 at 35 days","confidence":0.92,"source_language":"es"}`))
	}))
	defer srv.Close()

	out, ok := newTranslator(srv.URL).Translate(context.Background(), "peso objetivo ross 308 a 35 dias", "en")
	require.True(t, ok)
	assert.Equal(t, "target weight ross 308 at 35 days", out.Text)
	assert.Equal(t, 0.92, out.Confidence)
	assert.Equal(t, "es", out.SourceLanguage)
}

func TestTranslateServiceErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, ok := newTranslator(srv.URL).Translate(context.Background(), "texte", "en")
	assert.False(t, ok)
}

func TestTranslateBadPayloadDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, ok := newTranslator(srv.URL).Translate(context.Background(), "texte", "en")
	assert.False(t, ok)
}

func TestTranslateClampsConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"ok","confidence":3.5}`))
	}))
	defer srv.Close()

	out, ok := newTranslator(srv.URL).Translate(context.Background(), "texte", "en")
	require.True(t, ok)
	assert.Equal(t, 0.5, out.Confidence)
}

func TestDisabled(t *testing.T) {
	tr := New(config.TranslationConfig{}, nil)
	_, ok := tr.Translate(context.Background(), "anything", "en")
	assert.False(t, ok)
}
