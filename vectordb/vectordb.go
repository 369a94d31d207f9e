// Package vectordb abstracts the vector index behind the two search
// modes the retriever needs.
package vectordb

import (
	"context"

	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

// Provider is the vector store surface. SearchVectors runs approximate
// nearest neighbor search with an optional metadata filter;
// SearchKeywords runs a term match over the content field for the
// keyword fallback.
type Provider interface {
	SearchVectors(ctx context.Context, vector []float32, opts schema.SearchOptions) ([]schema.SearchResult, error)
	SearchKeywords(ctx context.Context, terms []string, opts schema.SearchOptions) ([]schema.SearchResult, error)
	Close() error
}

// NormalizeScore converts a raw index measure into a [0,1] relevance
// score. Distance metrics (L2) shrink with similarity, so they map
// through 1/(1+d); similarity metrics pass through clamped.
func NormalizeScore(metricType string, raw float32) (score float64, isDistance bool) {
	switch metricType {
	case "L2":
		d := float64(raw)
		if d < 0 {
			d = 0
		}
		return 1 / (1 + d), true
	case "COSINE":
		// cosine similarity in [-1,1]
		s := (float64(raw) + 1) / 2
		return clamp01(s), false
	default: // IP and anything similarity-like
		return clamp01(float64(raw)), false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
