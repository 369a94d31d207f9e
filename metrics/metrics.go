// Package metrics exposes prometheus collectors for the query pipeline
// and a per-query JSON record for log analysis.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	gateDecision = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expert_gate_decision_total",
		Help: "Gate decisions by outcome (accepted/rejected) and tier",
	}, []string{"outcome", "tier"})

	gateScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "expert_gate_score",
		Help:    "Domain relevance score distribution",
		Buckets: []float64{0.05, 0.1, 0.15, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.98},
	})

	stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expert_stage_latency_ms",
		Help:    "Latency of pipeline stages in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1500, 3000, 8000, 20000},
	}, []string{"stage"})

	retrievalResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "expert_retrieval_results",
		Help:    "Number of candidates surviving retrieval",
		Buckets: []float64{0, 1, 2, 4, 8, 12, 20, 50},
	})

	fallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expert_retrieval_fallback_total",
		Help: "Retrieval fallbacks by kind (age/keyword)",
	}, []string{"kind"})

	cacheOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expert_cache_ops_total",
		Help: "Cache lookups by result (hit/miss) and tier",
	}, []string{"result", "tier"})

	answers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expert_answers_total",
		Help: "Pipeline outcomes by status",
	}, []string{"status"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(gateDecision, gateScore, stageLatency,
			retrievalResults, fallbackTotal, cacheOps, answers)
	})
}

// ObserveGate records a gate decision.
func ObserveGate(accepted bool, tier string, score float64) {
	ensureRegistered()
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	gateDecision.WithLabelValues(outcome, tier).Inc()
	gateScore.Observe(score)
}

// ObserveStage records latency of one pipeline stage.
func ObserveStage(stage string, start time.Time) {
	ensureRegistered()
	stageLatency.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveRetrieval records the surviving candidate count and fallbacks.
func ObserveRetrieval(results int, ageFallback, keywordFallback bool) {
	ensureRegistered()
	retrievalResults.Observe(float64(results))
	if ageFallback {
		fallbackTotal.WithLabelValues("age").Inc()
	}
	if keywordFallback {
		fallbackTotal.WithLabelValues("keyword").Inc()
	}
}

// ObserveCache records a cache lookup outcome. tier is empty on a miss.
func ObserveCache(hit bool, tier string) {
	ensureRegistered()
	if hit {
		cacheOps.WithLabelValues("hit", tier).Inc()
		return
	}
	cacheOps.WithLabelValues("miss", "none").Inc()
}

// IncAnswer counts a terminal pipeline status.
func IncAnswer(status string) {
	ensureRegistered()
	answers.WithLabelValues(status).Inc()
}

// Collectors exposes the collectors for registration with a custom
// registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		gateDecision, gateScore, stageLatency, retrievalResults,
		fallbackTotal, cacheOps, answers,
	}
}
