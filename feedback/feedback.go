// Package feedback tracks answer outcomes and user ratings so the
// pipeline can widen retrieval when recent answers keep missing.
package feedback

import (
	"sync"
	"time"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
)

// Outcome is the terminal record of one processed query.
type Outcome struct {
	QueryID    string
	Intent     string
	Status     string
	Verified   bool
	Confidence float64
	FromCache  bool
	Helpful    *bool
	RatedAt    time.Time
	Timestamp  time.Time
}

// Manager keeps a bounded outcome history. All methods are safe for
// concurrent use.
type Manager struct {
	mu             sync.RWMutex
	history        []Outcome
	maxHistory     int
	windowSize     int
	expandAfterBad int
}

func NewManager() *Manager {
	return &Manager{
		history:        make([]Outcome, 0, 200),
		maxHistory:     200,
		windowSize:     20,
		expandAfterBad: 3,
	}
}

// RecordOutcome appends a query outcome, trimming to the bound.
func (m *Manager) RecordOutcome(o Outcome) {
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, o)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

// RecordRating attaches a user rating to a previously recorded query.
// Returns false when the query is no longer in the window.
func (m *Manager) RecordRating(queryID string, helpful bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].QueryID == queryID {
			m.history[i].Helpful = &helpful
			m.history[i].RatedAt = time.Now()
			logger.Infof("feedback: query %s rated helpful=%v", queryID, helpful)
			return true
		}
	}
	return false
}

// ShouldExpandSearch reports whether retrieval should be widened:
// true after a streak of recent queries that were rated unhelpful or
// ended without an answer.
func (m *Manager) ShouldExpandSearch() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	streak := 0
	for i := len(m.history) - 1; i >= 0 && streak < m.expandAfterBad; i-- {
		o := m.history[i]
		bad := o.Status == "fallback_needed" ||
			(o.Helpful != nil && !*o.Helpful)
		if !bad {
			return false
		}
		streak++
	}
	return streak >= m.expandAfterBad
}

// Stats summarizes the retained history for the monitoring tool.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.history)
	if total == 0 {
		return map[string]interface{}{"total_count": 0}
	}

	byStatus := map[string]int{}
	verified, cached, rated, helpful := 0, 0, 0, 0
	for _, o := range m.history {
		byStatus[o.Status]++
		if o.Verified {
			verified++
		}
		if o.FromCache {
			cached++
		}
		if o.Helpful != nil {
			rated++
			if *o.Helpful {
				helpful++
			}
		}
	}

	stats := map[string]interface{}{
		"total_count":    total,
		"by_status":      byStatus,
		"verified_count": verified,
		"cache_hit_rate": float64(cached) / float64(total),
		"rated_count":    rated,
		"window_size":    m.windowSize,
	}
	if rated > 0 {
		stats["helpful_rate"] = float64(helpful) / float64(rated)
	}
	return stats
}

// Reset clears the history.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.history = m.history[:0]
	m.mu.Unlock()
}
