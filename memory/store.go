// Package memory keeps short per-session conversation history so
// follow-up questions can be answered in context.
package memory

import (
	"strings"
	"sync"
	"time"
)

// Exchange is one question/answer pair.
type Exchange struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// History is the conversation store contract. Store keeps it in
// process; RedisHistory persists it across restarts.
type History interface {
	Append(sessionID string, ex Exchange)
	LastN(sessionID string, n int) []Exchange
	Clear(sessionID string)
	ContextString(sessionID string, n int) string
}

// Store holds bounded conversation history per session. Writes are
// last-write-wins; sessions never see each other's exchanges.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string][]Exchange
	maxExchanges int
}

func NewStore(maxExchanges int) *Store {
	if maxExchanges <= 0 {
		maxExchanges = 8
	}
	return &Store{
		sessions:     make(map[string][]Exchange),
		maxExchanges: maxExchanges,
	}
}

// Append records an exchange, trimming the session to the bound.
func (s *Store) Append(sessionID string, ex Exchange) {
	if sessionID == "" {
		return
	}
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rounds := append(s.sessions[sessionID], ex)
	if len(rounds) > s.maxExchanges {
		rounds = rounds[len(rounds)-s.maxExchanges:]
	}
	s.sessions[sessionID] = rounds
}

// LastN returns a copy of the most recent n exchanges, oldest first.
func (s *Store) LastN(sessionID string, n int) []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rounds := s.sessions[sessionID]
	if len(rounds) == 0 {
		return nil
	}
	if n <= 0 || n > len(rounds) {
		n = len(rounds)
	}
	out := make([]Exchange, n)
	copy(out, rounds[len(rounds)-n:])
	return out
}

// Clear drops a session entirely.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// ContextString folds the last n exchanges into the compact form the
// prompt and the exact cache key use.
func (s *Store) ContextString(sessionID string, n int) string {
	return foldContext(s.LastN(sessionID, n))
}

func foldContext(rounds []Exchange) string {
	if len(rounds) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range rounds {
		b.WriteString("Q: ")
		b.WriteString(r.Question)
		b.WriteString("\nA: ")
		b.WriteString(r.Answer)
		b.WriteString("\n")
	}
	return b.String()
}
