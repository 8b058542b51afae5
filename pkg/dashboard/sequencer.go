package dashboard

import (
	"sync"
	"sync/atomic"
)

// Token identifies one recalculation request. Later requests get larger
// tokens; zero is never issued.
type Token uint64

// Sequencer implements last-request-wins: only the result of the most
// recently issued request may be committed.
type Sequencer struct {
	latest atomic.Uint64
	mu     sync.Mutex
}

// Issue supersedes every outstanding token and returns a new one.
func (s *Sequencer) Issue() Token {
	return Token(s.latest.Add(1))
}

// IsLatest reports whether no newer token has been issued.
func (s *Sequencer) IsLatest(t Token) bool {
	return t != 0 && uint64(t) == s.latest.Load()
}

// Commit runs apply if t is still the latest token and reports whether it
// did. Commits are serialized, so apply never races with another commit.
func (s *Sequencer) Commit(t Token, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsLatest(t) {
		return false
	}
	if apply != nil {
		apply()
	}
	return true
}
