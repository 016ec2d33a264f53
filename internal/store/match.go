package store

import (
	"sync"

	"github.com/ifjames/kolekta-match/internal/domain"
)

// MatchStore is a thread-safe in-memory store for matches with a primary
// index by match_id and a secondary index of the open (non-terminal) match
// per request id. The secondary index is how the invariant "a request is
// referenced by at most one non-terminal match" is enforced.
type MatchStore struct {
	mu        sync.RWMutex
	matches   map[string]*domain.Match
	byRequest map[string]*domain.Match // request_id → open match
}

// NewMatchStore creates an empty MatchStore.
func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches:   make(map[string]*domain.Match),
		byRequest: make(map[string]*domain.Match),
	}
}

// Create adds a proposed match and claims both request slots. It returns
// false without mutating anything if either request already has an open
// match.
func (s *MatchStore) Create(m *domain.Match) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byRequest[m.RequestAID] != nil || s.byRequest[m.RequestBID] != nil {
		return false
	}

	s.matches[m.MatchID] = m
	s.byRequest[m.RequestAID] = m
	s.byRequest[m.RequestBID] = m
	return true
}

// Get retrieves a match by ID. It returns
// domain.ErrMatchNotFound if the match does not exist.
func (s *MatchStore) Get(id string) (*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return m, nil
}

// OpenMatchFor returns the non-terminal match referencing a request, or
// nil if the request is unclaimed.
func (s *MatchStore) OpenMatchFor(requestID string) *domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byRequest[requestID]
}

// ListByParticipant returns all matches where the owner is either side.
func (s *MatchStore) ListByParticipant(ownerID string) []*domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Match, 0)
	for _, m := range s.matches {
		if m.Participant(ownerID) {
			result = append(result, m)
		}
	}
	return result
}

// ListByStatus returns all matches currently in the given status.
func (s *MatchStore) ListByStatus(status domain.MatchStatus) []*domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Match, 0)
	for _, m := range s.matches {
		if m.Status == status {
			result = append(result, m)
		}
	}
	return result
}

// CompareAndSwapStatus atomically transitions a match from expected to
// next. It returns false when the match does not exist or its current
// status is not expected. When next is terminal, both request slots are
// released in the same critical section.
func (s *MatchStore) CompareAndSwapStatus(id string, expected, next domain.MatchStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok || m.Status != expected {
		return false
	}
	m.Status = next

	if next.Terminal() {
		if s.byRequest[m.RequestAID] == m {
			delete(s.byRequest, m.RequestAID)
		}
		if s.byRequest[m.RequestBID] == m {
			delete(s.byRequest, m.RequestBID)
		}
	}
	return true
}

// Len returns the number of stored matches.
func (s *MatchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
