package service

import (
	"time"

	"github.com/ifjames/kolekta-match/internal/domain"
)

// RequestStorage is the storage collaborator for exchange requests. The
// in-memory store satisfies it; a persistent backend can be swapped in
// without touching the services.
type RequestStorage interface {
	Create(r *domain.ExchangeRequest)
	Get(id string) (*domain.ExchangeRequest, error)
	ListOpenNear(buckets []string) []*domain.ExchangeRequest
	ListByOwner(ownerID string) []*domain.ExchangeRequest
	CompareAndSwapStatus(id string, expected, next domain.RequestStatus) bool
}

// MatchStorage is the storage collaborator for matches. Create and
// CompareAndSwapStatus carry the atomicity guarantees the lifecycle
// depends on: Create claims both request slots or fails, and the swap
// only succeeds from the expected state.
type MatchStorage interface {
	Create(m *domain.Match) bool
	Get(id string) (*domain.Match, error)
	OpenMatchFor(requestID string) *domain.Match
	ListByParticipant(ownerID string) []*domain.Match
	ListByStatus(status domain.MatchStatus) []*domain.Match
	CompareAndSwapStatus(id string, expected, next domain.MatchStatus) bool
}

// Notifier receives one event per successful lifecycle transition. The
// match is passed alongside the event so implementations can resolve the
// participants to notify.
type Notifier interface {
	Notify(m *domain.Match, event domain.MatchEvent)
}

// ProposalTracker is the sweep-set side of proposal expiry: proposals are
// tracked when created and removed once they leave the proposed state.
type ProposalTracker interface {
	Track(matchID string, proposedAt time.Time)
	Remove(matchID string)
}
