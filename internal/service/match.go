package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/engine"
	"github.com/ifjames/kolekta-match/internal/geo"
)

// systemActor is the actor recorded on transitions driven by the engine
// itself rather than a participant, such as proposal expiry.
const systemActor = "system"

// MatchService is the match lifecycle state machine. Every transition is
// applied as an atomic compare-and-swap against the storage collaborator;
// a swap that loses a race surfaces ErrConflict and leaves no partial
// state behind. Each successful transition emits exactly one MatchEvent.
type MatchService struct {
	requests      RequestStorage
	matches       MatchStorage
	index         *geo.Index
	notifier      Notifier
	tracker       ProposalTracker
	maxDistanceKm float64
}

// NewMatchService creates a new MatchService. notifier and tracker may be
// nil, in which case events are dropped and proposals are not swept.
func NewMatchService(
	requests RequestStorage,
	matches MatchStorage,
	index *geo.Index,
	notifier Notifier,
	maxDistanceKm float64,
) *MatchService {
	return &MatchService{
		requests:      requests,
		matches:       matches,
		index:         index,
		notifier:      notifier,
		maxDistanceKm: maxDistanceKm,
	}
}

// SetTracker wires the proposal sweeper in after construction. The sweeper
// needs this service as its expirer, so the two are connected in main once
// both exist.
func (s *MatchService) SetTracker(tracker ProposalTracker) {
	s.tracker = tracker
}

// Propose validates reciprocity between two open requests and creates a
// match in state proposed, marking both requests matched. The actor must
// own one of the two requests. Losing any of the status races surfaces
// ErrConflict with all prior swaps rolled back.
func (s *MatchService) Propose(requestAID, requestBID, actorID string) (*domain.Match, error) {
	if requestAID == requestBID {
		return nil, &domain.ValidationError{Message: "a match requires two distinct requests"}
	}

	reqA, err := s.requests.Get(requestAID)
	if err != nil {
		return nil, err
	}
	reqB, err := s.requests.Get(requestBID)
	if err != nil {
		return nil, err
	}

	if actorID != reqA.OwnerID && actorID != reqB.OwnerID {
		return nil, domain.ErrUnauthorized
	}

	// The reciprocity predicate at proposal time: distinct owners, an exact
	// amount/denomination mirror, and both sides within the distance bound.
	if reqA.OwnerID == reqB.OwnerID {
		return nil, domain.ErrReciprocityViolation
	}
	if !engine.Reciprocal(reqA, reqB) {
		return nil, domain.ErrReciprocityViolation
	}
	if geo.Distance(reqA.Location, reqB.Location) > s.maxDistanceKm {
		return nil, domain.ErrReciprocityViolation
	}

	// Claim both requests with compare-and-swap; roll back on any loss.
	if !s.requests.CompareAndSwapStatus(requestAID, domain.RequestStatusOpen, domain.RequestStatusMatched) {
		return nil, domain.ErrConflict
	}
	if !s.requests.CompareAndSwapStatus(requestBID, domain.RequestStatusOpen, domain.RequestStatusMatched) {
		s.requests.CompareAndSwapStatus(requestAID, domain.RequestStatusMatched, domain.RequestStatusOpen)
		return nil, domain.ErrConflict
	}

	m := &domain.Match{
		MatchID:       uuid.NewString(),
		RequesterID:   reqA.OwnerID,
		CounterpartID: reqB.OwnerID,
		RequestAID:    requestAID,
		RequestBID:    requestBID,
		ProposerID:    actorID,
		Status:        domain.MatchStatusProposed,
		CreatedAt:     time.Now().UTC(),
	}
	if !s.matches.Create(m) {
		s.requests.CompareAndSwapStatus(requestAID, domain.RequestStatusMatched, domain.RequestStatusOpen)
		s.requests.CompareAndSwapStatus(requestBID, domain.RequestStatusMatched, domain.RequestStatusOpen)
		return nil, domain.ErrConflict
	}

	if s.tracker != nil {
		s.tracker.Track(m.MatchID, m.CreatedAt)
	}
	s.emit(m, "", domain.MatchStatusProposed, actorID)

	return m, nil
}

// GetMatch retrieves a match by id.
func (s *MatchService) GetMatch(id string) (*domain.Match, error) {
	return s.matches.Get(id)
}

// ListByParticipant returns all matches the owner takes part in.
func (s *MatchService) ListByParticipant(ownerID string) []*domain.Match {
	return s.matches.ListByParticipant(ownerID)
}

// Accept transitions a proposed match to accepted and immediately on to
// confirmed; acceptance needs no separate confirmation step. Only the
// non-proposing participant may accept.
func (s *MatchService) Accept(matchID, actorID string) (*domain.Match, error) {
	m, err := s.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	if !m.Participant(actorID) || actorID == m.ProposerID {
		return nil, domain.ErrUnauthorized
	}

	if err := s.transition(m, domain.MatchStatusProposed, domain.MatchStatusAccepted, actorID); err != nil {
		return nil, err
	}
	if s.tracker != nil {
		s.tracker.Remove(matchID)
	}

	// Confirmation is automatic on acceptance. The proposed→accepted swap
	// already won the race, so this second swap cannot be contended by
	// another participant action.
	if err := s.transition(m, domain.MatchStatusAccepted, domain.MatchStatusConfirmed, actorID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	m.ConfirmedAt = &now

	return m, nil
}

// Decline transitions a proposed match to declined and releases both
// requests back to open. Any participant may decline.
func (s *MatchService) Decline(matchID, actorID string) (*domain.Match, error) {
	m, err := s.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	if !m.Participant(actorID) {
		return nil, domain.ErrUnauthorized
	}

	if err := s.transition(m, domain.MatchStatusProposed, domain.MatchStatusDeclined, actorID); err != nil {
		return nil, err
	}
	if s.tracker != nil {
		s.tracker.Remove(matchID)
	}
	s.releaseRequests(m)

	return m, nil
}

// Complete transitions a confirmed match to completed, recording the
// completion timestamp and the actor's rating of the counterpart. Both
// requests move to completed and leave the matching pool.
func (s *MatchService) Complete(matchID, actorID string, rating float64) (*domain.Match, error) {
	if rating < 1 || rating > 5 {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("rating must be in [1, 5], got %v", rating),
		}
	}

	m, err := s.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	if !m.Participant(actorID) {
		return nil, domain.ErrUnauthorized
	}

	if err := s.transition(m, domain.MatchStatusConfirmed, domain.MatchStatusCompleted, actorID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.CompletedAt = &now
	m.Rating = &rating

	for _, reqID := range []string{m.RequestAID, m.RequestBID} {
		if s.requests.CompareAndSwapStatus(reqID, domain.RequestStatusMatched, domain.RequestStatusCompleted) {
			s.index.Remove(reqID)
		}
	}

	return m, nil
}

// Cancel transitions a match to cancelled from any non-terminal state and
// releases both requests to open unless they were independently completed
// or cancelled.
func (s *MatchService) Cancel(matchID, actorID, reason string) (*domain.Match, error) {
	m, err := s.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	if !m.Participant(actorID) {
		return nil, domain.ErrUnauthorized
	}

	if err := s.transition(m, m.Status, domain.MatchStatusCancelled, actorID); err != nil {
		return nil, err
	}
	if reason != "" {
		m.Reason = &reason
	}
	if s.tracker != nil {
		s.tracker.Remove(matchID)
	}
	s.releaseRequests(m)

	return m, nil
}

// ReportNoShow transitions a confirmed match to no_show. The requests are
// deliberately not released: the no-show counts against the non-reporting
// participant's reliability signal, which is consumed outside this engine.
func (s *MatchService) ReportNoShow(matchID, actorID, reason string) (*domain.Match, error) {
	m, err := s.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	if !m.Participant(actorID) {
		return nil, domain.ErrUnauthorized
	}

	if err := s.transition(m, domain.MatchStatusConfirmed, domain.MatchStatusNoShow, actorID); err != nil {
		return nil, err
	}
	if reason != "" {
		m.Reason = &reason
	}

	return m, nil
}

// Expire transitions a proposed match to expired once its acceptance
// window has passed, releasing both requests. Driven by the proposal
// sweeper; a proposal that was accepted or declined in the meantime simply
// loses the swap.
func (s *MatchService) Expire(matchID string) error {
	m, err := s.matches.Get(matchID)
	if err != nil {
		return err
	}
	if err := s.transition(m, domain.MatchStatusProposed, domain.MatchStatusExpired, systemActor); err != nil {
		return err
	}
	s.releaseRequests(m)
	return nil
}

// transition applies one compare-and-swap lifecycle step and emits its
// event. Illegal from→to pairs fail with ErrInvalidTransition before any
// swap is attempted; a legal swap that loses a race fails with ErrConflict.
func (s *MatchService) transition(m *domain.Match, from, to domain.MatchStatus, actorID string) error {
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}
	if !s.matches.CompareAndSwapStatus(m.MatchID, from, to) {
		return domain.ErrConflict
	}
	s.emit(m, from, to, actorID)
	return nil
}

// releaseRequests returns both linked requests to open. Requests that were
// independently completed or cancelled fail the swap and stay put.
func (s *MatchService) releaseRequests(m *domain.Match) {
	s.requests.CompareAndSwapStatus(m.RequestAID, domain.RequestStatusMatched, domain.RequestStatusOpen)
	s.requests.CompareAndSwapStatus(m.RequestBID, domain.RequestStatusMatched, domain.RequestStatusOpen)
}

func (s *MatchService) emit(m *domain.Match, from, to domain.MatchStatus, actorID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(m, domain.MatchEvent{
		MatchID:   m.MatchID,
		FromState: from,
		ToState:   to,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	})
}
