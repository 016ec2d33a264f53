package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/engine"
	"github.com/ifjames/kolekta-match/internal/geo"
)

// PostRequestInput represents the input for posting an exchange request.
type PostRequestInput struct {
	OwnerID           string
	OfferAmount       int64
	OfferDenomination domain.Denomination
	NeedAmount        int64
	NeedDenomination  domain.Denomination
	Location          domain.Coordinate
	Trust             domain.TrustSignals
}

// RequestService handles posting, retrieval, cancellation, and candidate
// search for exchange requests.
type RequestService struct {
	requests      RequestStorage
	index         *geo.Index
	scorer        *engine.Scorer
	precision     int
	maxDistanceKm float64
	rankWorkers   int
}

// NewRequestService creates a new RequestService with the given dependencies.
func NewRequestService(
	requests RequestStorage,
	index *geo.Index,
	scorer *engine.Scorer,
	precision int,
	maxDistanceKm float64,
	rankWorkers int,
) *RequestService {
	return &RequestService{
		requests:      requests,
		index:         index,
		scorer:        scorer,
		precision:     precision,
		maxDistanceKm: maxDistanceKm,
		rankWorkers:   rankWorkers,
	}
}

// PostRequest validates the input, encodes the spatial key, and stores the
// request as open.
func (s *RequestService) PostRequest(in PostRequestInput) (*domain.ExchangeRequest, error) {
	if in.OwnerID == "" {
		return nil, &domain.ValidationError{Message: "owner_id is required"}
	}
	if in.OfferAmount <= 0 || in.NeedAmount <= 0 {
		return nil, &domain.ValidationError{Message: "offer_amount and need_amount must be positive"}
	}
	if !in.OfferDenomination.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("offer_denomination must be 'bill' or 'coin', got %q", in.OfferDenomination),
		}
	}
	if !in.NeedDenomination.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("need_denomination must be 'bill' or 'coin', got %q", in.NeedDenomination),
		}
	}
	if in.Trust.Rating < 0 || in.Trust.Rating > 5 {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("rating must be in [0, 5], got %v", in.Trust.Rating),
		}
	}
	if err := in.Location.Validate(); err != nil {
		return nil, err
	}

	key, err := geo.Encode(in.Location, s.precision)
	if err != nil {
		return nil, err
	}

	r := &domain.ExchangeRequest{
		RequestID:         uuid.NewString(),
		OwnerID:           in.OwnerID,
		OfferAmount:       in.OfferAmount,
		OfferDenomination: in.OfferDenomination,
		NeedAmount:        in.NeedAmount,
		NeedDenomination:  in.NeedDenomination,
		Location:          in.Location,
		SpatialKey:        key,
		Status:            domain.RequestStatusOpen,
		CreatedAt:         time.Now().UTC(),
		Trust:             in.Trust,
	}

	s.requests.Create(r)
	s.index.Insert(r.RequestID, r.Location)

	return r, nil
}

// GetRequest retrieves a request by id.
func (s *RequestService) GetRequest(id string) (*domain.ExchangeRequest, error) {
	return s.requests.Get(id)
}

// ListByOwner returns an owner's requests, newest first.
func (s *RequestService) ListByOwner(ownerID string) []*domain.ExchangeRequest {
	return s.requests.ListByOwner(ownerID)
}

// CancelRequest cancels an open request. Only the owner may cancel; a
// request that is no longer open (matched, completed, or already
// cancelled) fails with ErrConflict.
func (s *RequestService) CancelRequest(id, actorID string) error {
	r, err := s.requests.Get(id)
	if err != nil {
		return err
	}
	if r.OwnerID != actorID {
		return domain.ErrUnauthorized
	}
	if !s.requests.CompareAndSwapStatus(id, domain.RequestStatusOpen, domain.RequestStatusCancelled) {
		return domain.ErrConflict
	}
	s.index.Remove(id)
	return nil
}

// FindCandidates returns the best reciprocal counterparts for an open
// request, at most limit of them, best first. The candidate pool is
// narrowed twice before the reciprocity filter and ranking run: a bucket
// scan over the request's spatial-key bucket plus its neighbor buckets,
// intersected with an R-tree radius query so requests that share a bucket
// but sit beyond the distance bound never reach the scorer.
func (s *RequestService) FindCandidates(requestID string, limit int) ([]domain.CandidateScore, error) {
	if limit <= 0 {
		return nil, &domain.ValidationError{Message: "limit must be positive"}
	}

	req, err := s.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusOpen {
		return nil, domain.ErrConflict
	}

	neighbors, err := geo.Neighbors(req.SpatialKey)
	if err != nil {
		return nil, err
	}
	buckets := append([]string{req.SpatialKey}, neighbors...)

	within, err := s.index.SearchRadius(req.Location, s.maxDistanceKm)
	if err != nil {
		return nil, err
	}
	inRange := make(map[string]bool, len(within))
	for _, e := range within {
		inRange[e.RequestID] = true
	}

	pool := make([]*domain.ExchangeRequest, 0)
	for _, cand := range s.requests.ListOpenNear(buckets) {
		if inRange[cand.RequestID] {
			pool = append(pool, cand)
		}
	}

	filtered := engine.FilterReciprocal(req, pool, s.maxDistanceKm)
	ranked := s.scorer.RankParallel(req, filtered, time.Now().UTC(), s.rankWorkers)

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
