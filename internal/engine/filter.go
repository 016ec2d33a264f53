package engine

import (
	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/geo"
)

// Reciprocal reports whether a and b mirror each other exactly: a's offer
// equals b's need and vice versa, in both amount and denomination. There is
// no partial or fuzzy amount matching.
func Reciprocal(a, b *domain.ExchangeRequest) bool {
	return a.OfferAmount == b.NeedAmount &&
		a.OfferDenomination == b.NeedDenomination &&
		a.NeedAmount == b.OfferAmount &&
		a.NeedDenomination == b.OfferDenomination
}

// FilterReciprocal returns the candidates that exactly complete req: a
// different owner, still open, a perfect amount/denomination mirror, and
// within maxDistanceKm of the requester. Pure; the caller is expected to
// have narrowed candidates via the spatial-key bucket and neighbor lookup,
// but the filter is correct on any pool.
func FilterReciprocal(req *domain.ExchangeRequest, candidates []*domain.ExchangeRequest, maxDistanceKm float64) []*domain.ExchangeRequest {
	kept := make([]*domain.ExchangeRequest, 0, len(candidates))
	for _, cand := range candidates {
		if cand.OwnerID == req.OwnerID {
			continue
		}
		if cand.Status != domain.RequestStatusOpen {
			continue
		}
		if !Reciprocal(req, cand) {
			continue
		}
		if geo.Distance(req.Location, cand.Location) > maxDistanceKm {
			continue
		}
		kept = append(kept, cand)
	}
	return kept
}
