package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/geo"
)

// ScoreWeights parameterizes the ranking heuristic. The defaults weight
// distance most heavily at realistic ranges, then verification, then
// rating, then freshness; deployments may tune the constants but should
// preserve those relative magnitudes to keep outcomes compatible.
type ScoreWeights struct {
	DistanceBase   float64 // starting score at zero distance
	DistancePerKm  float64 // score lost per km, floored at zero
	VerifiedBonus  float64 // flat bonus for verified counterparts
	RatingWeight   float64 // multiplier on the [0, 5] rating
	FreshnessHours float64 // hours over which the freshness bonus decays to zero
}

// DefaultScoreWeights returns the standard ranking weights.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		DistanceBase:   100,
		DistancePerKm:  20,
		VerifiedBonus:  50,
		RatingWeight:   10,
		FreshnessHours: 20,
	}
}

// Scorer assigns composite scores to filtered candidates and orders them
// best-first. All methods are pure and safe for concurrent use.
type Scorer struct {
	weights ScoreWeights
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(weights ScoreWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes one candidate's composite score against req at time now:
// a distance term decaying linearly to zero, a flat verified bonus, a
// rating term, and a freshness term decaying over FreshnessHours.
func (s *Scorer) Score(req, cand *domain.ExchangeRequest, now time.Time) domain.CandidateScore {
	distanceKm := geo.Distance(req.Location, cand.Location)

	score := max(0, s.weights.DistanceBase-distanceKm*s.weights.DistancePerKm)
	if cand.Trust.Verified {
		score += s.weights.VerifiedBonus
	}
	score += cand.Trust.Rating * s.weights.RatingWeight

	hoursSincePosted := now.Sub(cand.CreatedAt).Hours()
	score += max(0, s.weights.FreshnessHours-hoursSincePosted)

	return domain.CandidateScore{
		Request:    cand,
		DistanceKm: distanceKm,
		Score:      score,
	}
}

// Rank scores every candidate and returns them ordered best-first. The
// sort is stable with score as the primary key; candidates with bit-equal
// scores fall back to earliest CreatedAt, and only then to input order.
func (s *Scorer) Rank(req *domain.ExchangeRequest, candidates []*domain.ExchangeRequest, now time.Time) []domain.CandidateScore {
	scored := make([]domain.CandidateScore, len(candidates))
	for i, cand := range candidates {
		scored[i] = s.Score(req, cand, now)
	}
	sortScores(scored)
	return scored
}

// RankParallel is Rank fanned out over disjoint candidate batches. Scoring
// has no shared mutable state, so batches run on their own goroutines and
// results merge by concatenation followed by one final sort. Ordering is
// identical to Rank. workers <= 1 degrades to the sequential path.
func (s *Scorer) RankParallel(req *domain.ExchangeRequest, candidates []*domain.ExchangeRequest, now time.Time, workers int) []domain.CandidateScore {
	if workers <= 1 || len(candidates) <= workers {
		return s.Rank(req, candidates, now)
	}

	scored := make([]domain.CandidateScore, len(candidates))
	batchSize := (len(candidates) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				scored[i] = s.Score(req, candidates[i], now)
			}
		}(start, end)
	}
	wg.Wait()

	sortScores(scored)
	return scored
}

// sortScores orders scored candidates best-first: score descending,
// then CreatedAt ascending on bit-equal scores, preserving input order
// beyond that.
func sortScores(scored []domain.CandidateScore) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Request.CreatedAt.Before(scored[j].Request.CreatedAt)
	})
}
