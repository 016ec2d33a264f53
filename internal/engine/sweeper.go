package engine

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Expirer is the lifecycle operation the sweeper drives. It is satisfied by
// the match service; the sweeper itself never touches match state directly.
type Expirer interface {
	Expire(matchID string) error
}

// ProposalSweeper tracks proposed matches sorted by deadline and
// periodically expires proposals whose acceptance window has passed.
type ProposalSweeper struct {
	interval time.Duration
	ttl      time.Duration
	expirer  Expirer
	pending  []pendingProposal // sorted by deadline ASC
	mu       sync.Mutex        // protects pending slice
}

type pendingProposal struct {
	matchID  string
	deadline time.Time
}

// NewProposalSweeper creates a sweeper that checks every interval and
// expires proposals older than ttl.
func NewProposalSweeper(interval, ttl time.Duration, expirer Expirer) *ProposalSweeper {
	return &ProposalSweeper{
		interval: interval,
		ttl:      ttl,
		expirer:  expirer,
		pending:  make([]pendingProposal, 0),
	}
}

// Track registers a freshly proposed match, maintaining deadline ASC order.
func (s *ProposalSweeper) Track(matchID string, proposedAt time.Time) {
	deadline := proposedAt.Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Binary search for the insertion point.
	idx := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].deadline.After(deadline)
	})
	s.pending = append(s.pending, pendingProposal{})
	copy(s.pending[idx+1:], s.pending[idx:])
	s.pending[idx] = pendingProposal{matchID: matchID, deadline: deadline}
}

// Remove drops a match from the sweep set, typically because it was
// accepted or declined before the deadline.
func (s *ProposalSweeper) Remove(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.pending {
		if p.matchID == matchID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and expires overdue proposals. It stops when ctx is cancelled.
func (s *ProposalSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				s.tick(t)
			}
		}
	}()
}

// tick collects overdue proposals from the front of the sorted slice and
// expires each outside the sweeper lock. Expire is a compare-and-swap
// transition on the service side, so a proposal that was accepted between
// collection and expiry simply fails the swap and is skipped.
func (s *ProposalSweeper) tick(now time.Time) {
	s.mu.Lock()
	var overdue []pendingProposal
	cutoff := 0
	for cutoff < len(s.pending) {
		if s.pending[cutoff].deadline.After(now) {
			break
		}
		overdue = append(overdue, s.pending[cutoff])
		cutoff++
	}
	if cutoff > 0 {
		s.pending = s.pending[cutoff:]
	}
	s.mu.Unlock()

	for _, p := range overdue {
		// Losing the race to accept/decline is expected; nothing to do.
		_ = s.expirer.Expire(p.matchID)
	}
}

// PendingCount returns the number of proposals currently tracked.
// Useful for testing.
func (s *ProposalSweeper) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
