package store

import (
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/ifjames/kolekta-match/internal/domain"
)

// btreeDegree is the branching factor for the spatial-key index.
const btreeDegree = 32

// bucketEntry is one request in the spatial-key index.
type bucketEntry struct {
	SpatialKey string
	RequestID  string
}

// bucketLess orders the index by spatial key, then request id, so all
// requests in one bucket are contiguous and range-scannable.
func bucketLess(a, b bucketEntry) bool {
	if a.SpatialKey != b.SpatialKey {
		return a.SpatialKey < b.SpatialKey
	}
	return a.RequestID < b.RequestID
}

// RequestStore is a thread-safe in-memory store for exchange requests with
// a primary index by request_id and a B-tree secondary index by spatial
// key for bucket range scans. Read paths return snapshot copies; stored
// records change only through CompareAndSwapStatus under the store lock.
type RequestStore struct {
	mu       sync.RWMutex
	requests map[string]*domain.ExchangeRequest
	byBucket *btree.BTreeG[bucketEntry]
}

// NewRequestStore creates an empty RequestStore.
func NewRequestStore() *RequestStore {
	return &RequestStore{
		requests: make(map[string]*domain.ExchangeRequest),
		byBucket: btree.NewG[bucketEntry](btreeDegree, bucketLess),
	}
}

// Create adds a request to the store and to the spatial-key index.
func (s *RequestStore) Create(r *domain.ExchangeRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[r.RequestID] = r
	s.byBucket.ReplaceOrInsert(bucketEntry{SpatialKey: r.SpatialKey, RequestID: r.RequestID})
}

// Get retrieves a snapshot copy of a request by ID. It returns
// domain.ErrRequestNotFound if the request does not exist.
func (s *RequestStore) Get(id string) (*domain.ExchangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	snapshot := *r
	return &snapshot, nil
}

// ListOpenNear returns all open requests whose spatial key is one of the
// given buckets. Each bucket is a contiguous range scan over the B-tree
// index. Duplicate buckets are scanned once. The returned requests are
// snapshot copies: callers filter and rank them outside the store lock
// while concurrent status swaps mutate the stored records.
func (s *RequestStore) ListOpenNear(buckets []string) []*domain.ExchangeRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(buckets))
	result := make([]*domain.ExchangeRequest, 0)

	for _, bucket := range buckets {
		if bucket == "" || seen[bucket] {
			continue
		}
		seen[bucket] = true

		from := bucketEntry{SpatialKey: bucket}
		s.byBucket.AscendGreaterOrEqual(from, func(e bucketEntry) bool {
			if e.SpatialKey != bucket {
				return false
			}
			if r, ok := s.requests[e.RequestID]; ok && r.Status == domain.RequestStatusOpen {
				snapshot := *r
				result = append(result, &snapshot)
			}
			return true
		})
	}

	return result
}

// ListByOwner returns all requests posted by an owner, newest first.
func (s *RequestStore) ListByOwner(ownerID string) []*domain.ExchangeRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ExchangeRequest, 0)
	for _, r := range s.requests {
		if r.OwnerID == ownerID {
			snapshot := *r
			result = append(result, &snapshot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// CompareAndSwapStatus atomically transitions a request from expected to
// next. It returns false when the request does not exist or its current
// status is not expected; the caller must re-read and retry or surface a
// conflict.
func (s *RequestStore) CompareAndSwapStatus(id string, expected, next domain.RequestStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok || r.Status != expected {
		return false
	}
	r.Status = next
	return true
}

// Delete removes a request from both indexes. It returns
// domain.ErrRequestNotFound if the request does not exist.
func (s *RequestStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	delete(s.requests, id)
	s.byBucket.Delete(bucketEntry{SpatialKey: r.SpatialKey, RequestID: r.RequestID})
	return nil
}

// Len returns the number of stored requests.
func (s *RequestStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}
