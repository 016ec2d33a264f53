package store

import (
	"sync"

	"github.com/ifjames/kolekta-match/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhooks.
// Primary index: webhook_id → webhook.
// Secondary index: owner_id → event → webhook.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook
	byOwner  map[string]map[string]*domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
		byOwner:  make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert inserts or updates a webhook subscription keyed by (owner_id,
// event). If a subscription already exists for that pair, the URL and
// UpdatedAt are updated and the webhook_id remains stable. Returns true if
// a new subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if events, ok := s.byOwner[w.OwnerID]; ok {
		if existing, ok := events[w.Event]; ok {
			if existing.URL != w.URL {
				existing.URL = w.URL
				existing.UpdatedAt = w.UpdatedAt
			}
			return false
		}
	}

	s.webhooks[w.WebhookID] = w
	if s.byOwner[w.OwnerID] == nil {
		s.byOwner[w.OwnerID] = make(map[string]*domain.Webhook)
	}
	s.byOwner[w.OwnerID][w.Event] = w
	return true
}

// Get retrieves a webhook by ID. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// ListByOwner returns all webhooks for an owner.
// Returns an empty slice if the owner has no subscriptions.
func (s *WebhookStore) ListByOwner(ownerID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byOwner[ownerID]
	if len(events) == 0 {
		return []*domain.Webhook{}
	}
	result := make([]*domain.Webhook, 0, len(events))
	for _, w := range events {
		result = append(result, w)
	}
	return result
}

// GetByOwnerEvent returns the webhook for a specific owner+event pair, or
// nil if no subscription exists.
func (s *WebhookStore) GetByOwnerEvent(ownerID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byOwner[ownerID]
	if events == nil {
		return nil
	}
	return events[event]
}

// Delete removes a webhook by ID, cleaning up both indexes. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}

	delete(s.webhooks, id)
	if events, ok := s.byOwner[w.OwnerID]; ok {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.byOwner, w.OwnerID)
		}
	}
	return nil
}
