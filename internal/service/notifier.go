package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/store"
)

// Valid webhook event types, one per lifecycle transition target.
var validWebhookEvents = map[string]bool{
	"match.proposed":  true,
	"match.accepted":  true,
	"match.confirmed": true,
	"match.completed": true,
	"match.declined":  true,
	"match.cancelled": true,
	"match.expired":   true,
	"match.no_show":   true,
}

// UpsertWebhookInput represents the input for webhook registration.
type UpsertWebhookInput struct {
	OwnerID string
	URL     string
	Events  []string
}

// NotifierService handles webhook CRUD and delivers lifecycle events to
// the participants' registered endpoints. It satisfies the Notifier
// interface consumed by the match service.
type NotifierService struct {
	store  *store.WebhookStore
	client *http.Client
}

// NewNotifierService creates a new NotifierService with the given dispatch
// timeout.
func NewNotifierService(webhookStore *store.WebhookStore, timeout time.Duration) *NotifierService {
	return &NotifierService{
		store: webhookStore,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upsert validates the input and creates or updates webhook subscriptions,
// one per (owner, event) pair. Returns the resulting webhooks, whether any
// new subscriptions were created, and any error.
func (s *NotifierService) Upsert(in UpsertWebhookInput) ([]*domain.Webhook, bool, error) {
	if in.OwnerID == "" {
		return nil, false, &domain.ValidationError{Message: "owner_id is required"}
	}
	if in.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(in.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(in.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}
	if len(in.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(in.Events))
	deduped := make([]string, 0, len(in.Events))
	for _, event := range in.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event,
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(deduped))

	for _, event := range deduped {
		w := &domain.Webhook{
			WebhookID: uuid.NewString(),
			OwnerID:   in.OwnerID,
			Event:     event,
			URL:       in.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if s.store.Upsert(w) {
			anyCreated = true
		}
		// Upsert may have kept an existing id; read back the stored record.
		webhooks = append(webhooks, s.store.GetByOwnerEvent(in.OwnerID, event))
	}

	return webhooks, anyCreated, nil
}

// List returns all webhooks for an owner.
func (s *NotifierService) List(ownerID string) []*domain.Webhook {
	return s.store.ListByOwner(ownerID)
}

// Delete removes a webhook by id.
func (s *NotifierService) Delete(id string) error {
	return s.store.Delete(id)
}

// eventPayload is the JSON body delivered to webhook endpoints.
type eventPayload struct {
	MatchID   string `json:"match_id"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	ActorID   string `json:"actor_id"`
	Timestamp string `json:"timestamp"`
}

// Notify delivers one lifecycle event to each participant that subscribed
// to the event type. Delivery is fire-and-forget on a goroutine per
// recipient; the lifecycle transition has already committed and does not
// wait on network I/O.
func (s *NotifierService) Notify(m *domain.Match, event domain.MatchEvent) {
	eventType := "match." + string(event.ToState)

	payload := eventPayload{
		MatchID:   event.MatchID,
		FromState: string(event.FromState),
		ToState:   string(event.ToState),
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp.Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	for _, ownerID := range []string{m.RequesterID, m.CounterpartID} {
		w := s.store.GetByOwnerEvent(ownerID, eventType)
		if w == nil {
			continue
		}
		go s.deliver(w.URL, body)
	}
}

func (s *NotifierService) deliver(url string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
