package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/store"
)

func TestNotifierService_Upsert_Validation(t *testing.T) {
	svc := NewNotifierService(store.NewWebhookStore(), time.Second)

	tests := []struct {
		name string
		in   UpsertWebhookInput
	}{
		{"missing owner", UpsertWebhookInput{URL: "https://a.example/hook", Events: []string{"match.proposed"}}},
		{"missing url", UpsertWebhookInput{OwnerID: "alice", Events: []string{"match.proposed"}}},
		{"relative url", UpsertWebhookInput{OwnerID: "alice", URL: "/hook", Events: []string{"match.proposed"}}},
		{"http scheme", UpsertWebhookInput{OwnerID: "alice", URL: "http://a.example/hook", Events: []string{"match.proposed"}}},
		{"no events", UpsertWebhookInput{OwnerID: "alice", URL: "https://a.example/hook"}},
		{"unknown event", UpsertWebhookInput{OwnerID: "alice", URL: "https://a.example/hook", Events: []string{"match.vanished"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Upsert(tt.in); err == nil {
				t.Error("Upsert() succeeded, want validation error")
			}
		})
	}
}

func TestNotifierService_Upsert_DeduplicatesEvents(t *testing.T) {
	svc := NewNotifierService(store.NewWebhookStore(), time.Second)

	webhooks, created, err := svc.Upsert(UpsertWebhookInput{
		OwnerID: "alice",
		URL:     "https://a.example/hook",
		Events:  []string{"match.proposed", "match.proposed", "match.completed"},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
	if len(webhooks) != 2 {
		t.Errorf("got %d webhooks, want 2 after dedup", len(webhooks))
	}
}

func TestNotifierService_Notify_DeliversToSubscribers(t *testing.T) {
	received := make(chan eventPayload, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p eventPayload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	webhooks := store.NewWebhookStore()
	// Inserted directly: Upsert enforces https, the test server is http.
	now := time.Now().UTC()
	webhooks.Upsert(&domain.Webhook{
		WebhookID: "w1", OwnerID: "alice", Event: "match.confirmed", URL: srv.URL,
		CreatedAt: now, UpdatedAt: now,
	})

	svc := NewNotifierService(webhooks, time.Second)

	m := &domain.Match{MatchID: "m1", RequesterID: "alice", CounterpartID: "bob"}
	svc.Notify(m, domain.MatchEvent{
		MatchID:   "m1",
		FromState: domain.MatchStatusAccepted,
		ToState:   domain.MatchStatusConfirmed,
		ActorID:   "bob",
		Timestamp: now,
	})

	select {
	case p := <-received:
		if p.MatchID != "m1" || p.ToState != "confirmed" || p.ActorID != "bob" {
			t.Errorf("payload = %+v, want m1/confirmed/bob", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}

	// Bob has no subscription: exactly one delivery.
	select {
	case p := <-received:
		t.Errorf("unexpected second delivery: %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotifierService_Notify_NoSubscribersIsNoop(t *testing.T) {
	svc := NewNotifierService(store.NewWebhookStore(), time.Second)
	m := &domain.Match{MatchID: "m1", RequesterID: "alice", CounterpartID: "bob"}

	// Must not panic or block.
	svc.Notify(m, domain.MatchEvent{MatchID: "m1", ToState: domain.MatchStatusDeclined})
}
