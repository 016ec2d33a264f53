package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/service"
)

// WebhookHandler handles HTTP requests for webhook subscriptions.
type WebhookHandler struct {
	notifierSvc *service.NotifierService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(notifierSvc *service.NotifierService) *WebhookHandler {
	return &WebhookHandler{notifierSvc: notifierSvc}
}

// upsertWebhookRequest is the JSON request body for POST /webhooks.
type upsertWebhookRequest struct {
	OwnerID string   `json:"owner_id"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
}

// webhookResponse is the JSON representation of a webhook subscription.
type webhookResponse struct {
	WebhookID string `json:"webhook_id"`
	OwnerID   string `json:"owner_id"`
	Event     string `json:"event"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func buildWebhookResponse(wh *domain.Webhook) webhookResponse {
	return webhookResponse{
		WebhookID: wh.WebhookID,
		OwnerID:   wh.OwnerID,
		Event:     wh.Event,
		URL:       wh.URL,
		CreatedAt: wh.CreatedAt.Format(time.RFC3339),
		UpdatedAt: wh.UpdatedAt.Format(time.RFC3339),
	}
}

func buildWebhookList(webhooks []*domain.Webhook) []webhookResponse {
	out := make([]webhookResponse, 0, len(webhooks))
	for _, wh := range webhooks {
		out = append(out, buildWebhookResponse(wh))
	}
	return out
}

// Upsert handles POST /webhooks. Creates one subscription per (owner, event)
// pair, updating the URL of any that already exist. Responds 201 when any
// subscription was newly created, 200 otherwise.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	webhooks, created, err := h.notifierSvc.Upsert(service.UpsertWebhookInput{
		OwnerID: req.OwnerID,
		URL:     req.URL,
		Events:  req.Events,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, map[string]any{
		"webhooks": buildWebhookList(webhooks),
	})
}

// List handles GET /webhooks?owner_id=...
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "owner_id query parameter is required")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"webhooks": buildWebhookList(h.notifierSvc.List(ownerID)),
	})
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "webhook_id")

	if err := h.notifierSvc.Delete(webhookID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
