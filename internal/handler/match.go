package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/service"
)

// MatchHandler handles HTTP requests for match lifecycle endpoints.
type MatchHandler struct {
	matchSvc *service.MatchService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matchSvc *service.MatchService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc}
}

// proposeMatchRequest is the JSON request body for POST /matches.
type proposeMatchRequest struct {
	RequestAID string `json:"request_a_id"`
	RequestBID string `json:"request_b_id"`
	ActorID    string `json:"actor_id"`
}

// matchActionRequest is the JSON request body for the lifecycle action
// endpoints. Rating is only read by complete; Reason only by cancel and
// no-show.
type matchActionRequest struct {
	ActorID string   `json:"actor_id"`
	Rating  *float64 `json:"rating,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// matchResponse is the JSON representation of a match.
type matchResponse struct {
	MatchID       string   `json:"match_id"`
	RequesterID   string   `json:"requester_id"`
	CounterpartID string   `json:"counterpart_id"`
	RequestAID    string   `json:"request_a_id"`
	RequestBID    string   `json:"request_b_id"`
	ProposerID    string   `json:"proposer_id"`
	Status        string   `json:"status"`
	Rating        *float64 `json:"rating"`
	Reason        *string  `json:"reason"`
	CreatedAt     string   `json:"created_at"`
	ConfirmedAt   *string  `json:"confirmed_at"`
	CompletedAt   *string  `json:"completed_at"`
}

func buildMatchResponse(m *domain.Match) matchResponse {
	resp := matchResponse{
		MatchID:       m.MatchID,
		RequesterID:   m.RequesterID,
		CounterpartID: m.CounterpartID,
		RequestAID:    m.RequestAID,
		RequestBID:    m.RequestBID,
		ProposerID:    m.ProposerID,
		Status:        string(m.Status),
		Rating:        m.Rating,
		Reason:        m.Reason,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
	if m.ConfirmedAt != nil {
		s := m.ConfirmedAt.Format(time.RFC3339)
		resp.ConfirmedAt = &s
	}
	if m.CompletedAt != nil {
		s := m.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

// Propose handles POST /matches.
func (h *MatchHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req proposeMatchRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ActorID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "actor_id is required")
		return
	}

	m, err := h.matchSvc.Propose(req.RequestAID, req.RequestBID, req.ActorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildMatchResponse(m))
}

// GetMatch handles GET /matches/{match_id}.
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")

	m, err := h.matchSvc.GetMatch(matchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildMatchResponse(m))
}

// ListByParticipant handles GET /owners/{owner_id}/matches.
func (h *MatchHandler) ListByParticipant(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")

	matches := h.matchSvc.ListByParticipant(ownerID)
	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, buildMatchResponse(m))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"matches": out})
}

// parseAction decodes a lifecycle action body and checks the actor.
func parseAction(w http.ResponseWriter, r *http.Request) (matchActionRequest, bool) {
	var req matchActionRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return req, false
	}
	if req.ActorID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "actor_id is required")
		return req, false
	}
	return req, true
}

// Accept handles POST /matches/{match_id}/accept.
func (h *MatchHandler) Accept(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")
	req, ok := parseAction(w, r)
	if !ok {
		return
	}

	m, err := h.matchSvc.Accept(matchID, req.ActorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMatchResponse(m))
}

// Decline handles POST /matches/{match_id}/decline.
func (h *MatchHandler) Decline(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")
	req, ok := parseAction(w, r)
	if !ok {
		return
	}

	m, err := h.matchSvc.Decline(matchID, req.ActorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMatchResponse(m))
}

// Complete handles POST /matches/{match_id}/complete.
func (h *MatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")
	req, ok := parseAction(w, r)
	if !ok {
		return
	}
	if req.Rating == nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "rating is required")
		return
	}

	m, err := h.matchSvc.Complete(matchID, req.ActorID, *req.Rating)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMatchResponse(m))
}

// Cancel handles POST /matches/{match_id}/cancel.
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")
	req, ok := parseAction(w, r)
	if !ok {
		return
	}

	m, err := h.matchSvc.Cancel(matchID, req.ActorID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMatchResponse(m))
}

// ReportNoShow handles POST /matches/{match_id}/no-show.
func (h *MatchHandler) ReportNoShow(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "match_id")
	req, ok := parseAction(w, r)
	if !ok {
		return
	}

	m, err := h.matchSvc.ReportNoShow(matchID, req.ActorID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMatchResponse(m))
}
