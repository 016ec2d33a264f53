package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/service"
)

// RequestHandler handles HTTP requests for exchange request endpoints.
type RequestHandler struct {
	reqSvc *service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(reqSvc *service.RequestService) *RequestHandler {
	return &RequestHandler{reqSvc: reqSvc}
}

// postRequestRequest is the JSON request body for POST /requests.
type postRequestRequest struct {
	OwnerID           string             `json:"owner_id"`
	OfferAmount       int64              `json:"offer_amount"`
	OfferDenomination string             `json:"offer_denomination"`
	NeedAmount        int64              `json:"need_amount"`
	NeedDenomination  string             `json:"need_denomination"`
	Latitude          float64            `json:"latitude"`
	Longitude         float64            `json:"longitude"`
	Trust             *trustSignalsInput `json:"trust"`
}

// trustSignalsInput is the optional trust block in the post body.
type trustSignalsInput struct {
	Verified       bool    `json:"verified"`
	Rating         float64 `json:"rating"`
	CompletedCount int     `json:"completed_count"`
}

// requestResponse is the JSON representation of an exchange request.
type requestResponse struct {
	RequestID         string               `json:"request_id"`
	OwnerID           string               `json:"owner_id"`
	OfferAmount       int64                `json:"offer_amount"`
	OfferDenomination string               `json:"offer_denomination"`
	NeedAmount        int64                `json:"need_amount"`
	NeedDenomination  string               `json:"need_denomination"`
	Latitude          float64              `json:"latitude"`
	Longitude         float64              `json:"longitude"`
	SpatialKey        string               `json:"spatial_key"`
	Status            string               `json:"status"`
	CreatedAt         string               `json:"created_at"`
	Trust             trustSignalsResponse `json:"trust"`
}

// trustSignalsResponse is the trust block in responses.
type trustSignalsResponse struct {
	Verified       bool    `json:"verified"`
	Rating         float64 `json:"rating"`
	CompletedCount int     `json:"completed_count"`
}

// candidateResponse is one ranked candidate in the candidates listing.
type candidateResponse struct {
	Request    requestResponse `json:"request"`
	DistanceKm float64         `json:"distance_km"`
	Score      float64         `json:"score"`
}

func buildRequestResponse(r *domain.ExchangeRequest) requestResponse {
	return requestResponse{
		RequestID:         r.RequestID,
		OwnerID:           r.OwnerID,
		OfferAmount:       r.OfferAmount,
		OfferDenomination: string(r.OfferDenomination),
		NeedAmount:        r.NeedAmount,
		NeedDenomination:  string(r.NeedDenomination),
		Latitude:          r.Location.Lat,
		Longitude:         r.Location.Lon,
		SpatialKey:        r.SpatialKey,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
		Trust: trustSignalsResponse{
			Verified:       r.Trust.Verified,
			Rating:         r.Trust.Rating,
			CompletedCount: r.Trust.CompletedCount,
		},
	}
}

// PostRequest handles POST /requests.
func (h *RequestHandler) PostRequest(w http.ResponseWriter, r *http.Request) {
	var req postRequestRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	in := service.PostRequestInput{
		OwnerID:           req.OwnerID,
		OfferAmount:       req.OfferAmount,
		OfferDenomination: domain.Denomination(req.OfferDenomination),
		NeedAmount:        req.NeedAmount,
		NeedDenomination:  domain.Denomination(req.NeedDenomination),
		Location:          domain.Coordinate{Lat: req.Latitude, Lon: req.Longitude},
	}
	if req.Trust != nil {
		in.Trust = domain.TrustSignals{
			Verified:       req.Trust.Verified,
			Rating:         req.Trust.Rating,
			CompletedCount: req.Trust.CompletedCount,
		}
	}

	created, err := h.reqSvc.PostRequest(in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildRequestResponse(created))
}

// GetRequest handles GET /requests/{request_id}.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")

	req, err := h.reqSvc.GetRequest(requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildRequestResponse(req))
}

// CancelRequest handles DELETE /requests/{request_id}. The acting owner is
// identified by the actor_id query parameter; identity verification is the
// caller's concern.
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	actorID := r.URL.Query().Get("actor_id")
	if actorID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "actor_id query parameter is required")
		return
	}

	if err := h.reqSvc.CancelRequest(requestID, actorID); err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// ListCandidates handles GET /requests/{request_id}/candidates.
func (h *RequestHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	ranked, err := h.reqSvc.FindCandidates(requestID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]candidateResponse, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, candidateResponse{
			Request:    buildRequestResponse(c.Request),
			DistanceKm: c.DistanceKm,
			Score:      c.Score,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"candidates": out})
}

// ListByOwner handles GET /owners/{owner_id}/requests.
func (h *RequestHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")

	requests := h.reqSvc.ListByOwner(ownerID)
	out := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, buildRequestResponse(req))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"requests": out})
}
