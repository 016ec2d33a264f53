package domain

import "time"

// Denomination is the category of physical currency unit being exchanged.
type Denomination string

const (
	DenominationBill Denomination = "bill"
	DenominationCoin Denomination = "coin"
)

// Valid reports whether d is a known denomination.
func (d Denomination) Valid() bool {
	return d == DenominationBill || d == DenominationCoin
}

// RequestStatus represents the lifecycle state of an exchange request.
type RequestStatus string

const (
	RequestStatusOpen      RequestStatus = "open"
	RequestStatusMatched   RequestStatus = "matched"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// TrustSignals are per-owner reputation inputs consumed by the ranking
// scorer. They are attached to the request at posting time and treated
// as read-only afterwards.
type TrustSignals struct {
	Verified       bool
	Rating         float64 // [0, 5]
	CompletedCount int
}

// ExchangeRequest represents an open "give X, need Y" post. A request in
// status "matched" is referenced by exactly one non-terminal Match.
type ExchangeRequest struct {
	RequestID         string
	OwnerID           string
	OfferAmount       int64
	OfferDenomination Denomination
	NeedAmount        int64
	NeedDenomination  Denomination
	Location          Coordinate
	SpatialKey        string
	Status            RequestStatus
	CreatedAt         time.Time
	Trust             TrustSignals
}

// CandidateScore is a ranked candidate for a given request. It is derived
// per query and never persisted.
type CandidateScore struct {
	Request    *ExchangeRequest
	DistanceKm float64
	Score      float64
}
