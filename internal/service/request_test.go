package service

import (
	"errors"
	"testing"

	"github.com/ifjames/kolekta-match/internal/domain"
	"github.com/ifjames/kolekta-match/internal/engine"
	"github.com/ifjames/kolekta-match/internal/geo"
	"github.com/ifjames/kolekta-match/internal/store"
)

var manilaCityHall = domain.Coordinate{Lat: 14.5995, Lon: 120.9842}

func newTestRequestService() (*RequestService, *store.RequestStore) {
	requests := store.NewRequestStore()
	index := geo.NewIndex()
	scorer := engine.NewScorer(engine.DefaultScoreWeights())
	svc := NewRequestService(requests, index, scorer, 5, 5, 4)
	return svc, requests
}

func postOpen(t *testing.T, svc *RequestService, owner string, offerAmt int64, offerDenom domain.Denomination, needAmt int64, needDenom domain.Denomination, loc domain.Coordinate, trust domain.TrustSignals) *domain.ExchangeRequest {
	t.Helper()
	r, err := svc.PostRequest(PostRequestInput{
		OwnerID:           owner,
		OfferAmount:       offerAmt,
		OfferDenomination: offerDenom,
		NeedAmount:        needAmt,
		NeedDenomination:  needDenom,
		Location:          loc,
		Trust:             trust,
	})
	if err != nil {
		t.Fatalf("PostRequest() error = %v", err)
	}
	return r
}

func TestRequestService_PostRequest(t *testing.T) {
	svc, _ := newTestRequestService()

	r := postOpen(t, svc, "alice", 1000, domain.DenominationBill, 1000, domain.DenominationCoin, manilaCityHall, domain.TrustSignals{})

	if r.RequestID == "" {
		t.Error("RequestID not assigned")
	}
	if r.Status != domain.RequestStatusOpen {
		t.Errorf("Status = %s, want open", r.Status)
	}
	if len(r.SpatialKey) != 5 {
		t.Errorf("SpatialKey = %q, want 5 symbols", r.SpatialKey)
	}

	got, err := svc.GetRequest(r.RequestID)
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if got.OwnerID != "alice" {
		t.Errorf("OwnerID = %q, want alice", got.OwnerID)
	}
}

func TestRequestService_PostRequest_Validation(t *testing.T) {
	svc, _ := newTestRequestService()

	valid := PostRequestInput{
		OwnerID:           "alice",
		OfferAmount:       1000,
		OfferDenomination: domain.DenominationBill,
		NeedAmount:        1000,
		NeedDenomination:  domain.DenominationCoin,
		Location:          manilaCityHall,
	}

	tests := []struct {
		name   string
		mutate func(*PostRequestInput)
	}{
		{"missing owner", func(in *PostRequestInput) { in.OwnerID = "" }},
		{"zero offer amount", func(in *PostRequestInput) { in.OfferAmount = 0 }},
		{"negative need amount", func(in *PostRequestInput) { in.NeedAmount = -5 }},
		{"bad offer denomination", func(in *PostRequestInput) { in.OfferDenomination = "note" }},
		{"bad need denomination", func(in *PostRequestInput) { in.NeedDenomination = "" }},
		{"rating out of range", func(in *PostRequestInput) { in.Trust.Rating = 5.5 }},
		{"latitude out of range", func(in *PostRequestInput) { in.Location.Lat = 95 }},
		{"longitude out of range", func(in *PostRequestInput) { in.Location.Lon = -200 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := svc.PostRequest(in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("PostRequest() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestRequestService_CancelRequest(t *testing.T) {
	svc, requests := newTestRequestService()
	r := postOpen(t, svc, "alice", 1000, domain.DenominationBill, 1000, domain.DenominationCoin, manilaCityHall, domain.TrustSignals{})

	if err := svc.CancelRequest(r.RequestID, "bob"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("CancelRequest by non-owner error = %v, want ErrUnauthorized", err)
	}

	if err := svc.CancelRequest(r.RequestID, "alice"); err != nil {
		t.Fatalf("CancelRequest() error = %v", err)
	}
	got, _ := requests.Get(r.RequestID)
	if got.Status != domain.RequestStatusCancelled {
		t.Errorf("Status = %s, want cancelled", got.Status)
	}

	// Already cancelled: the swap loses.
	if err := svc.CancelRequest(r.RequestID, "alice"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("second CancelRequest error = %v, want ErrConflict", err)
	}

	if err := svc.CancelRequest("missing", "alice"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("CancelRequest(missing) error = %v, want ErrRequestNotFound", err)
	}
}

func TestRequestService_FindCandidates_BestReciprocalWins(t *testing.T) {
	svc, _ := newTestRequestService()

	req := postOpen(t, svc, "alice", 1000, domain.DenominationBill, 1000, domain.DenominationCoin, manilaCityHall, domain.TrustSignals{})

	// Verified, highly rated, 0.3 km away, exact mirror.
	nearby := domain.Coordinate{Lat: 14.6022, Lon: 120.9842}
	best := postOpen(t, svc, "bob", 1000, domain.DenominationCoin, 1000, domain.DenominationBill, nearby, domain.TrustSignals{Verified: true, Rating: 4.8})

	// Mirror but unverified and farther.
	farther := domain.Coordinate{Lat: 14.6220, Lon: 120.9842}
	postOpen(t, svc, "carol", 1000, domain.DenominationCoin, 1000, domain.DenominationBill, farther, domain.TrustSignals{Rating: 2})

	// Not a mirror.
	postOpen(t, svc, "dave", 500, domain.DenominationCoin, 500, domain.DenominationBill, nearby, domain.TrustSignals{})

	// Alice's own mirror post must never come back.
	postOpen(t, svc, "alice", 1000, domain.DenominationCoin, 1000, domain.DenominationBill, nearby, domain.TrustSignals{})

	ranked, err := svc.FindCandidates(req.RequestID, 10)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("FindCandidates() returned %d candidates, want 2", len(ranked))
	}
	if ranked[0].Request.RequestID != best.RequestID {
		t.Errorf("top candidate = %s, want %s", ranked[0].Request.RequestID, best.RequestID)
	}
	// Distance ~94 + verified 50 + rating 48 + freshness 20.
	if ranked[0].Score < 210 || ranked[0].Score > 214 {
		t.Errorf("top score = %v, want ~212", ranked[0].Score)
	}
}

func TestRequestService_FindCandidates_CrossesBucketBoundary(t *testing.T) {
	svc, _ := newTestRequestService()

	req := postOpen(t, svc, "alice", 1000, domain.DenominationBill, 1000, domain.DenominationCoin, manilaCityHall, domain.TrustSignals{})

	// Place the counterpart just across the cell's eastern boundary: a
	// different bucket, but covered by the neighbor scan.
	b, err := geo.DecodeBounds(req.SpatialKey)
	if err != nil {
		t.Fatalf("DecodeBounds() error = %v", err)
	}
	acrossBoundary := domain.Coordinate{Lat: req.Location.Lat, Lon: b.MaxLon + b.Width()/20}
	cand := postOpen(t, svc, "bob", 1000, domain.DenominationCoin, 1000, domain.DenominationBill, acrossBoundary, domain.TrustSignals{})

	if cand.SpatialKey == req.SpatialKey {
		t.Fatal("test setup: candidate landed in the same bucket")
	}

	ranked, err := svc.FindCandidates(req.RequestID, 10)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}
	if len(ranked) != 1 || ranked[0].Request.RequestID != cand.RequestID {
		t.Fatalf("FindCandidates() = %v, want the cross-boundary candidate", ranked)
	}
}

func TestRequestService_FindCandidates_RadiusExcludesFarNeighborBucket(t *testing.T) {
	svc, _ := newTestRequestService()

	req := postOpen(t, svc, "alice", 1000, domain.DenominationBill, 1000, domain.DenominationCoin, manilaCityHall, domain.TrustSignals{})

	nearby := domain.Coordinate{Lat: 14.6022, Lon: 120.9842}
	keep := postOpen(t, svc, "bob", 1000, domain.DenominationCoin, 1000, domain.DenominationBill, nearby, domain.TrustSignals{})

	// Exact mirror near the far edge of the northern neighbor bucket:
	// the bucket scan reaches it, the radius prefilter must not.
	b, err := geo.DecodeBounds(req.SpatialKey)
	if err != nil {
		t.Fatalf("DecodeBounds() error = %v", err)
	}
	farLoc := domain.Coordinate{Lat: b.MaxLat + 0.95*b.Height(), Lon: req.Location.Lon}
	far := postOpen(t, svc, "carol", 1000, domain.DenominationCoin, 1000, domain.DenominationBill, farLoc, domain.TrustSignals{})

	neighbors, err := geo.Neighbors(req.SpatialKey)
	if err != nil {
		t.Fatalf("Neighbors() error = %v", err)
	}
	inNeighborBucket := false
	for _, n := range neighbors {
		if n == far.SpatialKey {
			inNeighborBucket = true
		}
	}
	if !inNeighborBucket {
		t.Fatal("test setup: far candidate not in a neighbor bucket")
	}
	if d := geo.Distance(req.Location, far.Location); d <= 5 {
		t.Fatalf("test setup: far candidate only %.2f km away", d)
	}

	ranked, err := svc.FindCandidates(req.RequestID, 10)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}
	if len(ranked) != 1 || ranked[0].Request.RequestID != keep.RequestID {
		t.Fatalf("FindCandidates() = %v, want only the in-range candidate", ranked)
	}
}

func TestRequestService_FindCandidates_Errors(t *testing.T) {
	svc, requests := newTestRequestService()

	if _, err := svc.FindCandidates("missing", 10); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("FindCandidates(missing) error = %v, want ErrRequestNotFound", err)
	}

	r := postOpen(t, svc, "alice", 1000, domain.DenominationBill, 1000, domain.DenominationCoin, manilaCityHall, domain.TrustSignals{})

	if _, err := svc.FindCandidates(r.RequestID, 0); err == nil {
		t.Error("FindCandidates(limit=0) succeeded, want validation error")
	}

	requests.CompareAndSwapStatus(r.RequestID, domain.RequestStatusOpen, domain.RequestStatusMatched)
	if _, err := svc.FindCandidates(r.RequestID, 10); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("FindCandidates(matched request) error = %v, want ErrConflict", err)
	}
}

func TestRequestService_FindCandidates_LimitTruncates(t *testing.T) {
	svc, _ := newTestRequestService()

	req := postOpen(t, svc, "alice", 1000, domain.DenominationBill, 1000, domain.DenominationCoin, manilaCityHall, domain.TrustSignals{})

	nearby := domain.Coordinate{Lat: 14.6022, Lon: 120.9842}
	for i := 0; i < 5; i++ {
		postOpen(t, svc, "owner", 1000, domain.DenominationCoin, 1000, domain.DenominationBill, nearby, domain.TrustSignals{})
	}

	ranked, err := svc.FindCandidates(req.RequestID, 3)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}
	if len(ranked) != 3 {
		t.Errorf("FindCandidates(limit=3) returned %d, want 3", len(ranked))
	}
}
