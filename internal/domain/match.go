package domain

import "time"

// MatchStatus represents the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusProposed  MatchStatus = "proposed"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusConfirmed MatchStatus = "confirmed"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusDeclined  MatchStatus = "declined"
	MatchStatusExpired   MatchStatus = "expired"
	MatchStatusCancelled MatchStatus = "cancelled"
	MatchStatusNoShow    MatchStatus = "no_show"
)

// Terminal reports whether s admits no further transitions.
func (s MatchStatus) Terminal() bool {
	switch s {
	case MatchStatusCompleted, MatchStatusDeclined, MatchStatusExpired,
		MatchStatusCancelled, MatchStatusNoShow:
		return true
	}
	return false
}

// matchTransitions is the legal transition table of the match lifecycle.
var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusProposed: {
		MatchStatusAccepted,
		MatchStatusDeclined,
		MatchStatusExpired,
		MatchStatusCancelled,
	},
	MatchStatusAccepted: {
		MatchStatusConfirmed,
		MatchStatusCancelled,
	},
	MatchStatusConfirmed: {
		MatchStatusCompleted,
		MatchStatusCancelled,
		MatchStatusNoShow,
	},
}

// CanTransition reports whether from → to is a legal lifecycle transition.
func CanTransition(from, to MatchStatus) bool {
	for _, next := range matchTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Match pairs two reciprocal exchange requests. ProposerID identifies which
// participant initiated the proposal; only the other side may accept. Once a
// match reaches a terminal status it is immutable.
type Match struct {
	MatchID       string
	RequesterID   string
	CounterpartID string
	RequestAID    string
	RequestBID    string
	ProposerID    string
	Status        MatchStatus
	Rating        *float64 // set on completion, [1, 5]
	Reason        *string  // set on cancellation or no-show
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	CompletedAt   *time.Time
}

// Participant reports whether actorID is one of the two match participants.
func (m *Match) Participant(actorID string) bool {
	return actorID == m.RequesterID || actorID == m.CounterpartID
}

// Counterparty returns the other participant's id, or "" if actorID is not
// a participant.
func (m *Match) Counterparty(actorID string) string {
	switch actorID {
	case m.RequesterID:
		return m.CounterpartID
	case m.CounterpartID:
		return m.RequesterID
	}
	return ""
}

// MatchEvent records one successful lifecycle transition. The surrounding
// system forwards these as user-facing notifications; the engine does not
// format or deliver messages itself.
type MatchEvent struct {
	MatchID   string
	FromState MatchStatus
	ToState   MatchStatus
	ActorID   string
	Timestamp time.Time
}
