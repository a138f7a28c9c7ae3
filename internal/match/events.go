package match

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/uno"
)

// EventType names a message pushed to clients.
type EventType string

const (
	EventSeatJoined       EventType = "seat_joined"
	EventSeatLeft         EventType = "seat_left"
	EventMatchStarted     EventType = "match_started"
	EventHandStarted      EventType = "hand_started"
	EventCardPlayed       EventType = "card_played"
	EventCardDrawn        EventType = "card_drawn"         // public; no card
	EventPrivateCardDrawn EventType = "private_card_drawn" // the drawer only
	EventUnoDeclared      EventType = "uno_declared"
	EventUnoCaught        EventType = "uno_caught"
	EventAccuseFailed     EventType = "private_accuse_failed"
	EventTurn             EventType = "turn"
	EventTurnTimeout      EventType = "turn_timeout"
	EventHandEnded        EventType = "hand_ended"
	EventMatchEnded       EventType = "match_ended"
	EventMatchAbandoned   EventType = "match_abandoned"
	EventPrivateSyncState EventType = "private_sync_state"
)

type EventSeat struct {
	Index  int       `json:"index"`
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
}

// Event is the envelope of every server push.
type Event struct {
	Type    EventType      `json:"type"`
	Seat    *EventSeat     `json:"seat,omitempty"`
	Card    *uno.Card      `json:"card,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	State   *MatchView     `json:"state,omitempty"`
}
