package match

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/uno"
)

// SeatView is what everyone may know about a seat.
type SeatView struct {
	Index     int       `json:"index"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Bot       bool      `json:"bot"`
	Connected bool      `json:"connected"`
	HandSize  int       `json:"handSize"`
	Declared  bool      `json:"declared"`
	Score     int       `json:"score"`
	InTurn    bool      `json:"inTurn"`
}

// MatchView is the match as one user sees it. Only that user's own cards are
// included; the draw pile and the other hands are reduced to sizes.
type MatchView struct {
	MatchID      uuid.UUID  `json:"matchId"`
	HostID       uuid.UUID  `json:"hostId"`
	Status       Status     `json:"status"`
	Settings     Settings   `json:"settings"`
	Seats        []SeatView `json:"seats"`
	YourSeat     int        `json:"yourSeat"` // -1 for spectators
	Hand         []uno.Card `json:"hand,omitempty"`
	LegalPlays   []int      `json:"legalPlays,omitempty"`
	Turn         int        `json:"turn"`
	HandNumber   int        `json:"handNumber"` // 0 before the start
	Dealer       int        `json:"dealer"`
	PlayerInTurn int        `json:"playerInTurn"` // -1 when no hand is running
	Direction    int        `json:"direction"`
	CurrentColor uno.Color  `json:"currentColor"`
	DiscardTop   *uno.Card  `json:"discardTop,omitempty"`
	DiscardSize  int        `json:"discardSize"`
	DrawPileSize int        `json:"drawPileSize"`
	Winner       *int       `json:"winner,omitempty"`
}

// ViewFor builds the view of userID, who need not be seated.
func (m *Match) ViewFor(userID uuid.UUID) MatchView {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.viewFor(userID)
}

func (m *Match) viewFor(userID uuid.UUID) MatchView {
	v := MatchView{
		MatchID:      m.ID,
		HostID:       m.HostID,
		Status:       m.Status,
		Settings:     m.Settings,
		Seats:        make([]SeatView, len(m.Seats)),
		YourSeat:     m.seatOf(userID),
		Turn:         m.TurnID,
		Dealer:       -1,
		PlayerInTurn: -1,
	}
	var h *uno.Hand
	var scores []int
	if m.game != nil {
		h = m.game.CurrentHand()
		scores = m.game.Scores()
		v.HandNumber = m.game.HandsPlayed()
		if winner, ok := m.game.Winner(); ok {
			v.Winner = &winner
		}
	}

	for i, s := range m.Seats {
		sv := SeatView{Index: i, UserID: s.UserID, Name: s.Name, Bot: s.Bot, Connected: s.Connected}
		if scores != nil {
			sv.Score = scores[i]
		}
		if h != nil {
			sv.HandSize = h.HandSize(i)
			sv.Declared = h.Declared(i)
		}
		v.Seats[i] = sv
	}
	if h == nil {
		return v
	}

	v.HandNumber++
	v.Dealer = h.Dealer()
	v.Direction = h.Direction()
	v.CurrentColor = h.CurrentColor()
	discard := h.DiscardPile()
	if top, ok := discard.Top(); ok {
		v.DiscardTop = &top
	}
	v.DiscardSize = discard.Size()
	v.DrawPileSize = h.DrawPile().Size()
	if p, ok := h.PlayerInTurn(); ok {
		v.PlayerInTurn = p
		v.Seats[p].InTurn = true
		if p == v.YourSeat {
			v.LegalPlays = h.LegalPlays()
		}
	}
	if v.YourSeat >= 0 {
		v.Hand, _ = h.PlayerHand(v.YourSeat)
	}
	return v
}

// Summary is the public listing entry of a match.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	HostID      uuid.UUID `json:"hostId"`
	Status      Status    `json:"status"`
	Settings    Settings  `json:"settings"`
	Seats       []string  `json:"seats"`
	OpenSeats   int       `json:"openSeats"`
	HandsPlayed int       `json:"handsPlayed"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (m *Match) Summary() Summary {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	s := Summary{
		ID:        m.ID,
		HostID:    m.HostID,
		Status:    m.Status,
		Settings:  m.Settings,
		Seats:     make([]string, len(m.Seats)),
		CreatedAt: m.createdAt,
	}
	for i, seat := range m.Seats {
		s.Seats[i] = seat.Name
	}
	if m.Status == StatusWaiting {
		s.OpenSeats = max(m.Settings.MaxSeats-len(m.Seats), 0)
	}
	if m.game != nil {
		s.HandsPlayed = m.game.HandsPlayed()
	}
	return s
}
