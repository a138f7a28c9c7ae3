package uno

// HandSnapshot is a deep copy of a hand's full state, secrets included.
// Callers that expose it to players must strip what those players may not see.
type HandSnapshot struct {
	Players      []string `json:"players"`
	Dealer       int      `json:"dealer"`
	PlayerInTurn int      `json:"player_in_turn"` // -1 once ended
	Direction    int      `json:"direction"`
	CurrentColor Color    `json:"current_color"`
	Hands        [][]Card `json:"hands"`
	DrawPile     []Card   `json:"draw_pile"`    // next card first
	DiscardPile  []Card   `json:"discard_pile"` // top card last
	Declared     []bool   `json:"declared"`
	Ended        bool     `json:"ended"`
	Winner       int      `json:"winner"` // -1 while running
}

// Snapshot copies the hand's state.
func (h *Hand) Snapshot() HandSnapshot {
	hands := make([][]Card, len(h.hands))
	for i, cards := range h.hands {
		hands[i] = append([]Card(nil), cards...)
	}
	return HandSnapshot{
		Players:      h.Players(),
		Dealer:       h.dealer,
		PlayerInTurn: h.inTurn,
		Direction:    h.direction,
		CurrentColor: h.color,
		Hands:        hands,
		DrawPile:     append([]Card(nil), h.drawPile...),
		DiscardPile:  append([]Card(nil), h.discard...),
		Declared:     append([]bool(nil), h.declared...),
		Ended:        h.HasEnded(),
		Winner:       h.winner,
	}
}

// Cards returns every card held anywhere in the snapshot.
func (s HandSnapshot) Cards() []Card {
	var out []Card
	for _, cards := range s.Hands {
		out = append(out, cards...)
	}
	out = append(out, s.DrawPile...)
	return append(out, s.DiscardPile...)
}

// Top returns the card in play.
func (s HandSnapshot) Top() (Card, bool) {
	if len(s.DiscardPile) == 0 {
		return Card{}, false
	}
	return s.DiscardPile[len(s.DiscardPile)-1], true
}
