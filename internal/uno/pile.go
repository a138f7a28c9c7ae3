package uno

// Pile is a read-only copy of the draw or discard pile.
type Pile struct {
	cards    []Card
	topFirst bool
}

func (p Pile) Size() int { return len(p.cards) }

// Top returns the card that would be drawn next (draw pile) or the card in play
// (discard pile). ok is false for an empty pile.
func (p Pile) Top() (Card, bool) {
	if len(p.cards) == 0 {
		return Card{}, false
	}
	if p.topFirst {
		return p.cards[0], true
	}
	return p.cards[len(p.cards)-1], true
}

// Cards returns the pile's cards with the top card first.
func (p Pile) Cards() []Card {
	out := make([]Card, len(p.cards))
	if p.topFirst {
		copy(out, p.cards)
		return out
	}
	for i, c := range p.cards {
		out[len(out)-1-i] = c
	}
	return out
}
