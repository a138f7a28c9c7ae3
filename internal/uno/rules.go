package uno

// CanPlay reports whether card index of the player in turn is a legal play.
// It is false for any index outside the hand and after the hand has ended.
func (h *Hand) CanPlay(index int) bool {
	if h.HasEnded() {
		return false
	}
	return h.canPlay(h.inTurn, index)
}

// CanPlayAny reports whether the player in turn holds at least one legal card.
func (h *Hand) CanPlayAny() bool {
	return len(h.LegalPlays()) > 0
}

// LegalPlays returns the indexes of every card the player in turn may play.
func (h *Hand) LegalPlays() []int {
	if h.HasEnded() {
		return nil
	}
	var out []int
	for i := range h.hands[h.inTurn] {
		if h.canPlay(h.inTurn, i) {
			out = append(out, i)
		}
	}
	return out
}

func (h *Hand) canPlay(p, index int) bool {
	cards := h.hands[p]
	if index < 0 || index >= len(cards) {
		return false
	}
	card := cards[index]
	top := h.top()
	switch card.Kind() {
	case Numbered:
		if card.Color() == h.color {
			return true
		}
		n, _ := card.Number()
		topN, ok := top.Number()
		return ok && n == topN
	case Skip, Reverse, DrawTwo:
		return card.Color() == h.color || card.Kind() == top.Kind()
	case Wild:
		return true
	case WildDrawFour:
		for i, other := range cards {
			if i != index && !other.IsWild() && other.Color() == h.color {
				return false
			}
		}
		return true
	}
	return false
}
