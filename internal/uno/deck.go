package uno

// DeckSize is the number of cards in a full deck.
const DeckSize = 108

// NewDeck returns the full 108-card deck in canonical, unshuffled order:
// for each color one 0, two of each 1-9, two skips, two reverses and two draws,
// followed by four wilds and four wild draw fours.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, c := range Colors {
		deck = append(deck, NumberedCard(c, 0))
		for n := 1; n <= 9; n++ {
			deck = append(deck, NumberedCard(c, n), NumberedCard(c, n))
		}
		deck = append(deck,
			SkipCard(c), SkipCard(c),
			ReverseCard(c), ReverseCard(c),
			DrawTwoCard(c), DrawTwoCard(c),
		)
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, WildCard())
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, WildDrawFourCard())
	}
	return deck
}

// CountCards tallies a card sequence into a multiset.
func CountCards(cards []Card) map[Card]int {
	counts := make(map[Card]int, len(cards))
	for _, c := range cards {
		counts[c]++
	}
	return counts
}

// IsFullDeck reports whether cards is exactly the 108-card multiset, in any order.
func IsFullDeck(cards []Card) bool {
	if len(cards) != DeckSize {
		return false
	}
	want := CountCards(NewDeck())
	got := CountCards(cards)
	if len(want) != len(got) {
		return false
	}
	for c, n := range want {
		if got[c] != n {
			return false
		}
	}
	return true
}
