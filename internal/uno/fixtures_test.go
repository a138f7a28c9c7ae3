package uno

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// cardPredicate selects cards for a pinned deck position.
type cardPredicate func(Card) bool

func card(want Card) cardPredicate {
	return func(c Card) bool { return c == want }
}

func ofKind(kinds ...Kind) cardPredicate {
	return func(c Card) bool {
		for _, k := range kinds {
			if c.Kind() == k {
				return true
			}
		}
		return false
	}
}

// ofColor matches colored cards only; wild cards never match.
func ofColor(colors ...Color) cardPredicate {
	return func(c Card) bool {
		if c.IsWild() {
			return false
		}
		for _, col := range colors {
			if c.Color() == col {
				return true
			}
		}
		return false
	}
}

func numbered(numbers ...int) cardPredicate {
	return func(c Card) bool {
		n, ok := c.Number()
		if !ok {
			return false
		}
		for _, want := range numbers {
			if n == want {
				return true
			}
		}
		return false
	}
}

func all(preds ...cardPredicate) cardPredicate {
	return func(c Card) bool {
		for _, p := range preds {
			if !p(c) {
				return false
			}
		}
		return true
	}
}

func not(p cardPredicate) cardPredicate {
	return func(c Card) bool { return !p(c) }
}

// constrainedShuffler moves, for each constrained position, the first matching card
// there. Unconstrained positions keep the input's relative order, which makes every
// fixture deterministic.
func constrainedShuffler(constraints map[int]cardPredicate) Shuffler {
	indexes := make([]int, 0, len(constraints))
	for i := range constraints {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return func(cards []Card) []Card {
		rest := append([]Card(nil), cards...)
		found := make([]Card, len(indexes))
		for i, idx := range indexes {
			pos := -1
			for j, c := range rest {
				if constraints[idx](c) {
					pos = j
					break
				}
			}
			if pos == -1 {
				panic("unsatisfiable card constraint")
			}
			found[i] = rest[pos]
			rest = append(rest[:pos], rest[pos+1:]...)
		}
		for i, idx := range indexes {
			if idx >= len(rest) {
				rest = append(rest, found[i])
				continue
			}
			rest = append(rest[:idx], append([]Card{found[i]}, rest[idx:]...)...)
		}
		return rest
	}
}

// shuffleBuilder pins cards to the deal positions of a hand with the given shape.
type shuffleBuilder struct {
	cardsPerPlayer int
	discardIndex   int
	constraints    map[int]cardPredicate
	index          int
	repetition     int
}

func newShuffleBuilder(players, cardsPerPlayer int) *shuffleBuilder {
	return &shuffleBuilder{
		cardsPerPlayer: cardsPerPlayer,
		discardIndex:   players * cardsPerPlayer,
		constraints:    make(map[int]cardPredicate),
		repetition:     1,
	}
}

func (b *shuffleBuilder) at(i int) *shuffleBuilder {
	b.index = i
	b.repetition = 1
	return b
}

func (b *shuffleBuilder) discard() *shuffleBuilder  { return b.at(b.discardIndex) }
func (b *shuffleBuilder) drawPile() *shuffleBuilder { return b.at(b.discardIndex + 1) }
func (b *shuffleBuilder) hand(p int) *shuffleBuilder {
	return b.at(p * b.cardsPerPlayer)
}
func (b *shuffleBuilder) top() *shuffleBuilder { return b.at(0) }

func (b *shuffleBuilder) repeat(n int) *shuffleBuilder {
	b.repetition = n
	return b
}

func (b *shuffleBuilder) is(preds ...cardPredicate) *shuffleBuilder {
	for r := 0; r < b.repetition; r++ {
		for _, p := range preds {
			b.constraints[b.index] = p
			b.index++
		}
	}
	b.repetition = 1
	return b
}

func (b *shuffleBuilder) isnt(preds ...cardPredicate) *shuffleBuilder {
	negated := make([]cardPredicate, len(preds))
	for i, p := range preds {
		negated[i] = not(p)
	}
	return b.is(negated...)
}

func (b *shuffleBuilder) build() Shuffler {
	constraints := make(map[int]cardPredicate, len(b.constraints))
	for i, p := range b.constraints {
		constraints[i] = p
	}
	return constrainedShuffler(constraints)
}

func identityShuffler(cards []Card) []Card {
	return append([]Card(nil), cards...)
}

// shortening truncates the sequence produced by s to size cards.
func shortening(size int, s Shuffler) Shuffler {
	return func(cards []Card) []Card {
		out := s(cards)
		if len(out) > size {
			out = out[:size]
		}
		return out
	}
}

// successive uses each shuffler once in turn and then keeps using the last one.
func successive(shufflers ...Shuffler) Shuffler {
	i := 0
	return func(cards []Card) []Card {
		s := shufflers[i]
		if i < len(shufflers)-1 {
			i++
		}
		return s(cards)
	}
}

// countingShuffler wraps s and counts its calls.
type countingShuffler struct {
	s     Shuffler
	calls int
}

func (c *countingShuffler) shuffle(cards []Card) []Card {
	c.calls++
	if c.s == nil {
		return identityShuffler(cards)
	}
	return c.s(cards)
}

// memoizingShuffler remembers the last sequence it produced.
type memoizingShuffler struct {
	s    Shuffler
	memo []Card
}

func (m *memoizingShuffler) shuffle(cards []Card) []Card {
	m.memo = m.s(cards)
	return append([]Card(nil), m.memo...)
}

func constRandomizer(r int) Randomizer {
	return func(int) int { return r }
}

var fourPlayers = []string{"a", "b", "c", "d"}

func mustHand(t *testing.T, cfg HandConfig) *Hand {
	t.Helper()
	h, err := NewHand(cfg)
	require.NoError(t, err)
	return h
}

func handOf(t *testing.T, h *Hand, i int) []Card {
	t.Helper()
	cards, err := h.PlayerHand(i)
	require.NoError(t, err)
	return cards
}

func mustPlay(t *testing.T, h *Hand, index int, chosen Color) Card {
	t.Helper()
	c, err := h.Play(index, chosen)
	require.NoError(t, err)
	return c
}

func mustDraw(t *testing.T, h *Hand) Card {
	t.Helper()
	c, ok, err := h.Draw()
	require.NoError(t, err)
	require.True(t, ok, "expected a card to be drawn")
	return c
}

func inTurn(t *testing.T, h *Hand) int {
	t.Helper()
	p, ok := h.PlayerInTurn()
	require.True(t, ok, "hand has ended")
	return p
}

// requireConserved checks that the hand still holds exactly one full deck.
func requireConserved(t *testing.T, h *Hand) {
	t.Helper()
	require.True(t, IsFullDeck(h.Snapshot().Cards()), "cards were created or lost")
}
