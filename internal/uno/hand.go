package uno

import "fmt"

const (
	MinPlayers            = 2
	MaxPlayers            = 10
	DefaultCardsPerPlayer = 7

	// maxSetupAttempts bounds the reshuffle-until-not-wild loop so a broken shuffler
	// cannot hang construction.
	maxSetupAttempts = 1000
)

// noPlayer marks an absent player index (no one in turn, no winner, no open UNO window).
const noPlayer = -1

// HandConfig describes a new hand. Shuffler defaults to StandardShuffler and
// CardsPerPlayer to DefaultCardsPerPlayer.
type HandConfig struct {
	Players        []string
	Dealer         int
	Shuffler       Shuffler
	CardsPerPlayer int
}

// EndEvent is delivered to OnEnd observers when a player empties their hand.
type EndEvent struct {
	Winner int
}

// Hand is a single round of UNO, from the deal until a player runs out of cards.
//
// A Hand is not safe for concurrent use. Every mutator validates its arguments
// before touching any state, so a returned error means nothing changed.
type Hand struct {
	players  []string
	dealer   int
	shuffler Shuffler

	hands    [][]Card
	drawPile []Card // drawPile[0] is drawn next
	discard  []Card // discard[len-1] is the top card

	inTurn    int
	direction int
	color     Color
	winner    int

	declared  []bool
	unoWindow int // player who can currently be caught without UNO, or noPlayer

	observers []func(EndEvent)
}

// NewHand deals a new hand.
func NewHand(cfg HandConfig) (*Hand, error) {
	n := len(cfg.Players)
	if n < MinPlayers || n > MaxPlayers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, n)
	}
	if cfg.Dealer < 0 || cfg.Dealer >= n {
		return nil, fmt.Errorf("%w: %d with %d players", ErrInvalidDealer, cfg.Dealer, n)
	}
	k := cfg.CardsPerPlayer
	if k < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCardCount, k)
	}
	if k == 0 {
		k = DefaultCardsPerPlayer
	}
	shuffler := cfg.Shuffler
	if shuffler == nil {
		shuffler = StandardShuffler
	}

	h := &Hand{
		players:   append([]string(nil), cfg.Players...),
		dealer:    cfg.Dealer,
		shuffler:  shuffler,
		direction: 1,
		winner:    noPlayer,
		declared:  make([]bool, n),
		unoWindow: noPlayer,
	}
	if err := h.deal(k); err != nil {
		return nil, err
	}
	h.applyStartingCard()
	return h, nil
}

// deal shuffles the full deck and deals from it, starting over whenever the
// starting discard would be a wild card.
func (h *Hand) deal(k int) error {
	n := len(h.players)
	dealt := n * k
	for attempt := 0; attempt < maxSetupAttempts; attempt++ {
		cards := h.shuffler(NewDeck())
		if len(cards) <= dealt {
			return fmt.Errorf("%w: %d cards for %d players with %d each", ErrDeckExhausted, len(cards), n, k)
		}
		top := cards[dealt]
		if top.IsWild() {
			continue
		}
		h.hands = make([][]Card, n)
		for i := range h.hands {
			h.hands[i] = append([]Card(nil), cards[i*k:(i+1)*k]...)
		}
		h.discard = []Card{top}
		h.drawPile = append([]Card(nil), cards[dealt+1:]...)
		return nil
	}
	return ErrNoValidStart
}

func (h *Hand) applyStartingCard() {
	top := h.discard[0]
	h.color = top.Color()
	switch top.Kind() {
	case Reverse:
		h.direction = -1
		h.inTurn = h.seatFrom(h.dealer, 1)
	case Skip:
		h.inTurn = h.seatFrom(h.dealer, 2)
	case DrawTwo:
		h.inTurn = h.seatFrom(h.dealer, 1)
		h.drawInto(h.inTurn, 2)
	default:
		h.inTurn = h.seatFrom(h.dealer, 1)
	}
}

// seatFrom returns the seat steps places away from seat in the current direction.
func (h *Hand) seatFrom(seat, steps int) int {
	n := len(h.players)
	return ((seat+steps*h.direction)%n + n) % n
}

func (h *Hand) PlayerCount() int { return len(h.players) }

// Player returns the name of player i.
func (h *Hand) Player(i int) (string, error) {
	if err := h.checkPlayer(i); err != nil {
		return "", err
	}
	return h.players[i], nil
}

// Players returns a copy of the roster.
func (h *Hand) Players() []string {
	return append([]string(nil), h.players...)
}

func (h *Hand) Dealer() int { return h.dealer }

// PlayerInTurn returns the index of the player to act. ok is false once the hand has ended.
func (h *Hand) PlayerInTurn() (int, bool) {
	if h.HasEnded() {
		return 0, false
	}
	return h.inTurn, true
}

// Direction is +1 for clockwise (increasing seat index) and -1 after an odd number of reverses.
func (h *Hand) Direction() int { return h.direction }

// CurrentColor is the color a non-wild card has to match.
func (h *Hand) CurrentColor() Color { return h.color }

// PlayerHand returns a copy of player i's cards.
func (h *Hand) PlayerHand(i int) ([]Card, error) {
	if err := h.checkPlayer(i); err != nil {
		return nil, err
	}
	return append([]Card(nil), h.hands[i]...), nil
}

// HandSize returns how many cards player i holds, or 0 if i is out of range.
func (h *Hand) HandSize(i int) int {
	if i < 0 || i >= len(h.hands) {
		return 0
	}
	return len(h.hands[i])
}

func (h *Hand) DrawPile() Pile {
	return Pile{cards: append([]Card(nil), h.drawPile...), topFirst: true}
}

func (h *Hand) DiscardPile() Pile {
	return Pile{cards: append([]Card(nil), h.discard...)}
}

func (h *Hand) HasEnded() bool { return h.winner != noPlayer }

// Winner returns the player who emptied their hand. ok is false while the hand is running.
func (h *Hand) Winner() (int, bool) {
	if !h.HasEnded() {
		return 0, false
	}
	return h.winner, true
}

// Score is the sum of the point values left in every other player's hand.
// ok is false while the hand is running.
func (h *Hand) Score() (int, bool) {
	if !h.HasEnded() {
		return 0, false
	}
	total := 0
	for i, cards := range h.hands {
		if i == h.winner {
			continue
		}
		for _, c := range cards {
			total += c.Points()
		}
	}
	return total, true
}

// OnEnd registers an observer called once, synchronously, when the hand ends.
// Observers run in registration order.
func (h *Hand) OnEnd(fn func(EndEvent)) {
	h.observers = append(h.observers, fn)
}

func (h *Hand) checkPlayer(i int) error {
	if i < 0 || i >= len(h.players) {
		return fmt.Errorf("%w: player %d of %d", ErrIndexOutOfRange, i, len(h.players))
	}
	return nil
}

// Play plays card index of the player in turn. chosen must be a color for wild
// cards and NoColor for every other card. The played card is returned.
func (h *Hand) Play(index int, chosen Color) (Card, error) {
	if h.HasEnded() {
		return Card{}, ErrHandEnded
	}
	p := h.inTurn
	cards := h.hands[p]
	if index < 0 || index >= len(cards) {
		return Card{}, fmt.Errorf("%w: card %d of %d", ErrIndexOutOfRange, index, len(cards))
	}
	card := cards[index]
	if card.IsWild() {
		if chosen == NoColor {
			return Card{}, ErrColorRequired
		}
		if !chosen.Valid() {
			return Card{}, fmt.Errorf("%w: %v", ErrInvalidColor, chosen)
		}
	} else if chosen != NoColor {
		return Card{}, fmt.Errorf("%w: %v chosen for %v", ErrColorNotAllowed, chosen, card)
	}
	if !h.canPlay(p, index) {
		return Card{}, fmt.Errorf("%w: %v on %v with %v in force", ErrIllegalPlay, card, h.top(), h.color)
	}

	h.hands[p] = append(cards[:index:index], cards[index+1:]...)
	h.discard = append(h.discard, card)
	if card.IsWild() {
		h.color = chosen
	} else {
		h.color = card.Color()
	}
	for i := range h.declared {
		if i != p {
			h.declared[i] = false
		}
	}

	switch card.Kind() {
	case Skip:
		h.inTurn = h.seatFrom(p, 2)
	case Reverse:
		h.direction = -h.direction
		h.inTurn = h.seatFrom(p, 1)
		if len(h.players) == 2 {
			// Reverse acts as a skip between two players.
			h.inTurn = p
		}
	case DrawTwo:
		h.drawInto(h.seatFrom(p, 1), 2)
		h.inTurn = h.seatFrom(p, 2)
	case WildDrawFour:
		h.drawInto(h.seatFrom(p, 1), 4)
		h.inTurn = h.seatFrom(p, 2)
	default:
		h.inTurn = h.seatFrom(p, 1)
	}

	h.unoWindow = noPlayer
	if len(h.hands[p]) == 1 {
		h.unoWindow = p
	}
	if len(h.hands[p]) == 0 {
		h.end(p)
	}
	return card, nil
}

// Draw gives the player in turn the top card of the draw pile. The turn passes
// on unless the drawn card can be played right away. drawn is false when no card
// was left even after reshuffling the discard pile; the call is then a no-op.
func (h *Hand) Draw() (card Card, drawn bool, err error) {
	if h.HasEnded() {
		return Card{}, false, ErrHandEnded
	}
	p := h.inTurn
	card, drawn = h.drawOne()
	if !drawn {
		return Card{}, false, nil
	}
	h.hands[p] = append(h.hands[p], card)
	for i := range h.declared {
		h.declared[i] = false
	}
	h.unoWindow = noPlayer
	if !h.canPlay(p, len(h.hands[p])-1) {
		h.inTurn = h.seatFrom(p, 1)
	}
	return card, true, nil
}

func (h *Hand) end(winner int) {
	h.winner = winner
	h.inTurn = noPlayer
	h.unoWindow = noPlayer
	ev := EndEvent{Winner: winner}
	for _, fn := range h.observers {
		fn(ev)
	}
}

// drawInto moves up to n cards from the draw pile into player p's hand.
func (h *Hand) drawInto(p, n int) {
	for i := 0; i < n; i++ {
		c, ok := h.drawOne()
		if !ok {
			return
		}
		h.hands[p] = append(h.hands[p], c)
	}
}

// drawOne pops the top of the draw pile, refilling it from the discard pile
// before the pop if it is empty and again as soon as the pop empties it.
func (h *Hand) drawOne() (Card, bool) {
	if len(h.drawPile) == 0 {
		h.replenish()
	}
	if len(h.drawPile) == 0 {
		return Card{}, false
	}
	c := h.drawPile[0]
	h.drawPile = h.drawPile[1:]
	if len(h.drawPile) == 0 {
		h.replenish()
	}
	return c, true
}

// replenish shuffles every discard except the top card into a new draw pile.
func (h *Hand) replenish() {
	if len(h.discard) <= 1 {
		return
	}
	top := h.discard[len(h.discard)-1]
	rest := append([]Card(nil), h.discard[:len(h.discard)-1]...)
	h.drawPile = append([]Card(nil), h.shuffler(rest)...)
	h.discard = []Card{top}
}

func (h *Hand) top() Card {
	return h.discard[len(h.discard)-1]
}
