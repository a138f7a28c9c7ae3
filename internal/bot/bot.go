// Package bot holds the strategies used for computer-controlled seats and the simulator.
package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jason-s-yu/uno/internal/uno"
)

var ErrNotInTurn = errors.New("bot: seat is not in turn")

// Table is the part of a hand a strategy may look at. *uno.Hand satisfies it.
type Table interface {
	PlayerCount() int
	PlayerInTurn() (int, bool)
	PlayerHand(i int) ([]uno.Card, error)
	HandSize(i int) int
	CurrentColor() uno.Color
	LegalPlays() []int
}

type Kind int

const (
	Play Kind = iota
	Draw
)

func (k Kind) String() string {
	if k == Draw {
		return "draw"
	}
	return "play"
}

// Decision is one move for the seat in turn. Index and Color only apply to plays.
type Decision struct {
	Kind   Kind
	Index  int
	Color  uno.Color
	SayUno bool
}

type Strategy interface {
	Name() string
	Decide(t Table) Decision
}

// FirstLegal plays the first legal colored card, falling back to a wild in the
// color it holds most of. It always remembers to say UNO.
type FirstLegal struct{}

func (FirstLegal) Name() string { return "first" }

func (FirstLegal) Decide(t Table) Decision {
	seat, ok := t.PlayerInTurn()
	if !ok {
		return Decision{Kind: Draw}
	}
	cards, _ := t.PlayerHand(seat)
	plays := t.LegalPlays()
	if len(plays) == 0 {
		return Decision{Kind: Draw}
	}
	pick := plays[0]
	for _, i := range plays {
		if !cards[i].IsWild() {
			pick = i
			break
		}
	}
	d := Decision{Kind: Play, Index: pick, SayUno: len(cards) == 2}
	if cards[pick].IsWild() {
		d.Color = DominantColor(cards, pick, t.CurrentColor())
	}
	return d
}

// Random plays a uniformly chosen legal card and draws only when it has none.
type Random struct {
	Rand uno.Randomizer
}

func (Random) Name() string { return "random" }

func (r Random) Decide(t Table) Decision {
	rnd := r.Rand
	if rnd == nil {
		rnd = uno.StandardRandomizer
	}
	seat, ok := t.PlayerInTurn()
	if !ok {
		return Decision{Kind: Draw}
	}
	plays := t.LegalPlays()
	if len(plays) == 0 {
		return Decision{Kind: Draw}
	}
	cards, _ := t.PlayerHand(seat)
	pick := plays[rnd(len(plays))]
	d := Decision{Kind: Play, Index: pick, SayUno: len(cards) == 2}
	if cards[pick].IsWild() {
		d.Color = uno.Colors[rnd(len(uno.Colors))]
	}
	return d
}

// DominantColor is the most common color among cards other than skip. Ties go
// to deck order; a hand of wilds keeps the color in force.
func DominantColor(cards []uno.Card, skip int, fallback uno.Color) uno.Color {
	counts := map[uno.Color]int{}
	for i, c := range cards {
		if i != skip && !c.IsWild() {
			counts[c.Color()]++
		}
	}
	best, bestN := fallback, 0
	for _, c := range uno.Colors {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	if !best.Valid() {
		best = uno.Red
	}
	return best
}

// Apply carries out d for seat on h.
func Apply(h *uno.Hand, seat int, d Decision) error {
	p, ok := h.PlayerInTurn()
	if !ok {
		return uno.ErrHandEnded
	}
	if p != seat {
		return fmt.Errorf("%w: seat %d, %d to act", ErrNotInTurn, seat, p)
	}
	switch d.Kind {
	case Play:
		if d.SayUno {
			if err := h.SayUno(seat); err != nil {
				return err
			}
		}
		_, err := h.Play(d.Index, d.Color)
		return err
	case Draw:
		_, _, err := h.Draw()
		return err
	}
	return fmt.Errorf("bot: unknown decision kind %d", int(d.Kind))
}

// ByName resolves a strategy name. rnd seeds the random strategy and may be nil.
func ByName(name string, rnd uno.Randomizer) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first":
		return FirstLegal{}, nil
	case "random":
		return Random{Rand: rnd}, nil
	}
	return nil, fmt.Errorf("bot: unknown strategy %q", name)
}
