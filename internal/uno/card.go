package uno

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color is the color of a card or the color currently bound on the discard pile.
// The zero value NoColor is carried by wild cards and means "no color chosen" in Play.
type Color uint8

const (
	NoColor Color = iota
	Red
	Yellow
	Green
	Blue
)

// Colors lists the four playable colors in deck order.
var Colors = [...]Color{Red, Yellow, Green, Blue}

var colorNames = map[Color]string{
	NoColor: "NONE",
	Red:     "RED",
	Yellow:  "YELLOW",
	Green:   "GREEN",
	Blue:    "BLUE",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

// Valid reports whether c is one of the four playable colors.
func (c Color) Valid() bool {
	return c >= Red && c <= Blue
}

// ParseColor parses a color name case-insensitively. The empty string and "NONE" yield NoColor.
func ParseColor(s string) (Color, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return NoColor, nil
	case "RED":
		return Red, nil
	case "YELLOW":
		return Yellow, nil
	case "GREEN":
		return Green, nil
	case "BLUE":
		return Blue, nil
	}
	return NoColor, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Kind is the variant tag of a Card.
type Kind uint8

const (
	Numbered Kind = iota + 1
	Skip
	Reverse
	DrawTwo
	Wild
	WildDrawFour
)

var kindNames = map[Kind]string{
	Numbered:     "NUMBERED",
	Skip:         "SKIP",
	Reverse:      "REVERSE",
	DrawTwo:      "DRAW",
	Wild:         "WILD",
	WildDrawFour: "WILD DRAW",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func parseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Card is a single UNO card. Only the constructors in this file produce valid cards,
// so a Card's kind always agrees with which of color and number it carries.
// Cards are comparable values; equal cards are interchangeable.
type Card struct {
	kind   Kind
	color  Color
	number uint8
}

// NewCard validates the combination and builds a card. number is ignored
// for every kind but Numbered, color is ignored for wild kinds.
func NewCard(kind Kind, color Color, number int) (Card, error) {
	switch kind {
	case Numbered:
		if !color.Valid() {
			return Card{}, fmt.Errorf("%w: numbered card needs a color, got %v", ErrInvalidCard, color)
		}
		if number < 0 || number > 9 {
			return Card{}, fmt.Errorf("%w: number %d out of 0..9", ErrInvalidCard, number)
		}
		return Card{kind: kind, color: color, number: uint8(number)}, nil
	case Skip, Reverse, DrawTwo:
		if !color.Valid() {
			return Card{}, fmt.Errorf("%w: %v card needs a color, got %v", ErrInvalidCard, kind, color)
		}
		return Card{kind: kind, color: color}, nil
	case Wild, WildDrawFour:
		return Card{kind: kind}, nil
	}
	return Card{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidCard, uint8(kind))
}

func mustCard(kind Kind, color Color, number int) Card {
	c, err := NewCard(kind, color, number)
	if err != nil {
		panic(err)
	}
	return c
}

// NumberedCard returns the numbered card of color c and face value n. It panics on invalid input.
func NumberedCard(c Color, n int) Card { return mustCard(Numbered, c, n) }

// SkipCard returns the skip card of color c.
func SkipCard(c Color) Card { return mustCard(Skip, c, 0) }

// ReverseCard returns the reverse card of color c.
func ReverseCard(c Color) Card { return mustCard(Reverse, c, 0) }

// DrawTwoCard returns the draw-two card of color c.
func DrawTwoCard(c Color) Card { return mustCard(DrawTwo, c, 0) }

// WildCard returns a wild card.
func WildCard() Card { return Card{kind: Wild} }

// WildDrawFourCard returns a wild draw four card.
func WildDrawFourCard() Card { return Card{kind: WildDrawFour} }

func (c Card) Kind() Kind { return c.kind }

// Color returns the printed color; NoColor for wild cards.
func (c Card) Color() Color { return c.color }

// Number returns the face value of a numbered card. ok is false for every other kind.
func (c Card) Number() (n int, ok bool) {
	if c.kind != Numbered {
		return 0, false
	}
	return int(c.number), true
}

// IsWild reports whether the card binds a color when played.
func (c Card) IsWild() bool {
	return c.kind == Wild || c.kind == WildDrawFour
}

// Valid reports whether c was produced by a constructor. The zero Card is not valid.
func (c Card) Valid() bool {
	return c.kind >= Numbered && c.kind <= WildDrawFour
}

// Points is the card's value when it is left in a losing hand.
func (c Card) Points() int {
	switch c.kind {
	case Numbered:
		return int(c.number)
	case Skip, Reverse, DrawTwo:
		return 20
	case Wild, WildDrawFour:
		return 50
	}
	return 0
}

func (c Card) String() string {
	switch c.kind {
	case Numbered:
		return fmt.Sprintf("%v %d", c.color, c.number)
	case Skip, Reverse, DrawTwo:
		return fmt.Sprintf("%v %v", c.color, c.kind)
	}
	return c.kind.String()
}

type cardJSON struct {
	Type   string `json:"type"`
	Color  *Color `json:"color,omitempty"`
	Number *int   `json:"number,omitempty"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: cannot marshal zero card", ErrInvalidCard)
	}
	out := cardJSON{Type: c.kind.String()}
	if !c.IsWild() {
		color := c.color
		out.Color = &color
	}
	if n, ok := c.Number(); ok {
		out.Number = &n
	}
	return json.Marshal(out)
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var in cardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, ok := parseKind(in.Type)
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCard, in.Type)
	}
	color := NoColor
	if in.Color != nil {
		color = *in.Color
	}
	number := 0
	if in.Number != nil {
		number = *in.Number
	} else if kind == Numbered {
		return fmt.Errorf("%w: numbered card without number", ErrInvalidCard)
	}
	parsed, err := NewCard(kind, color, number)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
