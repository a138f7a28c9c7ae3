package uno

import "errors"

// Construction errors.
var (
	ErrInvalidPlayerCount = errors.New("uno: player count must be between 2 and 10")
	ErrInvalidDealer      = errors.New("uno: dealer is not a valid player index")
	ErrInvalidTargetScore = errors.New("uno: target score must be positive")
	ErrInvalidCardCount   = errors.New("uno: cards per player must not be negative")
	ErrDeckExhausted      = errors.New("uno: deck is too small for the deal")
	ErrNoValidStart       = errors.New("uno: shuffler never produced a non-wild starting card")
	ErrInvalidCard        = errors.New("uno: invalid card")
	ErrInvalidColor       = errors.New("uno: invalid color")
)

// Transition errors. A mutator returning one of these has left the hand untouched.
var (
	ErrHandEnded       = errors.New("uno: hand has ended")
	ErrIndexOutOfRange = errors.New("uno: index out of range")
	ErrIllegalPlay     = errors.New("uno: card cannot be played")
	ErrColorNotAllowed = errors.New("uno: a color can only be chosen for wild cards")
	ErrColorRequired   = errors.New("uno: wild cards need a chosen color")
)
