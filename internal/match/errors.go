package match

import "errors"

var (
	ErrNotYourTurn      = errors.New("match: not your turn")
	ErrNotSeated        = errors.New("match: user is not seated in this match")
	ErrMatchFull        = errors.New("match: no free seats")
	ErrMatchStarted     = errors.New("match: already started")
	ErrMatchNotRunning  = errors.New("match: not in progress")
	ErrUnknownAction    = errors.New("match: unknown action")
	ErrNotHost          = errors.New("match: only the host can do that")
	ErrNotEnoughPlayers = errors.New("match: not enough players to start")
	ErrInvalidSettings  = errors.New("match: invalid settings")
)
