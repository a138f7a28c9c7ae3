package match

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/uno/internal/uno"
)

// Settings are the house rules a host picks before starting.
type Settings struct {
	TargetScore    int    `json:"targetScore"`
	CardsPerPlayer int    `json:"cardsPerPlayer"`
	DealerPolicy   string `json:"dealerPolicy"`
	TurnTimeoutSec int    `json:"turnTimeoutSec"` // 0 disables the turn timer
	MaxSeats       int    `json:"maxSeats"`
}

const maxCardsPerPlayer = 10

func DefaultSettings() Settings {
	return Settings{
		TargetScore:    uno.DefaultTargetScore,
		CardsPerPlayer: uno.DefaultCardsPerPlayer,
		DealerPolicy:   uno.DealerRandom.String(),
		TurnTimeoutSec: 30,
		MaxSeats:       4,
	}
}

func (s Settings) TurnTimeout() time.Duration {
	return time.Duration(s.TurnTimeoutSec) * time.Second
}

// Validate checks every field against the limits of the engine.
func (s Settings) Validate() error {
	if s.TargetScore <= 0 {
		return fmt.Errorf("%w: targetScore must be positive", ErrInvalidSettings)
	}
	if s.CardsPerPlayer < 1 || s.CardsPerPlayer > maxCardsPerPlayer {
		return fmt.Errorf("%w: cardsPerPlayer must be between 1 and %d", ErrInvalidSettings, maxCardsPerPlayer)
	}
	if _, err := uno.ParseDealerPolicy(s.DealerPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.TurnTimeoutSec < 0 {
		return fmt.Errorf("%w: turnTimeoutSec must be non-negative", ErrInvalidSettings)
	}
	if s.MaxSeats < uno.MinPlayers || s.MaxSeats > uno.MaxPlayers {
		return fmt.Errorf("%w: maxSeats must be between %d and %d", ErrInvalidSettings, uno.MinPlayers, uno.MaxPlayers)
	}
	return nil
}

// Update applies the keys present in newSettings. Absent or null keys keep
// their old value. Nothing changes unless the whole update is valid.
func (s *Settings) Update(newSettings map[string]any) error {
	next := *s

	assignInt := func(field *int, key string) error {
		val, exists := newSettings[key]
		if !exists || val == nil {
			return nil
		}
		// JSON numbers decode as float64
		switch v := val.(type) {
		case float64:
			if v != float64(int(v)) {
				return fmt.Errorf("%w: %s must be a whole number", ErrInvalidSettings, key)
			}
			*field = int(v)
		case int:
			*field = v
		default:
			return fmt.Errorf("%w: invalid type for %s", ErrInvalidSettings, key)
		}
		return nil
	}

	assignString := func(field *string, key string) error {
		val, exists := newSettings[key]
		if !exists || val == nil {
			return nil
		}
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("%w: invalid type for %s", ErrInvalidSettings, key)
		}
		*field = str
		return nil
	}

	if err := assignInt(&next.TargetScore, "targetScore"); err != nil {
		return err
	}
	if err := assignInt(&next.CardsPerPlayer, "cardsPerPlayer"); err != nil {
		return err
	}
	if err := assignString(&next.DealerPolicy, "dealerPolicy"); err != nil {
		return err
	}
	if err := assignInt(&next.TurnTimeoutSec, "turnTimeoutSec"); err != nil {
		return err
	}
	if err := assignInt(&next.MaxSeats, "maxSeats"); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

func (s Settings) gameConfig(players []string) uno.GameConfig {
	policy, _ := uno.ParseDealerPolicy(s.DealerPolicy)
	return uno.GameConfig{
		Players:        players,
		TargetScore:    s.TargetScore,
		CardsPerPlayer: s.CardsPerPlayer,
		DealerPolicy:   policy,
	}
}
