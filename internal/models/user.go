package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	// Glicko-2 rating on the 1500 scale.
	Rating          int     `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
}
