package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchAbandoned  MatchStatus = "abandoned"
)

// MatchRecord is a row of the matches table.
type MatchRecord struct {
	ID          uuid.UUID   `json:"id"`
	Status      MatchStatus `json:"status"`
	TargetScore int         `json:"target_score"`
	Winner      *uuid.UUID  `json:"winner,omitempty"`
	StartTime   *time.Time  `json:"start_time,omitempty"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
}

// SeatResult is a row of match_results: one seat's final standing.
type SeatResult struct {
	UserID uuid.UUID `json:"user_id"`
	Seat   int       `json:"seat"`
	Name   string    `json:"name"`
	Bot    bool      `json:"bot"`
	Score  int       `json:"score"`
	Place  int       `json:"place"`
}

// HandRecord is a row of hand_results.
type HandRecord struct {
	Number int `json:"number"`
	Dealer int `json:"dealer"`
	Winner int `json:"winner"`
	Points int `json:"points"`
}

// MatchResult is everything persisted when a match completes.
type MatchResult struct {
	MatchID     uuid.UUID    `json:"match_id"`
	TargetScore int          `json:"target_score"`
	Seats       []SeatResult `json:"seats"`
	Hands       []HandRecord `json:"hands"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
}

// RatingChange is a row of the ratings history.
type RatingChange struct {
	UserID    uuid.UUID `json:"user_id"`
	MatchID   uuid.UUID `json:"match_id"`
	OldRating int       `json:"old_rating"`
	NewRating int       `json:"new_rating"`
}
