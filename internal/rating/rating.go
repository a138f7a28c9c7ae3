// Package rating turns final match placements into Glicko-2 rating updates.
package rating

import (
	"math"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// current reads u's rating, filling in the defaults for a user never rated.
func current(u models.User) Glicko2Rating {
	rating, rd, sigma := float64(u.Rating), u.RatingDeviation, u.Volatility
	if u.Rating == 0 {
		rating = DefaultRating
	}
	if rd <= 0 {
		rd = DefaultRD
	}
	if sigma <= 0 {
		sigma = DefaultVolatility
	}
	return NewGlicko2Rating(rating, rd, sigma)
}

// FinalizeRatings rates one finished match. places maps each user to their
// final place, 1 being best; equal places are draws. Every pair of players
// counts as one game, so a four-seat match is three games for each player.
// Users missing from places are returned unchanged.
func FinalizeRatings(players []models.User, places map[uuid.UUID]int) []models.User {
	before := make([]Glicko2Rating, len(players))
	for i, u := range players {
		before[i] = current(u)
	}

	out := make([]models.User, len(players))
	for i, u := range players {
		out[i] = u
		mine, ok := places[u.ID]
		if !ok {
			continue
		}
		var games []outcome
		for j, other := range players {
			theirs, ok := places[other.ID]
			if j == i || !ok {
				continue
			}
			games = append(games, outcome{opp: before[j], score: pairScore(mine, theirs)})
		}
		if len(games) == 0 {
			continue
		}
		r := update(before[i], games)
		out[i].Rating = int(math.Round(r.Rating()))
		out[i].RatingDeviation = r.RD()
		out[i].Volatility = r.Sigma
	}
	return out
}

func pairScore(mine, theirs int) float64 {
	switch {
	case mine < theirs:
		return 1
	case mine > theirs:
		return 0
	default:
		return 0.5
	}
}

// Update1v1 rates a two-player match.
func Update1v1(winner, loser models.User) (models.User, models.User) {
	out := FinalizeRatings([]models.User{winner, loser}, map[uuid.UUID]int{winner.ID: 1, loser.ID: 2})
	return out[0], out[1]
}
