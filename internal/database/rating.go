package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/jason-s-yu/uno/internal/rating"
	log "github.com/sirupsen/logrus"
)

// SaveUserRating stores u's Glicko-2 fields.
func SaveUserRating(ctx context.Context, u models.User) error {
	return beginTxFunc(ctx, func(tx pgx.Tx) error {
		return saveRatingTx(ctx, tx, u)
	})
}

func saveRatingTx(ctx context.Context, tx pgx.Tx, u models.User) error {
	q := `UPDATE users SET rating=$1, rating_deviation=$2, volatility=$3 WHERE id=$4`
	_, err := tx.Exec(ctx, q, u.Rating, u.RatingDeviation, u.Volatility, u.ID)
	return err
}

// UpdateRatings rates the human seats of a recorded match and writes the new
// ratings with their history rows. Bots and unknown users are not rated.
func UpdateRatings(ctx context.Context, res models.MatchResult) ([]models.RatingChange, error) {
	places := make(map[uuid.UUID]int)
	var ids []uuid.UUID
	for _, s := range res.Seats {
		if s.Bot {
			continue
		}
		places[s.UserID] = s.Place
		ids = append(ids, s.UserID)
	}
	if len(ids) < 2 {
		log.WithField("match", res.MatchID).Debug("fewer than two rated players, no rating update")
		return nil, nil
	}

	users, err := GetUsersByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	updated := rating.FinalizeRatings(users, places)

	changes := make([]models.RatingChange, len(users))
	err = beginTxFunc(ctx, func(tx pgx.Tx) error {
		for i, u := range updated {
			if err := saveRatingTx(ctx, tx, u); err != nil {
				return err
			}
			changes[i] = models.RatingChange{UserID: u.ID, MatchID: res.MatchID, OldRating: users[i].Rating, NewRating: u.Rating}
			q := `
				INSERT INTO ratings (user_id, match_id, old_rating, new_rating)
				VALUES ($1, $2, $3, $4)
			`
			if _, err := tx.Exec(ctx, q, u.ID, res.MatchID, users[i].Rating, u.Rating); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tx rating update: %w", err)
	}
	return changes, nil
}
