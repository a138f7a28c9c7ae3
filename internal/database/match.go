package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/models"
)

// RecordMatchResults stores a completed match with its seat standings and
// hand results in one transaction.
func RecordMatchResults(ctx context.Context, res models.MatchResult) error {
	var winner *uuid.UUID
	for _, s := range res.Seats {
		if s.Place == 1 {
			winner = &s.UserID
			break
		}
	}

	err := beginTxFunc(ctx, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, status, target_score, winner, start_time, end_time)
			VALUES ($1, 'completed', $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET status = 'completed', target_score = $2, winner = $3, start_time = $4, end_time = $5
		`
		if _, err := tx.Exec(ctx, upsertMatch, res.MatchID, res.TargetScore, winner, res.StartTime, res.EndTime); err != nil {
			return err
		}

		for _, s := range res.Seats {
			q := `
				INSERT INTO match_results (match_id, user_id, seat, name, is_bot, score, place)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (match_id, seat)
				DO UPDATE SET score = $6, place = $7
			`
			if _, err := tx.Exec(ctx, q, res.MatchID, s.UserID, s.Seat, s.Name, s.Bot, s.Score, s.Place); err != nil {
				return err
			}
		}
		for _, h := range res.Hands {
			if err := recordHandTx(ctx, tx, res.MatchID, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record match results: %w", err)
	}
	return nil
}

func recordHandTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, h models.HandRecord) error {
	q := `
		INSERT INTO hand_results (match_id, number, dealer, winner, points)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (match_id, number) DO NOTHING
	`
	_, err := tx.Exec(ctx, q, matchID, h.Number, h.Dealer, h.Winner, h.Points)
	return err
}

// ensureMatchTx creates the match row if the match has none yet. An existing
// row keeps its status.
func ensureMatchTx(ctx context.Context, tx pgx.Tx, matchID uuid.UUID) error {
	q := `
		INSERT INTO matches (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	_, err := tx.Exec(ctx, q, matchID)
	return err
}

// InsertActionsTx writes a batch of action records. Records already stored
// are skipped so a redelivered batch is harmless.
func InsertActionsTx(ctx context.Context, tx pgx.Tx, recs []cache.ActionRecord) error {
	seen := make(map[uuid.UUID]bool)
	for _, rec := range recs {
		if !seen[rec.MatchID] {
			if err := ensureMatchTx(ctx, tx, rec.MatchID); err != nil {
				return fmt.Errorf("ensure match %v: %w", rec.MatchID, err)
			}
			seen[rec.MatchID] = true
		}

		payload, err := json.Marshal(rec.ActionPayload)
		if err != nil {
			return err
		}
		var actor *uuid.UUID
		if rec.ActorUserID != uuid.Nil {
			actor = &rec.ActorUserID
		}
		q := `
			INSERT INTO match_actions (match_id, action_index, actor_user_id, action_type, action_payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (match_id, action_index) DO NOTHING
		`
		if _, err := tx.Exec(ctx, q, rec.MatchID, rec.ActionIndex, actor, rec.ActionType, payload, time.UnixMilli(rec.Timestamp)); err != nil {
			return fmt.Errorf("insert action %d of %v: %w", rec.ActionIndex, rec.MatchID, err)
		}
	}
	return nil
}

// MarkMatchAbandoned flags a match that never completed.
func MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) error {
	return beginTxFunc(ctx, func(tx pgx.Tx) error {
		q := `
			INSERT INTO matches (id, status, end_time)
			VALUES ($1, 'abandoned', NOW())
			ON CONFLICT (id) DO UPDATE
			SET status = 'abandoned', end_time = NOW()
			WHERE matches.status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, matchID)
		return err
	})
}

// ActionSink adapts this package to the historian.
type ActionSink struct{}

func (ActionSink) InsertActions(ctx context.Context, recs []cache.ActionRecord) error {
	return beginTxFunc(ctx, func(tx pgx.Tx) error {
		return InsertActionsTx(ctx, tx, recs)
	})
}

func (ActionSink) MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) error {
	return MarkMatchAbandoned(ctx, matchID)
}
