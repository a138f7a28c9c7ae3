package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

const persistTimeout = 10 * time.Second

// recordMatch stores a completed match and applies its rating changes.
func recordMatch(logger *logrus.Logger, res models.MatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	entry := logger.WithField("match", res.MatchID)
	if err := database.RecordMatchResults(ctx, res); err != nil {
		entry.WithError(err).Error("failed to record match results")
		return
	}
	changes, err := database.UpdateRatings(ctx, res)
	if err != nil {
		entry.WithError(err).Error("failed to update ratings")
		return
	}
	for _, c := range changes {
		entry.WithFields(logrus.Fields{"user": c.UserID, "old": c.OldRating, "new": c.NewRating}).Debug("rating updated")
	}
	entry.WithField("hands", len(res.Hands)).Info("match recorded")
}

func markAbandoned(logger *logrus.Logger, matchID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := database.MarkMatchAbandoned(ctx, matchID); err != nil {
		logger.WithError(err).WithField("match", matchID).Error("failed to mark match abandoned")
	}
}
