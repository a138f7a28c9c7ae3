package match

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/jason-s-yu/uno/internal/uno"
	"github.com/stretchr/testify/assert"
)

func TestResultRecord(t *testing.T) {
	alice, bot := uuid.New(), uuid.New()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := Result{
		MatchID: uuid.New(),
		Winner:  1,
		Seats: []SeatResult{
			{UserID: alice, Name: "alice", Score: 40, Place: 2},
			{UserID: bot, Name: "bot", Bot: true, Score: 120, Place: 1},
		},
		Hands:     []uno.HandResult{{Number: 1, Dealer: 0, Winner: 1, Points: 120}},
		StartedAt: start,
		EndedAt:   start.Add(time.Minute),
	}

	rec := res.Record(100)
	assert.Equal(t, res.MatchID, rec.MatchID)
	assert.Equal(t, 100, rec.TargetScore)
	assert.Equal(t, []models.SeatResult{
		{UserID: alice, Seat: 0, Name: "alice", Score: 40, Place: 2},
		{UserID: bot, Seat: 1, Name: "bot", Bot: true, Score: 120, Place: 1},
	}, rec.Seats)
	assert.Equal(t, []models.HandRecord{{Number: 1, Dealer: 0, Winner: 1, Points: 120}}, rec.Hands)
	assert.Equal(t, start.Add(time.Minute), rec.EndTime)
}
