package match

import "github.com/jason-s-yu/uno/internal/models"

// Record converts r into the rows persisted for a completed match.
func (r Result) Record(targetScore int) models.MatchResult {
	out := models.MatchResult{
		MatchID:     r.MatchID,
		TargetScore: targetScore,
		Seats:       make([]models.SeatResult, len(r.Seats)),
		Hands:       make([]models.HandRecord, len(r.Hands)),
		StartTime:   r.StartedAt,
		EndTime:     r.EndedAt,
	}
	for i, s := range r.Seats {
		out.Seats[i] = models.SeatResult{UserID: s.UserID, Seat: i, Name: s.Name, Bot: s.Bot, Score: s.Score, Place: s.Place}
	}
	for i, h := range r.Hands {
		out.Hands[i] = models.HandRecord{Number: h.Number, Dealer: h.Dealer, Winner: h.Winner, Points: h.Points}
	}
	return out
}
