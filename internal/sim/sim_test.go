package sim

import (
	"context"
	"testing"

	"github.com/jason-s-yu/uno/internal/uno"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatStrategies(t *testing.T) {
	got, err := SeatStrategies(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "first", "first"}, got)

	got, err = SeatStrategies([]string{"random", " first "}, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"random", "first", "first", "first"}, got)

	_, err = SeatStrategies([]string{"first", "first", "first"}, 2)
	assert.Error(t, err)

	_, err = SeatStrategies([]string{"clever"}, 2)
	assert.Error(t, err)
}

func TestRunIsDeterministic(t *testing.T) {
	opts := Options{
		Games:       6,
		Players:     3,
		TargetScore: 200,
		Seed:        42,
		Strategies:  []string{"first", "random"},
		Workers:     3,
	}
	a, err := Run(context.Background(), opts)
	require.NoError(t, err)
	opts.Workers = 1
	b, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, a.Outcomes, b.Outcomes)
	assert.Equal(t, a.Wins, b.Wins)
	assert.Equal(t, []string{"first", "random", "random"}, a.Strategies)
}

func TestRunConservesCards(t *testing.T) {
	rep, err := Run(context.Background(), Options{
		Games:        10,
		Players:      4,
		TargetScore:  100,
		Seed:         7,
		Strategies:   []string{"random"},
		DealerPolicy: "rotate",
	})
	require.NoError(t, err)

	assert.Zero(t, rep.Violations)
	wins := 0
	for _, w := range rep.Wins {
		wins += w
	}
	assert.Equal(t, rep.Games, wins+rep.Stalled)
	assert.GreaterOrEqual(t, rep.MeanHands(), 1.0)
	for _, o := range rep.Outcomes {
		if o.Stalled {
			continue
		}
		require.Len(t, o.Scores, 4)
		assert.GreaterOrEqual(t, o.Scores[o.Winner], 100)
		assert.True(t, o.Conserved)
	}
}

func TestPlayGameSmallDeal(t *testing.T) {
	out, err := PlayGame(Options{TargetScore: 50, CardsPerPlayer: 1, Seed: 3}, uno.DealerWinner, []string{"first", "first"}, 0)
	require.NoError(t, err)
	if !out.Stalled {
		assert.Contains(t, []int{0, 1}, out.Winner)
		assert.GreaterOrEqual(t, out.Hands, 1)
	}
	assert.Positive(t, out.Moves)
}

func TestRunRejectsBadOptions(t *testing.T) {
	ctx := context.Background()
	_, err := Run(ctx, Options{Games: 0, Players: 2})
	assert.Error(t, err)

	_, err = Run(ctx, Options{Games: 1, Players: 1})
	assert.ErrorIs(t, err, uno.ErrInvalidPlayerCount)

	_, err = Run(ctx, Options{Games: 1, Players: 2, DealerPolicy: "loser"})
	assert.Error(t, err)
}

func TestRunHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Options{Games: 4, Players: 2, Seed: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
