// Package sim plays bot-only UNO games for strategy comparison and as a
// long-running check of the engine.
package sim

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/jason-s-yu/uno/internal/bot"
	"github.com/jason-s-yu/uno/internal/uno"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxMoves bounds one game; a game that needs more is reported as stalled.
const maxMoves = 1_000_000

type Options struct {
	Games          int
	Players        int
	TargetScore    int
	CardsPerPlayer int
	Seed           uint64
	// Strategies names one strategy per seat. A shorter list repeats its last entry.
	Strategies   []string
	DealerPolicy string
	Workers      int // 0 means GOMAXPROCS
}

// GameOutcome is the result of one simulated game.
type GameOutcome struct {
	Game int
	// Winner is -1 for a stalled game.
	Winner int
	Hands  int
	Moves  int
	Scores []int
	// Conserved is false if any snapshot of the game held other than the full deck.
	Conserved bool
	// Stalled is set when the seat in turn could neither play nor draw, or the
	// game ran past the move limit.
	Stalled bool
}

type Report struct {
	Games      int
	Wins       []int // per seat
	Strategies []string
	TotalHands int
	TotalMoves int
	// Violations counts games that failed the card conservation check.
	Violations int
	Stalled    int
	Outcomes   []GameOutcome
}

func (r Report) MeanHands() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.TotalHands) / float64(r.Games)
}

// SeatStrategies expands names to one strategy name per seat.
func SeatStrategies(names []string, players int) ([]string, error) {
	var cleaned []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{bot.FirstLegal{}.Name()}
	}
	if len(cleaned) > players {
		return nil, fmt.Errorf("sim: %d strategies for %d seats", len(cleaned), players)
	}
	out := make([]string, players)
	for i := range out {
		out[i] = cleaned[min(i, len(cleaned)-1)]
		if _, err := bot.ByName(out[i], nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Run plays opts.Games games across opts.Workers goroutines. Game i is fully
// determined by opts.Seed and i.
func Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Games <= 0 {
		return Report{}, fmt.Errorf("sim: games must be positive, got %d", opts.Games)
	}
	if opts.Players < uno.MinPlayers || opts.Players > uno.MaxPlayers {
		return Report{}, fmt.Errorf("%w: got %d", uno.ErrInvalidPlayerCount, opts.Players)
	}
	policy, err := uno.ParseDealerPolicy(opts.DealerPolicy)
	if err != nil {
		return Report{}, err
	}
	strategies, err := SeatStrategies(opts.Strategies, opts.Players)
	if err != nil {
		return Report{}, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]GameOutcome, opts.Games)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range opts.Games {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := PlayGame(opts, policy, strategies, i)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			outcomes[i] = out
			log.WithFields(log.Fields{"game": i, "winner": out.Winner, "hands": out.Hands}).Debug("game finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{Games: opts.Games, Wins: make([]int, opts.Players), Strategies: strategies, Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Stalled {
			rep.Stalled++
		} else {
			rep.Wins[o.Winner]++
		}
		rep.TotalHands += o.Hands
		rep.TotalMoves += o.Moves
		if !o.Conserved {
			rep.Violations++
		}
	}
	return rep, nil
}

// PlayGame plays game number index of a run with opts to the end.
func PlayGame(opts Options, policy uno.DealerPolicy, strategies []string, index int) (GameOutcome, error) {
	base := opts.Seed + uint64(index)*3
	players := make([]string, len(strategies))
	seats := make([]bot.Strategy, len(strategies))
	for i, name := range strategies {
		players[i] = fmt.Sprintf("%s-%d", name, i)
		st, err := bot.ByName(name, uno.SeededRandomizer(base+2+uint64(i)<<32))
		if err != nil {
			return GameOutcome{}, err
		}
		seats[i] = st
	}

	game, err := uno.NewGame(uno.GameConfig{
		Players:        players,
		TargetScore:    opts.TargetScore,
		Shuffler:       uno.SeededShuffler(base),
		Randomizer:     uno.SeededRandomizer(base + 1),
		CardsPerPlayer: opts.CardsPerPlayer,
		DealerPolicy:   policy,
	})
	if err != nil {
		return GameOutcome{}, err
	}

	out := GameOutcome{Game: index, Winner: -1, Conserved: true}
	for game.CurrentHand() != nil {
		h := game.CurrentHand()
		if out.Moves >= maxMoves {
			out.Stalled = true
			return out, nil
		}
		if !uno.IsFullDeck(h.Snapshot().Cards()) {
			out.Conserved = false
		}
		seat, ok := h.PlayerInTurn()
		if !ok {
			return GameOutcome{}, fmt.Errorf("sim: running hand has nobody in turn")
		}
		d := seats[seat].Decide(h)
		if d.Kind == bot.Draw {
			if _, drawn, err := h.Draw(); err != nil {
				return GameOutcome{}, fmt.Errorf("seat %d (%s): %w", seat, seats[seat].Name(), err)
			} else if !drawn && !h.CanPlayAny() {
				out.Stalled = true
				return out, nil
			}
		} else if err := bot.Apply(h, seat, d); err != nil {
			return GameOutcome{}, fmt.Errorf("seat %d (%s): %w", seat, seats[seat].Name(), err)
		}
		out.Moves++
	}

	out.Winner, _ = game.Winner()
	out.Hands = game.HandsPlayed()
	out.Scores = game.Scores()
	return out, nil
}
