// unosim plays bot-only UNO games and prints how each seat fared.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jason-s-yu/uno/internal/sim"
	log "github.com/sirupsen/logrus"
)

type CLI struct {
	Games        int      `default:"1000" help:"Number of games to play"`
	Players      int      `default:"4" help:"Seats per game (2-10)"`
	Target       int      `default:"500" help:"Score that ends a game"`
	Cards        int      `default:"7" help:"Cards dealt to each player"`
	Seed         uint64   `default:"0" help:"Seed; 0 picks one from the clock"`
	Strategy     []string `default:"first" sep:"," help:"Strategy per seat: first, random. The last one fills the remaining seats"`
	DealerPolicy string   `default:"random" enum:"random,rotate,winner" help:"Who deals after the first hand"`
	Workers      int      `default:"0" help:"Parallel games (0 for GOMAXPROCS)"`
	Verbose      bool     `short:"v" help:"Log every finished game"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Description("Simulate UNO games between bots."))

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	seed := cli.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	rep, err := sim.Run(runCtx, sim.Options{
		Games:          cli.Games,
		Players:        cli.Players,
		TargetScore:    cli.Target,
		CardsPerPlayer: cli.Cards,
		Seed:           seed,
		Strategies:     cli.Strategy,
		DealerPolicy:   cli.DealerPolicy,
		Workers:        cli.Workers,
	})
	ctx.FatalIfErrorf(err)
	elapsed := time.Since(start)

	fmt.Printf("UNO simulation: %d games, %d seats, target %d, seed %d\n", rep.Games, cli.Players, cli.Target, seed)
	fmt.Printf("Finished in %v (%.0f games/sec)\n", elapsed.Round(time.Millisecond), float64(rep.Games)/elapsed.Seconds())
	fmt.Printf("Mean hands per game: %.2f, moves: %d\n\n", rep.MeanHands(), rep.TotalMoves)
	fmt.Printf("%-6s %-10s %8s %8s\n", "Seat", "Strategy", "Wins", "Share")
	for i, wins := range rep.Wins {
		fmt.Printf("%-6d %-10s %8d %7.2f%%\n", i, rep.Strategies[i], wins, 100*float64(wins)/float64(rep.Games))
	}
	if rep.Stalled > 0 {
		fmt.Printf("\n%d games stalled\n", rep.Stalled)
	}
	if rep.Violations > 0 {
		log.WithField("games", rep.Violations).Error("card conservation violated")
		ctx.Exit(1)
	}
	ctx.Exit(0)
}
