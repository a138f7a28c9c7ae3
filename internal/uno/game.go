package uno

import "fmt"

const DefaultTargetScore = 500

// DefaultPlayers is the roster used when a GameConfig names no players.
var DefaultPlayers = []string{"A", "B"}

// DealerPolicy decides who deals each hand after the first. The first hand's
// dealer always comes from the game's Randomizer.
type DealerPolicy int

const (
	// DealerRandom draws a fresh dealer from the Randomizer for every hand.
	DealerRandom DealerPolicy = iota
	// DealerRotate passes the deal one seat to the left of the previous dealer.
	DealerRotate
	// DealerWinner gives the deal to the winner of the previous hand.
	DealerWinner
)

var dealerPolicyNames = map[DealerPolicy]string{
	DealerRandom: "random",
	DealerRotate: "rotate",
	DealerWinner: "winner",
}

func (p DealerPolicy) String() string {
	if name, ok := dealerPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("DealerPolicy(%d)", int(p))
}

// ParseDealerPolicy maps "random", "rotate" or "winner" to a policy. The empty string is DealerRandom.
func ParseDealerPolicy(s string) (DealerPolicy, error) {
	if s == "" {
		return DealerRandom, nil
	}
	for p, name := range dealerPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return DealerRandom, fmt.Errorf("uno: unknown dealer policy %q", s)
}

// GameConfig describes a new game. Zero fields take the package defaults, so a
// TargetScore of 0 means DefaultTargetScore and only negative targets are rejected.
type GameConfig struct {
	Players        []string
	TargetScore    int
	Shuffler       Shuffler
	Randomizer     Randomizer
	CardsPerPlayer int
	DealerPolicy   DealerPolicy
}

// HandResult summarizes a finished hand.
type HandResult struct {
	Number int // 1-based
	Dealer int
	Winner int
	Points int
}

// GameEndEvent is delivered to OnEnd observers when a player reaches the target score.
type GameEndEvent struct {
	Winner int
	Scores []int
}

// Game sequences hands until some player's cumulative score reaches the target.
// Like Hand it is not safe for concurrent use.
type Game struct {
	players        []string
	targetScore    int
	shuffler       Shuffler
	randomizer     Randomizer
	cardsPerPlayer int
	policy         DealerPolicy

	scores      []int
	hand        *Hand
	handsPlayed int
	winner      int
	err         error

	handObservers []func(HandResult)
	endObservers  []func(GameEndEvent)
}

// NewGame validates cfg and deals the first hand.
func NewGame(cfg GameConfig) (*Game, error) {
	players := cfg.Players
	if players == nil {
		players = DefaultPlayers
	}
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, len(players))
	}
	target := cfg.TargetScore
	if target == 0 {
		target = DefaultTargetScore
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTargetScore, target)
	}
	if cfg.CardsPerPlayer < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCardCount, cfg.CardsPerPlayer)
	}
	g := &Game{
		players:        append([]string(nil), players...),
		targetScore:    target,
		shuffler:       cfg.Shuffler,
		randomizer:     cfg.Randomizer,
		cardsPerPlayer: cfg.CardsPerPlayer,
		policy:         cfg.DealerPolicy,
		scores:         make([]int, len(players)),
		winner:         noPlayer,
	}
	if g.randomizer == nil {
		g.randomizer = StandardRandomizer
	}
	if err := g.newHand(g.randomDealer()); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) randomDealer() int {
	d := g.randomizer(len(g.players))
	if d < 0 || d >= len(g.players) {
		d = ((d % len(g.players)) + len(g.players)) % len(g.players)
	}
	return d
}

func (g *Game) newHand(dealer int) error {
	h, err := NewHand(HandConfig{
		Players:        g.players,
		Dealer:         dealer,
		Shuffler:       g.shuffler,
		CardsPerPlayer: g.cardsPerPlayer,
	})
	if err != nil {
		return err
	}
	h.OnEnd(func(ev EndEvent) { g.handEnded(h, ev) })
	g.hand = h
	return nil
}

func (g *Game) handEnded(h *Hand, ev EndEvent) {
	points, _ := h.Score()
	g.scores[ev.Winner] += points
	g.handsPlayed++
	result := HandResult{Number: g.handsPlayed, Dealer: h.Dealer(), Winner: ev.Winner, Points: points}
	for _, fn := range g.handObservers {
		fn(result)
	}

	for i, s := range g.scores {
		if s >= g.targetScore {
			g.winner = i
			break
		}
	}
	if g.winner != noPlayer {
		g.hand = nil
		end := GameEndEvent{Winner: g.winner, Scores: g.Scores()}
		for _, fn := range g.endObservers {
			fn(end)
		}
		return
	}

	var next int
	switch g.policy {
	case DealerRotate:
		next = (h.Dealer() + 1) % len(g.players)
	case DealerWinner:
		next = ev.Winner
	default:
		next = g.randomDealer()
	}
	// The configuration already dealt one hand successfully, so only a shuffler
	// that degrades between calls can fail here. The game is then over without a
	// winner and Err reports why.
	if err := g.newHand(next); err != nil {
		g.hand = nil
		g.err = fmt.Errorf("deal hand %d: %w", g.handsPlayed+1, err)
	}
}

// Err is the error that stopped the game before anyone reached the target
// score, or nil.
func (g *Game) Err() error { return g.err }

func (g *Game) PlayerCount() int { return len(g.players) }

// Player returns the name of player i.
func (g *Game) Player(i int) (string, error) {
	if i < 0 || i >= len(g.players) {
		return "", fmt.Errorf("%w: player %d of %d", ErrIndexOutOfRange, i, len(g.players))
	}
	return g.players[i], nil
}

// Players returns a copy of the roster.
func (g *Game) Players() []string {
	return append([]string(nil), g.players...)
}

// Score returns player i's cumulative score.
func (g *Game) Score(i int) (int, error) {
	if i < 0 || i >= len(g.scores) {
		return 0, fmt.Errorf("%w: player %d of %d", ErrIndexOutOfRange, i, len(g.scores))
	}
	return g.scores[i], nil
}

// Scores returns a copy of every player's cumulative score.
func (g *Game) Scores() []int {
	return append([]int(nil), g.scores...)
}

func (g *Game) TargetScore() int { return g.targetScore }

func (g *Game) DealerPolicy() DealerPolicy { return g.policy }

// HandsPlayed counts the hands that have ended so far.
func (g *Game) HandsPlayed() int { return g.handsPlayed }

// Winner returns the first player whose score reached the target. ok is false while the game runs.
func (g *Game) Winner() (int, bool) {
	if g.winner == noPlayer {
		return 0, false
	}
	return g.winner, true
}

// CurrentHand returns the hand in progress, or nil once the game has a winner
// or Err is set.
func (g *Game) CurrentHand() *Hand { return g.hand }

// OnHandEnd registers an observer for every finished hand. It runs after the
// winner's score is updated and before the next hand is dealt.
func (g *Game) OnHandEnd(fn func(HandResult)) {
	g.handObservers = append(g.handObservers, fn)
}

// OnEnd registers an observer for the end of the game.
func (g *Game) OnEnd(fn func(GameEndEvent)) {
	g.endObservers = append(g.endObservers, fn)
}
