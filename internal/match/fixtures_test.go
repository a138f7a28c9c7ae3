package match

import (
	"context"
	"sync"
	"testing"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/bot"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/uno"
	"github.com/stretchr/testify/require"
)

var (
	red0    = uno.NumberedCard(uno.Red, 0)
	red1    = uno.NumberedCard(uno.Red, 1)
	red2    = uno.NumberedCard(uno.Red, 2)
	red5    = uno.NumberedCard(uno.Red, 5)
	red7    = uno.NumberedCard(uno.Red, 7)
	blue2   = uno.NumberedCard(uno.Blue, 2)
	yellow9 = uno.NumberedCard(uno.Yellow, 9)
	green6  = uno.NumberedCard(uno.Green, 6)
)

// stacked puts the given cards on top of the deck in order and leaves the rest
// in deck order, so the draw pile of a stacked deal starts RED 0, RED 1, RED 1, RED 2.
func stacked(top ...uno.Card) uno.Shuffler {
	return func(cards []uno.Card) []uno.Card {
		rest := append([]uno.Card(nil), cards...)
		out := make([]uno.Card, 0, len(cards))
		for _, want := range top {
			for i, c := range rest {
				if c == want {
					out = append(out, c)
					rest = append(rest[:i], rest[i+1:]...)
					break
				}
			}
		}
		return append(out, rest...)
	}
}

// recorder stands in for the websocket layer.
type recorder struct {
	mu      sync.Mutex
	public  []Event
	private map[uuid.UUID][]Event
}

func listen(m *Match) *recorder {
	r := &recorder{private: make(map[uuid.UUID][]Event)}
	m.BroadcastFn = func(ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.public = append(r.public, ev)
	}
	m.BroadcastToSeatFn = func(userID uuid.UUID, ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.private[userID] = append(r.private[userID], ev)
	}
	return r
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.public = nil
	r.private = make(map[uuid.UUID][]Event)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.public))
	for i, ev := range r.public {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) find(typ EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.public {
		if ev.Type == typ {
			return ev, true
		}
	}
	return Event{}, false
}

func (r *recorder) privateTo(userID uuid.UUID, typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.private[userID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []cache.ActionRecord
}

func (p *recordingPublisher) Publish(_ context.Context, rec cache.ActionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return nil
}

func (p *recordingPublisher) snapshot() []cache.ActionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]cache.ActionRecord(nil), p.records...)
}

type fixture struct {
	m     *Match
	rec   *recorder
	clock *quartz.Mock
	host  uuid.UUID
	other uuid.UUID // the second seat, a bot unless humanOpponent was used
}

type fixtureOption func(*Settings)

func withCards(k int) fixtureOption     { return func(s *Settings) { s.CardsPerPlayer = k } }
func withTarget(n int) fixtureOption    { return func(s *Settings) { s.TargetScore = n } }
func withTimeout(sec int) fixtureOption { return func(s *Settings) { s.TurnTimeoutSec = sec } }

// newFixture builds a waiting two-seat match: the connected host in seat 0 and a
// FirstLegal bot in seat 1. The dealer is always seat 1, so on a numbered start
// the host acts first.
func newFixture(t *testing.T, deal []uno.Card, opts ...fixtureOption) *fixture {
	t.Helper()
	f := setupFixture(t, deal, opts...)
	seat, err := f.m.AddBot(bot.FirstLegal{})
	require.NoError(t, err)
	require.Equal(t, 1, seat)
	f.other = f.m.Seats[1].UserID
	return f
}

// humanOpponent is newFixture with a second connected human in seat 1.
func humanOpponent(t *testing.T, deal []uno.Card, opts ...fixtureOption) *fixture {
	t.Helper()
	f := setupFixture(t, deal, opts...)
	f.other = uuid.New()
	seat, err := f.m.Join(f.other, "guest")
	require.NoError(t, err)
	require.Equal(t, 1, seat)
	require.NoError(t, f.m.HandleReconnect(f.other))
	return f
}

func setupFixture(t *testing.T, deal []uno.Card, opts ...fixtureOption) *fixture {
	t.Helper()
	s := DefaultSettings()
	s.CardsPerPlayer = 2
	s.TurnTimeoutSec = 0
	for _, opt := range opts {
		opt(&s)
	}
	clock := quartz.NewMock(t)
	host := uuid.New()
	m := NewMatch(host, s, clock)
	m.Shuffler = stacked(deal...)
	m.Randomizer = func(int) int { return 1 }
	rec := listen(m)

	seat, err := m.Join(host, "host")
	require.NoError(t, err)
	require.Equal(t, 0, seat)
	require.NoError(t, m.HandleReconnect(host))
	return &fixture{m: m, rec: rec, clock: clock, host: host}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.m.Start(f.host))
}

// standardDeal gives the host RED 5, BLUE 2 and seat 1 YELLOW 9, GREEN 6 on RED 7.
var standardDeal = []uno.Card{red5, blue2, yellow9, green6, red7}
