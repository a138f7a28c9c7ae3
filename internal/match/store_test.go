package match

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/bot"
	"github.com/jason-s-yu/uno/internal/uno"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idleSettings() Settings {
	s := DefaultSettings()
	s.TurnTimeoutSec = 0
	return s
}

func TestStoreBasics(t *testing.T) {
	clock := quartz.NewMock(t)
	s := NewStore(clock)
	first := NewMatch(uuid.New(), idleSettings(), clock)
	clock.Advance(time.Second)
	second := NewMatch(uuid.New(), idleSettings(), clock)
	s.Add(second)
	s.Add(first)

	got, ok := s.Get(first.ID)
	require.True(t, ok)
	assert.Same(t, first, got)

	list := s.List()
	require.Len(t, list, 2)
	assert.Same(t, first, list[0], "oldest first")

	s.Delete(first.ID)
	_, ok = s.Get(first.ID)
	assert.False(t, ok)
	assert.Len(t, s.List(), 1)
}

func TestSweep(t *testing.T) {
	clock := quartz.NewMock(t)
	s := NewStore(clock)
	type removal struct {
		id        uuid.UUID
		abandoned bool
	}
	var removed []removal
	s.OnRemove = func(m *Match, abandoned bool) { removed = append(removed, removal{m.ID, abandoned}) }

	idle := NewMatch(uuid.New(), idleSettings(), clock)
	finished := NewMatch(uuid.New(), idleSettings(), clock)
	finished.Abandon()
	s.Add(idle)
	s.Add(finished)

	clock.Advance(20 * time.Minute)
	host := uuid.New()
	busy := NewMatch(host, idleSettings(), clock)
	_, err := busy.Join(host, "host")
	require.NoError(t, err)
	_, err = busy.AddBot(bot.FirstLegal{})
	require.NoError(t, err)
	require.NoError(t, busy.Start(host))
	s.Add(busy)

	ids := s.Sweep(15 * time.Minute)
	assert.ElementsMatch(t, []uuid.UUID{idle.ID, finished.ID}, ids)
	assert.ElementsMatch(t, []removal{{idle.ID, true}, {finished.ID, true}}, removed)
	assert.True(t, idle.Abandoned())
	assert.Equal(t, StatusFinished, idle.Status)

	_, ok := s.Get(busy.ID)
	assert.True(t, ok)
	assert.Empty(t, s.Sweep(15*time.Minute))
}

func TestReaper(t *testing.T) {
	clock := quartz.NewMock(t)
	s := NewStore(clock)
	done := NewMatch(uuid.New(), idleSettings(), clock)
	done.Abandon()
	s.Add(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := s.StartReaper(ctx, time.Minute, time.Hour)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	clock.Advance(time.Minute).MustWait(waitCtx)
	assert.Eventually(t, func() bool { return len(s.List()) == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, w.Wait(), context.Canceled)
}

func TestRunReaperStopsCleanly(t *testing.T) {
	s := NewStore(quartz.NewMock(t))
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.RunReaper(ctx, time.Minute, time.Hour) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestSweepReportsCompletedMatchesAsNotAbandoned(t *testing.T) {
	f := newFixture(t, []uno.Card{red5, yellow9, red7}, withCards(1), withTarget(1))
	f.start(t)
	require.NoError(t, f.m.Handle(f.host, Action{Type: ActionPlay, Index: 0}))
	require.Equal(t, StatusFinished, f.m.Status)

	s := NewStore(f.clock)
	var abandoned []bool
	s.OnRemove = func(_ *Match, a bool) { abandoned = append(abandoned, a) }
	s.Add(f.m)

	assert.Equal(t, []uuid.UUID{f.m.ID}, s.Sweep(time.Hour))
	assert.Equal(t, []bool{false}, abandoned)
}
