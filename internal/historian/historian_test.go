package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue serves BLPop from a channel.
type fakeQueue struct {
	redis.Cmdable
	items chan string
}

func (q *fakeQueue) BLPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	select {
	case item := <-q.items:
		cmd.SetVal([]string{keys[0], item})
	case <-ctx.Done():
		cmd.SetErr(ctx.Err())
	}
	return cmd
}

type fakeSink struct {
	mu        sync.Mutex
	batches   [][]cache.ActionRecord
	abandoned []uuid.UUID
	fail      error
}

func (s *fakeSink) InsertActions(_ context.Context, recs []cache.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.batches = append(s.batches, recs)
	return nil
}

func (s *fakeSink) MarkMatchAbandoned(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandoned = append(s.abandoned, id)
	return nil
}

func (s *fakeSink) inserted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *Service) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch)
}

func testConfig() config.Historian {
	return config.Historian{QueueName: "q", BatchSize: 2, FlushMs: 500, Inactivity: 10 * time.Minute}
}

func entry(t *testing.T, matchID uuid.UUID, index int, actionType string) string {
	t.Helper()
	data, err := json.Marshal(cache.ActionRecord{
		MatchID:       matchID,
		ActionIndex:   index,
		ActorUserID:   uuid.New(),
		ActionType:    actionType,
		ActionPayload: map[string]any{"seat": 0},
	})
	require.NoError(t, err)
	return string(data)
}

func TestHandleFlushesFullBatches(t *testing.T) {
	sink := &fakeSink{}
	s := New(nil, sink, testConfig(), quartz.NewMock(t))
	ctx := context.Background()
	id := uuid.New()

	s.Handle(ctx, entry(t, id, 1, "card_played"))
	assert.Equal(t, 0, sink.inserted())
	assert.Equal(t, 1, s.pending())

	s.Handle(ctx, entry(t, id, 2, "card_drawn"))
	require.Len(t, sink.batches, 1)
	assert.Equal(t, []int{1, 2}, []int{sink.batches[0][0].ActionIndex, sink.batches[0][1].ActionIndex})
	assert.Equal(t, 0, s.pending())
}

func TestHandleDropsGarbage(t *testing.T) {
	s := New(nil, &fakeSink{}, testConfig(), quartz.NewMock(t))
	s.Handle(context.Background(), "not json")
	s.Handle(context.Background(), `{"action_type":"draw"}`)
	assert.Equal(t, 0, s.pending())
}

func TestFlushDropsFailedBatch(t *testing.T) {
	sink := &fakeSink{fail: errors.New("db down")}
	s := New(nil, sink, testConfig(), quartz.NewMock(t))
	s.Handle(context.Background(), entry(t, uuid.New(), 1, "card_played"))
	s.Flush(context.Background())
	assert.Equal(t, 0, s.pending())
	assert.Equal(t, 0, sink.inserted())
}

func TestSweepInactive(t *testing.T) {
	clock := quartz.NewMock(t)
	sink := &fakeSink{}
	s := New(nil, sink, testConfig(), clock)
	ctx := context.Background()

	quiet, finished, busy := uuid.New(), uuid.New(), uuid.New()
	s.Handle(ctx, entry(t, quiet, 1, "card_played"))
	s.Handle(ctx, entry(t, finished, 1, "card_played"))
	s.Handle(ctx, entry(t, finished, 2, "match_ended"))

	clock.Advance(8 * time.Minute)
	s.Handle(ctx, entry(t, busy, 1, "card_played"))
	clock.Advance(3 * time.Minute)

	s.SweepInactive(ctx)
	assert.Equal(t, []uuid.UUID{quiet}, sink.abandoned)

	s.SweepInactive(ctx)
	assert.Len(t, sink.abandoned, 1, "a match is only marked once")
}

func TestRunDrainsQueue(t *testing.T) {
	q := &fakeQueue{items: make(chan string, 4)}
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.BatchSize = 10
	s := New(q, sink, cfg, quartz.NewMock(t))

	id := uuid.New()
	q.items <- entry(t, id, 1, "match_started")
	q.items <- entry(t, id, 2, "card_played")
	q.items <- entry(t, id, 3, "card_drawn")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.pending() == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, sink.inserted())
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("historian did not stop")
	}
	assert.Equal(t, 3, sink.inserted(), "pending actions are flushed on shutdown")
}
