// Package historian drains the match action queue from Redis into the
// database and marks matches abandoned once their actions stop arriving.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sink persists what the historian reads. database.ActionSink implements it.
type Sink interface {
	InsertActions(ctx context.Context, recs []cache.ActionRecord) error
	MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) error
}

const (
	popTimeout       = 3 * time.Second
	inactivityPeriod = time.Minute
	retryDelay       = time.Second
)

// Service batches action records and hands them to a Sink.
type Service struct {
	client     redis.Cmdable
	sink       Sink
	clock      quartz.Clock
	queue      string
	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration

	mu           sync.Mutex
	batch        []cache.ActionRecord
	lastActivity map[uuid.UUID]time.Time
}

// New builds a Service reading cfg.QueueName. A nil clock means the real one.
func New(client redis.Cmdable, sink Sink, cfg config.Historian, clock quartz.Clock) *Service {
	if clock == nil {
		clock = quartz.NewReal()
	}
	queue := cfg.QueueName
	if queue == "" {
		queue = cache.DefaultQueueName
	}
	batchSize := max(cfg.BatchSize, 1)
	flushDelay := cfg.FlushInterval()
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		client:       client,
		sink:         sink,
		clock:        clock,
		queue:        queue,
		batchSize:    batchSize,
		flushDelay:   flushDelay,
		inactivity:   cfg.Inactivity,
		batch:        make([]cache.ActionRecord, 0, batchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run reads the queue until ctx is done, flushing on a timer and on full
// batches. Whatever is still pending at shutdown is flushed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	log.WithField("queue", s.queue).Info("uno-historian service started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error {
		return s.clock.TickerFunc(gctx, s.flushDelay, func() error {
			s.Flush(gctx)
			return nil
		}, "historian", "flush").Wait()
	})
	if s.inactivity > 0 {
		g.Go(func() error {
			return s.clock.TickerFunc(gctx, inactivityPeriod, func() error {
				s.SweepInactive(gctx)
				return nil
			}, "historian", "inactivity").Wait()
		})
	}
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	log.Info("uno-historian shutting down")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) readLoop(ctx context.Context) error {
	for {
		res, err := s.client.BLPop(ctx, popTimeout, s.queue).Result()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			log.WithError(err).Error("BLPop")
			if err := s.wait(ctx, retryDelay); err != nil {
				return err
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		s.Handle(ctx, res[1])
	}
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	t := s.clock.NewTimer(d, "historian", "retry")
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Handle decodes one queue entry and adds it to the batch.
func (s *Service) Handle(ctx context.Context, payload string) {
	rec, err := cache.DecodeAction(payload)
	if err != nil {
		log.WithError(err).Warn("dropping queue entry")
		return
	}

	s.mu.Lock()
	switch rec.ActionType {
	case "match_ended", "match_abandoned":
		delete(s.lastActivity, rec.MatchID)
	default:
		s.lastActivity[rec.MatchID] = s.clock.Now()
	}
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.mu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one call to the sink. A failed batch is
// logged and dropped.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]cache.ActionRecord, 0, s.batchSize)
	s.mu.Unlock()

	if err := s.sink.InsertActions(ctx, batch); err != nil {
		log.WithError(err).WithField("count", len(batch)).Error("flush actions")
		return
	}
	log.WithField("count", len(batch)).Debug("flushed actions")
}

// SweepInactive marks every match without an action for longer than the
// inactivity timeout as abandoned.
func (s *Service) SweepInactive(ctx context.Context) {
	now := s.clock.Now()
	var stale []uuid.UUID
	s.mu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.sink.MarkMatchAbandoned(ctx, id); err != nil {
			log.WithError(err).WithField("match", id).Error("failed to mark match abandoned")
			continue
		}
		log.WithField("match", id).Info("marked match abandoned due to inactivity")
	}
}
