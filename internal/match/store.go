package match

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store keeps the matches this server is running.
type Store struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*Match
	clock   quartz.Clock

	// OnRemove is called, outside the store lock, for every match Sweep drops.
	OnRemove func(m *Match, abandoned bool)
}

func NewStore(clock quartz.Clock) *Store {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Store{
		matches: make(map[uuid.UUID]*Match),
		clock:   clock,
	}
}

func (s *Store) Add(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
}

func (s *Store) Get(id uuid.UUID) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, exists := s.matches[id]
	return m, exists
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
}

// List returns every match, oldest first.
func (s *Store) List() []*Match {
	s.mu.Lock()
	out := make([]*Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b *Match) int {
		return a.createdAt.Compare(b.createdAt)
	})
	return out
}

// Sweep drops finished matches and abandons matches idle for longer than maxIdle.
// It returns the ids it removed. OnRemove reports abandoned for every removed
// match that ended through Abandon.
func (s *Store) Sweep(maxIdle time.Duration) []uuid.UUID {
	now := s.clock.Now()
	var removed []uuid.UUID
	for _, m := range s.List() {
		m.Mu.Lock()
		finished := m.Status == StatusFinished
		abandoned := m.abandoned
		idle := now.Sub(m.lastActive)
		m.Mu.Unlock()

		switch {
		case finished:
		case idle > maxIdle:
			abandoned = m.Abandon()
		default:
			continue
		}
		s.Delete(m.ID)
		removed = append(removed, m.ID)
		log.WithFields(log.Fields{"match": m.ID, "abandoned": abandoned}).Debug("match removed")
		if s.OnRemove != nil {
			s.OnRemove(m, abandoned)
		}
	}
	return removed
}

// StartReaper sweeps the store every interval until ctx is done. The returned
// waiter reports why the reaper stopped.
func (s *Store) StartReaper(ctx context.Context, interval, maxIdle time.Duration) quartz.Waiter {
	return s.clock.TickerFunc(ctx, interval, func() error {
		if removed := s.Sweep(maxIdle); len(removed) > 0 {
			log.WithField("count", len(removed)).Info("reaped matches")
		}
		return nil
	}, "reaper")
}

// RunReaper is StartReaper followed by a wait. A cancelled context is a clean stop.
func (s *Store) RunReaper(ctx context.Context, interval, maxIdle time.Duration) error {
	err := s.StartReaper(ctx, interval, maxIdle).Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
