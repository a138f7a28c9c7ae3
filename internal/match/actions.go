package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	log "github.com/sirupsen/logrus"
)

const (
	actionBuffer   = 1024
	publishTimeout = 2 * time.Second
)

// actionQueue hands one match's action records to the publisher in order
// from a single goroutine. It is closed by the record that ends the match;
// later records are dropped.
type actionQueue struct {
	matchID uuid.UUID
	records chan cache.ActionRecord
	closed  bool
	done    chan struct{}
}

func newActionQueue(matchID uuid.UUID, pub ActionPublisher) *actionQueue {
	q := &actionQueue{
		matchID: matchID,
		records: make(chan cache.ActionRecord, actionBuffer),
		done:    make(chan struct{}),
	}
	go q.run(pub)
	return q
}

func terminalAction(actionType string) bool {
	return actionType == string(EventMatchEnded) || actionType == string(EventMatchAbandoned)
}

// push queues rec without blocking. Callers serialize pushes under the match lock.
func (q *actionQueue) push(rec cache.ActionRecord) {
	if q.closed {
		log.WithFields(log.Fields{"match": q.matchID, "action": rec.ActionType}).Debug("match already ended, action not published")
		return
	}
	select {
	case q.records <- rec:
	default:
		log.WithFields(log.Fields{"match": q.matchID, "action": rec.ActionIndex}).Warn("action queue full, dropping record")
	}
	if terminalAction(rec.ActionType) {
		q.closed = true
		close(q.records)
	}
}

func (q *actionQueue) run(pub ActionPublisher) {
	defer close(q.done)
	for rec := range q.records {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := pub.Publish(ctx, rec); err != nil {
			log.WithError(err).WithFields(log.Fields{"match": rec.MatchID, "action": rec.ActionIndex}).Warn("failed to publish match action")
		}
		cancel()
	}
}
