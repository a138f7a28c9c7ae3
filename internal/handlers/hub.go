package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 64
	writeTimeout = 3 * time.Second
)

// client is one match socket. Messages are written in order by writeLoop.
type client struct {
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

func newClient(conn *websocket.Conn, userID uuid.UUID) *client {
	return &client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// enqueue never blocks. A client too slow to drain its buffer is dropped.
func (c *client) enqueue(data []byte) {
	select {
	case <-c.closed:
	case c.send <- data:
	default:
		log.WithField("user", c.userID).Warn("send buffer full, closing socket")
		c.close(websocket.StatusPolicyViolation, "too slow")
	}
}

func (c *client) close(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.closed)
		if c.conn != nil {
			go c.conn.Close(code, reason)
		}
	})
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).WithField("user", c.userID).Debug("socket write failed")
				c.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// hub tracks the sockets of every match, one per seated user.
type hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]map[uuid.UUID]*client
}

func newHub() *hub {
	return &hub{clients: make(map[uuid.UUID]map[uuid.UUID]*client)}
}

// register makes c the socket of its user in matchID, closing any previous one.
func (h *hub) register(matchID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byUser, ok := h.clients[matchID]
	if !ok {
		byUser = make(map[uuid.UUID]*client)
		h.clients[matchID] = byUser
	}
	if old, ok := byUser[c.userID]; ok {
		old.close(ReplacedError, "connected from elsewhere")
	}
	byUser[c.userID] = c
}

// unregister removes c and reports whether it was still the user's socket.
func (h *hub) unregister(matchID uuid.UUID, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	byUser := h.clients[matchID]
	if byUser[c.userID] != c {
		return false
	}
	delete(byUser, c.userID)
	if len(byUser) == 0 {
		delete(h.clients, matchID)
	}
	return true
}

func (h *hub) send(matchID, userID uuid.UUID, data []byte) {
	h.mu.Lock()
	c := h.clients[matchID][userID]
	h.mu.Unlock()
	if c != nil {
		c.enqueue(data)
	}
}

// closeMatch drops every socket of matchID.
func (h *hub) closeMatch(matchID uuid.UUID, code websocket.StatusCode, reason string) {
	h.mu.Lock()
	byUser := h.clients[matchID]
	delete(h.clients, matchID)
	h.mu.Unlock()
	for _, c := range byUser {
		c.close(code, reason)
	}
}
