package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/match"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/sirupsen/logrus"
)

const subprotocol = "uno"

// ClientMessage is one message read from the match socket: a match.Action,
// or {"type":"ping"}.
type ClientMessage struct {
	match.Action
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MatchWSHandler attaches a seated user to a running or waiting match. The
// socket receives every event of the match and a private state sync after
// each transition.
func (s *MatchServer) MatchWSHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matchFromPath(w, r)
	if !ok {
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{subprotocol},
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		s.Logger.WithError(err).WithField("match", m.ID).Warn("websocket accept error")
		return
	}
	defer c.CloseNow()

	if c.Subprotocol() != subprotocol {
		c.Close(BadSubprotocolError, "client must use the 'uno' subprotocol")
		return
	}
	userID, err := authenticate(r)
	if err != nil {
		c.Close(InvalidAuthTokenError, "authentication failed")
		return
	}
	if m.Seat(userID) < 0 {
		c.Close(NotSeatedError, "you are not seated in this match")
		return
	}

	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cl := newClient(c, userID)
	s.hub.register(m.ID, cl)
	go cl.writeLoop(ctx)

	if err := m.HandleReconnect(userID); err != nil {
		s.hub.unregister(m.ID, cl)
		c.Close(NotSeatedError, err.Error())
		return
	}

	err = s.readMatchMessages(ctx, cl, m, userID)
	if s.hub.unregister(m.ID, cl) {
		m.HandleDisconnect(userID)
	}
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
}

// readMatchMessages routes client messages to m until the socket closes.
func (s *MatchServer) readMatchMessages(ctx context.Context, cl *client, m *match.Match, userID uuid.UUID) error {
	logger := s.Logger.WithFields(logrus.Fields{"match": m.ID, "user": userID})
	for {
		msgType, data, err := cl.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.Warn("ignoring non-text message")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(cl, "", "invalid JSON format")
			continue
		}
		logger.WithField("action", msg.Type).Debug("received action")

		if msg.Type == "ping" {
			s.sendJSON(cl, map[string]string{"type": "pong"})
			continue
		}
		if err := m.Handle(userID, msg.Action); err != nil {
			s.sendError(cl, msg.Type, err.Error())
		}
	}
}

func (s *MatchServer) sendJSON(cl *client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.Logger.WithError(err).Error("failed to marshal socket message")
		return
	}
	cl.enqueue(data)
}

func (s *MatchServer) sendError(cl *client, action, message string) {
	s.sendJSON(cl, errorMessage{Type: "error", Message: message, Action: action})
}
