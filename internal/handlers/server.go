// Package handlers exposes users and matches over HTTP and the live match
// socket.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/match"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// Users is the account storage the handlers need. database.UserStore
// implements it.
type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, string, error)
}

// MatchServer owns the in-memory matches and the sockets attached to them.
type MatchServer struct {
	Store     *match.Store
	Users     Users
	Publisher match.ActionPublisher
	Clock     quartz.Clock
	Logger    *logrus.Logger

	// Defaults seeds the settings of every new match.
	Defaults match.Settings
	// OriginPatterns are the hosts allowed to open the match socket.
	OriginPatterns []string
	// TokenTTL is the lifetime of the auth cookie; 0 makes it a session cookie.
	TokenTTL time.Duration

	// OnMatchEnd runs in its own goroutine once a match completes.
	OnMatchEnd func(res match.Result, settings match.Settings)
	// OnMatchAbandoned runs when the store drops a match nobody finished.
	OnMatchAbandoned func(m *match.Match)

	hub *hub
}

// NewMatchServer builds a server around store and takes over store.OnRemove.
func NewMatchServer(logger *logrus.Logger, store *match.Store, users Users) *MatchServer {
	s := &MatchServer{
		Store:          store,
		Users:          users,
		Clock:          quartz.NewReal(),
		Logger:         logger,
		Defaults:       match.DefaultSettings(),
		OriginPatterns: []string{"localhost:*"},
		hub:            newHub(),
	}
	store.OnRemove = s.matchRemoved
	return s
}

// Routes registers every endpoint behind the request logger.
func (s *MatchServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/create", s.CreateUserHandler)
	mux.HandleFunc("POST /user/login", s.LoginHandler)
	mux.HandleFunc("GET /user/me", s.MeHandler)

	mux.HandleFunc("POST /match/create", s.CreateMatchHandler)
	mux.HandleFunc("GET /match/list", s.ListMatchesHandler)
	mux.HandleFunc("GET /match/{id}", s.GetMatchHandler)
	mux.HandleFunc("POST /match/{id}/join", s.JoinMatchHandler)
	mux.HandleFunc("POST /match/{id}/leave", s.LeaveMatchHandler)
	mux.HandleFunc("POST /match/{id}/bots", s.AddBotHandler)
	mux.HandleFunc("POST /match/{id}/settings", s.UpdateSettingsHandler)
	mux.HandleFunc("POST /match/{id}/start", s.StartMatchHandler)

	mux.HandleFunc("GET /match/ws/{id}", s.MatchWSHandler)
	return middleware.LogMiddleware(s.Logger)(mux)
}

// wire connects a new match to the sockets and the end-of-match hook.
func (s *MatchServer) wire(m *match.Match) {
	m.Publisher = s.Publisher
	m.BroadcastFn = func(ev match.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			s.Logger.WithError(err).WithField("event", ev.Type).Error("failed to marshal event")
			return
		}
		// Mu is held here, so the seats can be read directly.
		for _, seat := range m.Seats {
			if seat.Connected && !seat.Bot {
				s.hub.send(m.ID, seat.UserID, data)
			}
		}
	}
	m.BroadcastToSeatFn = func(userID uuid.UUID, ev match.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			s.Logger.WithError(err).WithField("event", ev.Type).Error("failed to marshal event")
			return
		}
		s.hub.send(m.ID, userID, data)
	}
	m.OnEnd = func(res match.Result) {
		if s.OnMatchEnd != nil {
			go s.OnMatchEnd(res, m.Settings)
		}
	}
}

func (s *MatchServer) matchRemoved(m *match.Match, abandoned bool) {
	s.hub.closeMatch(m.ID, MatchClosedError, "match closed")
	if abandoned && s.OnMatchAbandoned != nil {
		s.OnMatchAbandoned(m)
	}
}

// matchFromPath resolves the {id} path value, answering 400 or 404 itself.
func (s *MatchServer) matchFromPath(w http.ResponseWriter, r *http.Request) (*match.Match, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid match id"})
		return nil, false
	}
	m, ok := s.Store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "match not found"})
		return nil, false
	}
	return m, true
}
