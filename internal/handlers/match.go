package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/bot"
	"github.com/jason-s-yu/uno/internal/match"
	"github.com/sirupsen/logrus"
)

type createMatchRequest struct {
	Settings map[string]any `json:"settings"`
	Bots     []string       `json:"bots"`
}

// CreateMatchHandler opens a waiting match hosted and joined by the caller.
//
// Request payload (every field optional):
//
//	{"settings": {"targetScore": 200, "turnTimeoutSec": 20}, "bots": ["first", "random"]}
func (s *MatchServer) CreateMatchHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createMatchRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err)
		return
	}

	settings := s.Defaults
	if err := settings.Update(req.Settings); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Bots)+1 > settings.MaxSeats {
		writeError(w, fmt.Errorf("%w: %d bots do not fit %d seats", match.ErrInvalidSettings, len(req.Bots), settings.MaxSeats))
		return
	}
	strategies := make([]bot.Strategy, len(req.Bots))
	for i, name := range req.Bots {
		if strategies[i], err = bot.ByName(name, nil); err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}

	m := match.NewMatch(user.ID, settings, s.Clock)
	s.wire(m)
	if _, err := m.Join(user.ID, user.Username); err != nil {
		writeError(w, err)
		return
	}
	for _, st := range strategies {
		if _, err := m.AddBot(st); err != nil {
			writeError(w, err)
			return
		}
	}
	s.Store.Add(m)
	s.Logger.WithFields(logrus.Fields{"match": m.ID, "host": user.ID, "bots": len(req.Bots)}).Info("match created")
	writeJSON(w, http.StatusCreated, m.Summary())
}

// ListMatchesHandler lists every match, oldest first, without any hidden state.
func (s *MatchServer) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	matches := s.Store.List()
	out := make([]match.Summary, len(matches))
	for i, m := range matches {
		out[i] = m.Summary()
	}
	writeJSON(w, http.StatusOK, out)
}

// GetMatchHandler returns the match as the caller sees it.
func (s *MatchServer) GetMatchHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matchFromPath(w, r)
	if !ok {
		return
	}
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.ViewFor(user.ID))
}

type seatResponse struct {
	Seat int `json:"seat"`
}

func (s *MatchServer) JoinMatchHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matchFromPath(w, r)
	if !ok {
		return
	}
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	seat, err := m.Join(user.ID, user.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seatResponse{Seat: seat})
}

func (s *MatchServer) LeaveMatchHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matchFromPath(w, r)
	if !ok {
		return
	}
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := m.Leave(user.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addBotRequest struct {
	Strategy string `json:"strategy"`
}

// AddBotHandler lets the host fill a seat with a bot.
func (s *MatchServer) AddBotHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matchFromPath(w, r)
	if !ok {
		return
	}
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addBotRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !isHost(m, user.ID) {
		writeError(w, match.ErrNotHost)
		return
	}
	name := req.Strategy
	if name == "" {
		name = bot.FirstLegal{}.Name()
	}
	st, err := bot.ByName(name, nil)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	seat, err := m.AddBot(st)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seatResponse{Seat: seat})
}

func (s *MatchServer) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matchFromPath(w, r)
	if !ok {
		return
	}
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var update map[string]any
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	if err := m.UpdateSettings(user.ID, update); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Summary())
}

func (s *MatchServer) StartMatchHandler(w http.ResponseWriter, r *http.Request) {
	m, ok := s.matchFromPath(w, r)
	if !ok {
		return
	}
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := m.Start(user.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.ViewFor(user.ID))
}

func isHost(m *match.Match, userID uuid.UUID) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.HostID == userID
}

// decodeOptional decodes a JSON body into v; an empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: invalid payload: %v", errBadRequest, err)
}
