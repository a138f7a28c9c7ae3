package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/match"
	"github.com/jason-s-yu/uno/internal/uno"
	log "github.com/sirupsen/logrus"
)

const authCookie = "auth_token"

// tokenFromRequest reads the session token from the auth cookie, falling back
// to an Authorization bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(authCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError answers with the status matching err and its message.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrUserExists),
		errors.Is(err, match.ErrMatchFull),
		errors.Is(err, match.ErrMatchStarted),
		errors.Is(err, match.ErrMatchNotRunning),
		errors.Is(err, match.ErrNotEnoughPlayers),
		errors.Is(err, match.ErrNotYourTurn),
		errors.Is(err, uno.ErrHandEnded):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidCredentials):
		return http.StatusForbidden
	case errors.Is(err, match.ErrNotHost),
		errors.Is(err, match.ErrNotSeated):
		return http.StatusForbidden
	case errors.Is(err, database.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, match.ErrInvalidSettings),
		errors.Is(err, match.ErrUnknownAction),
		errors.Is(err, uno.ErrIllegalPlay),
		errors.Is(err, uno.ErrIndexOutOfRange),
		errors.Is(err, uno.ErrInvalidColor),
		errors.Is(err, uno.ErrColorNotAllowed),
		errors.Is(err, uno.ErrColorRequired),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// AllowOrigin reports whether a browser origin matches one of the server's
// OriginPatterns. Patterns use path.Match syntax against the origin's host, as
// the websocket accept check does.
func (s *MatchServer) AllowOrigin(_ *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, pattern := range s.OriginPatterns {
		if ok, _ := path.Match(strings.ToLower(pattern), host); ok {
			return true
		}
	}
	return false
}
