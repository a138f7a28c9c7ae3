package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/models"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// CreateUserHandler registers an account.
func (s *MatchServer) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email, password and username are required"})
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}
	if err := s.Users.CreateUser(r.Context(), &user); err != nil {
		writeError(w, err)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginHandler exchanges credentials for a session token. The token is also
// set as the auth cookie.
//
// Request payload:
//
//	{"email": "someone@example.com", "password": "password"}
//
// Response payload:
//
//	{"token": "{jwt}", "user": {...}}
func (s *MatchServer) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
		return
	}

	user, token, err := s.Users.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		s.Logger.WithError(err).Debug("failed to authenticate user")
		writeError(w, err)
		return
	}
	s.setAuthCookie(w, token)
	user.Password = ""
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// MeHandler returns the caller, creating a guest if needed.
func (s *MatchServer) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

func (s *MatchServer) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.TokenTTL.Seconds()),
	})
}

// authenticate resolves the request's token to a user id.
func authenticate(r *http.Request) (uuid.UUID, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return uuid.Nil, auth.ErrInvalidToken
	}
	return auth.AuthenticateJWT(token)
}

// currentUser returns the caller. A request without a valid token gets a new
// ephemeral guest and its cookie.
func (s *MatchServer) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, error) {
	if id, err := authenticate(r); err == nil {
		user, err := s.Users.GetUserByID(r.Context(), id)
		if err == nil {
			return user, nil
		}
		s.Logger.WithError(err).WithField("user", id).Debug("token for unknown user, issuing a guest")
	}

	guest := models.User{Username: "Guest", IsEphemeral: true}
	if err := s.Users.CreateUser(r.Context(), &guest); err != nil {
		return nil, fmt.Errorf("failed to create ephemeral user: %w", err)
	}
	token, err := auth.CreateJWT(guest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	s.setAuthCookie(w, token)
	return &guest, nil
}
