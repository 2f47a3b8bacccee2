package kit8test

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/kit8-platform/kit8/internal/apperrors"
	"github.com/kit8-platform/kit8/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AddUser registers credentials the fake will accept at /api/auth/login.
func (s *Server) AddUser(email, password, name string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = user{id: uuid.NewString(), name: name, passwordHash: hash}
	return nil
}

// IssueToken returns a valid access token for email without going through login.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown user %s", email)
	}
	return auth.GenerateAccessToken(u.id, email, u.name, s.secret, TokenLifetime)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, apperrors.ErrCodeMalformedBody, fmt.Sprintf("could not decode request body: %v", err))
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()

	if !ok || auth.CheckPasswordHash(u.passwordHash, req.Password) != nil {
		s.respondWithError(w, r, http.StatusUnauthorized, apperrors.ErrCodeAuthenticationFailure, "invalid email or password")
		return
	}

	token, err := auth.GenerateAccessToken(u.id, req.Email, u.name, s.secret, TokenLifetime)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, apperrors.ErrCodeInternalError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User:  userResponse{ID: u.id, Email: req.Email, Name: u.name},
	})
}

// authenticate rejects requests without a valid bearer token when the server requires auth.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAuth {
			next.ServeHTTP(w, r)
			return
		}

		token, err := auth.BearerTokenFromHeader(r.Header)
		if err != nil {
			s.respondWithError(w, r, http.StatusUnauthorized, apperrors.ErrCodeAuthenticationFailure, err.Error())
			return
		}
		if _, err := auth.ValidateJWT(token, s.secret); err != nil {
			s.respondWithError(w, r, http.StatusUnauthorized, apperrors.ErrCodeTokenInvalid, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"modules": []string{"crm", "inventory", "orders", "cashier"},
	})
}
