package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/devroom-hq/devroom/internal/api/middleware"
	"github.com/devroom-hq/devroom/internal/metrics"
	"github.com/devroom-hq/devroom/internal/models"
)

const minPasswordLength = 6

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new user account and issues a credential.
// POST /users/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "email must be a valid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		h.Error(w, http.StatusBadRequest, "password must be at least 6 characters long")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Email, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			h.Error(w, http.StatusConflict, "user already exists")
			return
		}
		h.logger.Error().Err(err).Msg("failed to create user")
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	tok, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	metrics.UsersRegistered.Inc()
	h.JSON(w, http.StatusCreated, authResponse{User: user, Token: tok})
}

// Login verifies credentials and issues a fresh token.
// POST /users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to look up user")
		h.Error(w, http.StatusInternalServerError, "failed to look up user")
		return
	}
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tok, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.JSON(w, http.StatusOK, authResponse{User: user, Token: tok})
}

// Logout revokes the presented token for the remainder of its lifetime.
// GET /users/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	tok := middleware.BearerToken(r)
	if tok == "" {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if h.redis != nil {
		if err := h.redis.BlacklistToken(r.Context(), tok, h.tokens.TTL()); err != nil {
			h.logger.Error().Err(err).Msg("failed to blacklist token")
			h.Error(w, http.StatusInternalServerError, "failed to log out")
			return
		}
	}

	h.JSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// Profile returns the authenticated user's record.
// GET /users/profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.Error(w, http.StatusUnauthorized, "invalid token subject")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch user")
		h.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	h.JSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

// ListUsers returns every user except the caller, for collaborator
// selection.
// GET /users/all
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	self, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.Error(w, http.StatusUnauthorized, "invalid token subject")
		return
	}

	users, err := h.db.ListUsers(r.Context(), self)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		h.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	h.JSON(w, http.StatusOK, map[string][]models.User{"users": users})
}
