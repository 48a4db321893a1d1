package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/devroom-hq/devroom/internal/ai"
	"github.com/devroom-hq/devroom/internal/room"
	"github.com/devroom-hq/devroom/internal/store"
	"github.com/devroom-hq/devroom/internal/token"
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db     store.DataStore
	redis  *store.RedisStore
	tokens *token.Manager
	rooms  *room.Registry
	ai     *ai.Adapter
	logger zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies. redis may
// be nil; endpoints that need it degrade or report unavailable.
func NewHandler(db store.DataStore, redis *store.RedisStore, tokens *token.Manager, rooms *room.Registry, adapter *ai.Adapter, logger zerolog.Logger) *Handler {
	return &Handler{db: db, redis: redis, tokens: tokens, rooms: rooms, ai: adapter, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters
	if len(name) > 100 {
		name = name[:100]
	}

	return name
}

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
