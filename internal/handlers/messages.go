package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/devroom-hq/devroom/internal/api/middleware"
	"github.com/devroom-hq/devroom/internal/models"
	"github.com/devroom-hq/devroom/internal/store"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
	defaultSearchLimit  = 25
)

// GetProjectMessages returns chat history for a project, oldest first, so
// clients can render it top to bottom.
// GET /messages/project/{id}?limit=
func (h *Handler) GetProjectMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if h.requireProjectMember(w, r, projectID, userID) == nil {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, err := h.db.GetProjectMessages(r.Context(), projectID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch messages")
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	h.JSON(w, http.StatusOK, map[string][]models.Message{"messages": messages})
}

type saveMessageRequest struct {
	ProjectID string `json:"projectId"`
	Message   string `json:"message"`
}

// SaveMessage records a message outside the live channel, for clients
// that reconnect and need to backfill something they sent while offline.
// POST /messages
func (h *Handler) SaveMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req saveMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if req.Message == "" {
		h.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	project := h.requireProjectMember(w, r, projectID, userID)
	if project == nil {
		return
	}

	claims := middleware.GetUserFromContext(r.Context())
	msg := &models.Message{
		ID:          ulid.Make().String(),
		ProjectID:   projectID.String(),
		SenderID:    userID.String(),
		SenderEmail: claims.Email,
		Body:        req.Message,
		IsAI:        false,
		Timestamp:   time.Now().UnixMilli(),
	}

	if err := h.db.SaveMessage(r.Context(), msg); err != nil {
		h.logger.Error().Err(err).Msg("failed to save message")
		h.Error(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	if h.redis != nil {
		_ = h.redis.CacheMessage(r.Context(), msg)
	}

	h.JSON(w, http.StatusCreated, map[string]*models.Message{"message": msg})
}

// SearchMessages searches the hot cache for messages containing every
// token of the query. Only the last 24h of traffic is indexed.
// GET /messages/search?q=&projectId=&limit=
func (h *Handler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	if h.redis == nil {
		h.Error(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.Error(w, http.StatusBadRequest, "q is required")
		return
	}

	projectFilter := r.URL.Query().Get("projectId")
	if projectFilter != "" {
		projectID, err := uuid.Parse(projectFilter)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid project id")
			return
		}
		if h.requireProjectMember(w, r, projectID, userID) == nil {
			return
		}
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxHistoryLimit {
			limit = n
		}
	}

	tokens := store.Tokenize(query)
	results, err := h.redis.SearchMessages(r.Context(), tokens, limit, 0, projectFilter)
	if err != nil {
		h.logger.Error().Err(err).Msg("search failed")
		h.Error(w, http.StatusInternalServerError, "search failed")
		return
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{
		"query":    query,
		"messages": results,
	})
}
