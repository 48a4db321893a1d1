package handlers

import (
	"net/http"
)

// Stats returns aggregate service counters.
// GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.CountUsers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count users")
		h.Error(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}

	projects, err := h.db.CountProjects(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count projects")
		h.Error(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}

	messages, err := h.db.CountMessages(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count messages")
		h.Error(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}

	h.JSON(w, http.StatusOK, map[string]interface{}{
		"users":        users,
		"projects":     projects,
		"messages":     messages,
		"active_rooms": h.rooms.RoomCount(),
	})
}
