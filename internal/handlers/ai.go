package handlers

import (
	"net/http"

	"github.com/devroom-hq/devroom/internal/filetree"
)

// aiErrorText is the fixed body returned when the generation upstream
// fails on the request path.
const aiErrorText = "Sorry, an error occurred while processing your request."

// fixedAIResponse carries the two fixed side-channel payloads. FileTree
// deliberately serializes as an explicit null.
type fixedAIResponse struct {
	Text     string        `json:"text"`
	FileTree filetree.Tree `json:"fileTree"`
}

// GetResult runs a prompt through the generation adapter outside any
// room and returns the normalized result. Nothing is broadcast or
// persisted; this is the request/response side channel.
// GET /ai/get-result?prompt=
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.callerID(w, r); !ok {
		return
	}

	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		h.JSON(w, http.StatusBadRequest, fixedAIResponse{Text: "Prompt is required"})
		return
	}

	if h.ai == nil {
		h.JSON(w, http.StatusInternalServerError, fixedAIResponse{Text: aiErrorText})
		return
	}

	result, err := h.ai.Invoke(r.Context(), prompt)
	if err != nil {
		h.logger.Error().Err(err).Msg("ai generation failed")
		h.JSON(w, http.StatusInternalServerError, fixedAIResponse{Text: aiErrorText})
		return
	}

	h.JSON(w, http.StatusOK, result)
}
