package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/devroom-hq/devroom/internal/api/middleware"
	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/metrics"
	"github.com/devroom-hq/devroom/internal/models"
)

// callerID resolves the authenticated user id or writes a 401.
func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.Error(w, http.StatusUnauthorized, "invalid token subject")
		return uuid.Nil, false
	}
	return id, true
}

// requireProjectMember loads the project and checks the caller belongs to
// it. Writes the error response itself when it returns nil.
func (h *Handler) requireProjectMember(w http.ResponseWriter, r *http.Request, projectID, userID uuid.UUID) *models.Project {
	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch project")
		h.Error(w, http.StatusInternalServerError, "failed to fetch project")
		return nil
	}
	if project == nil {
		h.Error(w, http.StatusNotFound, "project not found")
		return nil
	}
	if !project.HasUser(userID) {
		h.Error(w, http.StatusForbidden, "not a member of this project")
		return nil
	}
	return project
}

type createProjectRequest struct {
	Name string `json:"name"`
}

// CreateProject creates a project owned by the caller.
// POST /projects/create
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	project, err := h.db.CreateProject(r.Context(), name, owner)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create project")
		h.Error(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	metrics.ProjectsCreated.Inc()
	h.JSON(w, http.StatusCreated, map[string]*models.Project{"project": project})
}

// ListProjects returns every project the caller belongs to.
// GET /projects/all
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	projects, err := h.db.ListProjectsForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list projects")
		h.Error(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	h.JSON(w, http.StatusOK, map[string][]models.Project{"projects": projects})
}

// GetProject returns one project the caller belongs to, with its file
// tree.
// GET /projects/get-project/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project := h.requireProjectMember(w, r, projectID, userID)
	if project == nil {
		return
	}

	h.JSON(w, http.StatusOK, map[string]*models.Project{"project": project})
}

type addUserRequest struct {
	ProjectID string   `json:"projectId"`
	Users     []string `json:"users"`
}

// AddUsers adds collaborators to a project. Only existing members may
// invite.
// PUT /projects/add-user
func (h *Handler) AddUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req addUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if len(req.Users) == 0 {
		h.Error(w, http.StatusBadRequest, "users is required")
		return
	}

	userIDs := make([]uuid.UUID, 0, len(req.Users))
	for _, raw := range req.Users {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "invalid user id: "+raw)
			return
		}
		userIDs = append(userIDs, id)
	}

	if h.requireProjectMember(w, r, projectID, userID) == nil {
		return
	}

	project, err := h.db.AddProjectUsers(r.Context(), projectID, userIDs)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to add project users")
		h.Error(w, http.StatusInternalServerError, "failed to add users")
		return
	}

	h.JSON(w, http.StatusOK, map[string]*models.Project{"project": project})
}

type updateFileTreeRequest struct {
	ProjectID string        `json:"projectId"`
	FileTree  filetree.Tree `json:"fileTree"`
}

// UpdateFileTree replaces the project's stored file tree wholesale with
// the submitted snapshot. Files absent from the snapshot are gone.
// PUT /projects/update-file-tree
func (h *Handler) UpdateFileTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req updateFileTreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if req.FileTree == nil {
		h.Error(w, http.StatusBadRequest, "fileTree is required")
		return
	}

	if h.requireProjectMember(w, r, projectID, userID) == nil {
		return
	}

	if err := h.db.UpdateFileTree(r.Context(), projectID, req.FileTree); err != nil {
		h.logger.Error().Err(err).Msg("failed to update file tree")
		h.Error(w, http.StatusInternalServerError, "failed to update file tree")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil || project == nil {
		h.JSON(w, http.StatusOK, map[string]string{"message": "file tree updated"})
		return
	}

	h.JSON(w, http.StatusOK, map[string]*models.Project{"project": project})
}
