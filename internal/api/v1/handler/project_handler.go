package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"piktor/internal/api/v1/dto"
	"piktor/internal/middleware"
	"piktor/internal/model"
	"piktor/internal/service"

	"github.com/go-playground/validator/v10"
)

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	projectService service.ProjectService
	validate       *validator.Validate
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService service.ProjectService, validate *validator.Validate) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, validate: validate}
}

// RegisterRoutes mounts project routes
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/projects", authMw(http.HandlerFunc(h.handleProjects)))
	mux.Handle("/projects/", authMw(http.HandlerFunc(h.handleProject)))
}

func (h *ProjectHandler) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createProject(w, r)
	case http.MethodGet:
		h.listProjects(w, r)
	default:
		http.NotFound(w, r)
	}
}

// createProject godoc
// @Summary Create a new project
// @Tags projects
// @Accept json
// @Produce json
// @Param project body dto.ProjectCreateDTO true "Project creation request"
// @Success 201 {object} dto.ProjectResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /projects [post]
func (h *ProjectHandler) createProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.ProjectCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.projectService.Create(r.Context(), userID, req.Name)
	if err != nil {
		http.Error(w, "Failed to create project: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(projectResponse(created))
}

// listProjects godoc
// @Summary List the authenticated user's projects
// @Tags projects
// @Produce json
// @Success 200 {array} dto.ProjectResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /projects [get]
func (h *ProjectHandler) listProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	projects, err := h.projectService.List(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list projects: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.ProjectResponseDTO, 0, len(projects))
	for i := range projects {
		resp = append(resp, projectResponse(&projects[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *ProjectHandler) handleProject(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimPrefix(r.URL.Path, "/projects/")
	if projectID == "" || strings.Contains(projectID, "/") {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req dto.ProjectUpdateDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.projectService.Rename(r.Context(), userID, projectID, req.Name); err != nil {
			writeProjectError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := h.projectService.Delete(r.Context(), userID, projectID); err != nil {
			writeProjectError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound), errors.Is(err, service.ErrNotOwner):
		http.Error(w, "Project not found", http.StatusNotFound)
	default:
		http.Error(w, "Failed to update project: "+err.Error(), http.StatusInternalServerError)
	}
}

func projectResponse(p *model.Project) dto.ProjectResponseDTO {
	return dto.ProjectResponseDTO{
		ProjectID: p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
