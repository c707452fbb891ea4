package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"piktor/internal/api/v1/dto"
	"piktor/internal/middleware"
	"piktor/internal/model"
	"piktor/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// VisualHandler handles gallery and dashboard endpoints
type VisualHandler struct {
	visualService service.VisualService
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewVisualHandler creates a new VisualHandler
func NewVisualHandler(visualService service.VisualService, validate *validator.Validate, logger zerolog.Logger) *VisualHandler {
	return &VisualHandler{visualService: visualService, validate: validate, logger: logger}
}

// RegisterRoutes mounts visual routes
func (h *VisualHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/visuals", authMw(http.HandlerFunc(h.listVisuals)))
	mux.Handle("/visuals/", authMw(http.HandlerFunc(h.handleVisual)))
	mux.Handle("/dashboard/stats", authMw(http.HandlerFunc(h.getDashboardStats)))
}

// listVisuals godoc
// @Summary List the authenticated user's visuals
// @Description Lists visuals newest first. project_id filters to one project;
// "dashboard" selects visuals outside any project; empty returns all.
// @Tags visuals
// @Produce json
// @Param project_id query string false "Project filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.VisualListResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /visuals [get]
func (h *VisualHandler) listVisuals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	visuals, err := h.visualService.ListVisuals(r.Context(), userID, q.Get("project_id"), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list visuals: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := dto.VisualListResponseDTO{
		Visuals: make([]dto.VisualResponseDTO, 0, len(visuals)),
		Limit:   limit,
		Offset:  offset,
	}
	for i := range visuals {
		resp.Visuals = append(resp.Visuals, visualResponse(&visuals[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *VisualHandler) handleVisual(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/visuals/")
	visualID, action, _ := strings.Cut(rest, "/")
	if visualID == "" {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getVisual(w, r, userID, visualID)
	case action == "" && r.Method == http.MethodPut:
		h.renameVisual(w, r, userID, visualID)
	case action == "" && r.Method == http.MethodDelete:
		h.deleteVisual(w, r, userID, visualID)
	case action == "download" && r.Method == http.MethodGet:
		h.download(w, r, userID, visualID)
	default:
		http.NotFound(w, r)
	}
}

// getVisual godoc
// @Summary Get a visual with its variations and edit history
// @Tags visuals
// @Produce json
// @Param visualId path string true "Visual ID"
// @Success 200 {object} dto.VisualDetailResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Visual not found"
// @Router /visuals/{visualId} [get]
func (h *VisualHandler) getVisual(w http.ResponseWriter, r *http.Request, userID, visualID string) {
	detail, err := h.visualService.GetVisual(r.Context(), userID, visualID)
	if err != nil {
		writeVisualError(w, err)
		return
	}
	h.visualService.RecordView(r.Context(), visualID)

	resp := dto.VisualDetailResponseDTO{
		Visual: visualResponse(&detail.Visual),
		Images: make([]dto.GeneratedImageDTO, 0, len(detail.Images)),
		Edits:  make([]dto.EditResponseDTO, 0, len(detail.Edits)),
	}
	for i := range detail.Images {
		resp.Images = append(resp.Images, imageResponse(&detail.Images[i]))
	}
	for i := range detail.Edits {
		resp.Edits = append(resp.Edits, editResponse(&detail.Edits[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// renameVisual godoc
// @Summary Rename a visual
// @Tags visuals
// @Accept json
// @Param visualId path string true "Visual ID"
// @Param visual body dto.VisualUpdateDTO true "Rename request"
// @Success 204 {string} string "No Content"
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 404 {string} string "Visual not found"
// @Router /visuals/{visualId} [put]
func (h *VisualHandler) renameVisual(w http.ResponseWriter, r *http.Request, userID, visualID string) {
	var req dto.VisualUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.visualService.RenameVisual(r.Context(), userID, visualID, req.Name); err != nil {
		writeVisualError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteVisual godoc
// @Summary Delete a visual and its stored images
// @Tags visuals
// @Param visualId path string true "Visual ID"
// @Success 204 {string} string "No Content"
// @Failure 404 {string} string "Visual not found"
// @Router /visuals/{visualId} [delete]
func (h *VisualHandler) deleteVisual(w http.ResponseWriter, r *http.Request, userID, visualID string) {
	if err := h.visualService.DeleteVisual(r.Context(), userID, visualID); err != nil {
		writeVisualError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// download godoc
// @Summary Get a short-lived signed download URL for one stored image
// @Tags visuals
// @Produce json
// @Param visualId path string true "Visual ID"
// @Param path query string true "Storage path of the image"
// @Success 200 {object} dto.DownloadResponseDTO
// @Failure 400 {string} string "Missing path"
// @Failure 404 {string} string "Visual not found"
// @Router /visuals/{visualId}/download [get]
func (h *VisualHandler) download(w http.ResponseWriter, r *http.Request, userID, visualID string) {
	storagePath := r.URL.Query().Get("path")
	if storagePath == "" {
		http.Error(w, "Missing path query parameter", http.StatusBadRequest)
		return
	}
	url, err := h.visualService.GetDownloadURL(r.Context(), userID, visualID, storagePath)
	if err != nil {
		writeVisualError(w, err)
		return
	}
	resp := dto.DownloadResponseDTO{
		URL:       url,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// getDashboardStats godoc
// @Summary Get aggregate dashboard stats
// @Tags visuals
// @Produce json
// @Success 200 {object} dto.DashboardStatsResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /dashboard/stats [get]
func (h *VisualHandler) getDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	stats, err := h.visualService.GetDashboardStats(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve stats: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := dto.DashboardStatsResponseDTO{
		TotalVisuals:   stats.TotalVisuals,
		TotalEdits:     stats.TotalEdits,
		TotalViews:     stats.TotalViews,
		TotalDownloads: stats.TotalDownloads,
		StorageBytes:   stats.StorageBytes,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeVisualError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrVisualNotFound), errors.Is(err, service.ErrNotOwner):
		http.Error(w, "Visual not found", http.StatusNotFound)
	default:
		http.Error(w, "Failed to process visual: "+err.Error(), http.StatusInternalServerError)
	}
}

func visualResponse(v *model.Visual) dto.VisualResponseDTO {
	resp := dto.VisualResponseDTO{
		VisualID:  v.ID,
		Name:      v.Name,
		Specs:     v.Specs,
		Settings:  v.Settings,
		Metadata:  v.Metadata,
		Views:     v.Views,
		Downloads: v.Downloads,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
	if v.ProjectID != nil {
		resp.ProjectID = *v.ProjectID
	}
	return resp
}

func imageResponse(img *model.GeneratedImage) dto.GeneratedImageDTO {
	return dto.GeneratedImageDTO{
		ImageID:       img.ID,
		VisualID:      img.VisualID,
		URL:           img.URL,
		ThumbnailPath: img.ThumbnailPath,
		Width:         img.Metadata.Width,
		Height:        img.Metadata.Height,
		Variation:     img.Metadata.Variation,
		CreatedAt:     img.CreatedAt,
	}
}
