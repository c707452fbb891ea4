package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"piktor/internal/api/v1/dto"
	"piktor/internal/middleware"
	"piktor/internal/model"
	"piktor/internal/prompt"
	"piktor/internal/repository"
	"piktor/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// EditHandler handles image edit endpoints
type EditHandler struct {
	editService service.EditService
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewEditHandler creates a new EditHandler
func NewEditHandler(editService service.EditService, validate *validator.Validate, logger zerolog.Logger) *EditHandler {
	return &EditHandler{editService: editService, validate: validate, logger: logger}
}

// RegisterRoutes mounts edit routes
func (h *EditHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/edits", authMw(http.HandlerFunc(h.createEdit)))
	mux.Handle("/images/", authMw(http.HandlerFunc(h.listVersions)))
}

// createEdit godoc
// @Summary Transform an existing generated image
// @Description Runs the requested edit variations. The succeeded subset is
// returned; a batch where every variation failed is an error and nothing is
// charged.
// @Tags edits
// @Accept json
// @Produce json
// @Param edit body dto.EditRequestDTO true "Edit request"
// @Success 200 {object} dto.EditBatchResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 402 {string} string "No active subscription or limit reached"
// @Failure 404 {string} string "Image not found"
// @Failure 502 {string} string "All variations failed"
// @Router /edits [post]
func (h *EditHandler) createEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.EditRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	products := make([]prompt.ProductReference, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, prompt.ProductReference{
			Name:        p.Name,
			Description: p.Description,
		})
	}
	results, err := h.editService.ProcessEdit(r.Context(), userID, service.EditRequest{
		SourceImageID: req.SourceImageID,
		ParentEditID:  req.ParentEditID,
		AssetType:     model.AssetType(req.AssetType),
		AspectRatio:   model.AspectRatio(req.AspectRatio),
		ViewAngle:     model.ViewAngle(req.ViewAngle),
		Lighting:      model.Lighting(req.Lighting),
		Style:         model.VisualStyle(req.Style),
		CustomPrompt:  req.CustomPrompt,
		Direction:     req.Direction,
		Products:      products,
		Variations:    req.Variations,
	})
	if err != nil {
		h.writeEditError(w, err)
		return
	}
	requested := req.Variations
	if requested == 0 {
		if preset, ok := prompt.AssetPreset(model.AssetType(req.AssetType)); ok {
			requested = preset.DefaultVariations
		}
	}
	resp := dto.EditBatchResponseDTO{
		Edits:       make([]dto.EditResponseDTO, 0, len(results)),
		FailedCount: requested - len(results),
	}
	for i := range results {
		resp.Edits = append(resp.Edits, editResponse(&results[i].Edit))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// listVersions godoc
// @Summary List the edit version chain for a source image
// @Tags edits
// @Produce json
// @Param imageId path string true "Source image ID"
// @Success 200 {object} dto.EditVersionsResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Image not found"
// @Router /images/{imageId}/versions [get]
func (h *EditHandler) listVersions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/images/")
	imageID, action, _ := strings.Cut(rest, "/")
	if imageID == "" || action != "versions" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	versions, err := h.editService.ListVersions(r.Context(), userID, imageID)
	if err != nil {
		h.writeEditError(w, err)
		return
	}
	resp := dto.EditVersionsResponseDTO{
		SourceImageID: imageID,
		Versions:      make([]dto.EditResponseDTO, 0, len(versions)),
	}
	for i := range versions {
		resp.Versions = append(resp.Versions, editResponse(&versions[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *EditHandler) writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrVisualNotFound),
		errors.Is(err, service.ErrNotOwner):
		http.Error(w, "Image not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrParentEditNotFound):
		http.Error(w, "Parent edit not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNoActiveSubscription):
		http.Error(w, "No active subscription", http.StatusPaymentRequired)
	case errors.Is(err, repository.ErrEditLimitExceeded):
		http.Error(w, "Edit limit reached for the current billing period", http.StatusPaymentRequired)
	case errors.Is(err, service.ErrAllVariationsFailed):
		http.Error(w, "All variations failed", http.StatusBadGateway)
	default:
		h.logger.Error().Err(err).Msg("edit failed")
		http.Error(w, "Failed to process edit: "+err.Error(), http.StatusBadRequest)
	}
}

func editResponse(e *model.ImageEdit) dto.EditResponseDTO {
	resp := dto.EditResponseDTO{
		EditID:          e.ID,
		VisualID:        e.VisualID,
		SourceImageID:   e.SourceImageID,
		AssetType:       string(e.AssetType),
		VersionNumber:   e.VersionNumber,
		IsLatestVersion: e.IsLatestVersion,
		URL:             e.URL,
		ThumbnailPath:   e.ThumbnailPath,
		Width:           e.Metadata.Width,
		Height:          e.Metadata.Height,
		CreatedAt:       e.CreatedAt,
	}
	if e.ParentEditID != nil {
		resp.ParentEditID = *e.ParentEditID
	}
	return resp
}
