package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"piktor/internal/api/v1/dto"
	"piktor/internal/service"
)

// LegalHandler serves the public legal pages.
type LegalHandler struct {
	legalService service.LegalService
}

// NewLegalHandler creates a new LegalHandler
func NewLegalHandler(legalService service.LegalService) *LegalHandler {
	return &LegalHandler{legalService: legalService}
}

// RegisterRoutes mounts the legal routes. These are public.
func (h *LegalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/legal/", http.HandlerFunc(h.getDocument))
}

// getDocument godoc
// @Summary Get a legal page as markdown
// @Tags legal
// @Produce json
// @Param slug path string true "Document slug (terms, privacy, imprint)"
// @Success 200 {object} dto.LegalDocumentResponseDTO
// @Failure 404 {string} string "Document not found"
// @Router /legal/{slug} [get]
func (h *LegalHandler) getDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	slug := strings.TrimPrefix(r.URL.Path, "/legal/")
	content, err := h.legalService.GetDocument(slug)
	if err != nil {
		if errors.Is(err, service.ErrLegalDocNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load document", http.StatusInternalServerError)
		return
	}
	resp := dto.LegalDocumentResponseDTO{Slug: slug, Content: string(content)}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
