package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"piktor/internal/api/v1/dto"
	"piktor/internal/middleware"
	"piktor/internal/model"
	"piktor/internal/repository"
	"piktor/internal/service"
	"piktor/internal/wizard"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WizardHandler drives the four-step generation wizard. Sessions live in
// memory and expire; the durable record is the visual created on generate.
type WizardHandler struct {
	sessions      *wizard.Store
	generationSvc service.GenerationService
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewWizardHandler creates a new WizardHandler
func NewWizardHandler(sessions *wizard.Store, generationSvc service.GenerationService, validate *validator.Validate, logger zerolog.Logger) *WizardHandler {
	return &WizardHandler{sessions: sessions, generationSvc: generationSvc, validate: validate, logger: logger}
}

// RegisterRoutes mounts wizard routes
func (h *WizardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/wizard/sessions", authMw(http.HandlerFunc(h.createSession)))
	mux.Handle("/wizard/sessions/", authMw(http.HandlerFunc(h.handleSession)))
	mux.Handle("/wizard/generate", authMw(http.HandlerFunc(h.generate)))
}

// createSession godoc
// @Summary Start a new wizard session
// @Tags wizard
// @Accept json
// @Produce json
// @Param session body dto.WizardSessionCreateDTO false "Optional target project"
// @Success 201 {object} dto.WizardSessionResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /wizard/sessions [post]
func (h *WizardHandler) createSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.WizardSessionCreateDTO
	if r.Body != nil {
		// An empty body starts a dashboard-scoped session.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	session := h.sessions.Create(userID, req.ProjectID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sessionResponse(session))
}

func (h *WizardHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/wizard/sessions/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
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
		session, err := h.sessions.Get(userID, sessionID)
		if err != nil {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessionResponse(session))
	case action == "" && r.Method == http.MethodDelete:
		h.sessions.Delete(userID, sessionID)
		w.WriteHeader(http.StatusNoContent)
	case action == "input" && r.Method == http.MethodPut:
		h.setInput(w, r, userID, sessionID)
	case action == "context" && r.Method == http.MethodPut:
		h.setContext(w, r, userID, sessionID)
	case action == "settings" && r.Method == http.MethodPut:
		h.setSettings(w, r, userID, sessionID)
	case action == "advance" && r.Method == http.MethodPost:
		h.step(w, userID, sessionID, func(s *wizard.Session) error { return s.Advance() })
	case action == "back" && r.Method == http.MethodPost:
		h.step(w, userID, sessionID, func(s *wizard.Session) error { return s.Back() })
	case action == "reset" && r.Method == http.MethodPost:
		h.step(w, userID, sessionID, func(s *wizard.Session) error { s.Reset(); return nil })
	default:
		http.NotFound(w, r)
	}
}

// setInput godoc
// @Summary Set product photos and specs for step one
// @Tags wizard
// @Accept json
// @Produce json
// @Param input body dto.WizardInputDTO true "Product input"
// @Success 200 {object} dto.WizardSessionResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 404 {string} string "Session not found"
// @Router /wizard/sessions/{sessionId}/input [put]
func (h *WizardHandler) setInput(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	var req dto.WizardInputDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	images := make([]model.UploadedImage, 0, len(req.Images))
	for _, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			http.Error(w, "Invalid image data: "+img.Filename, http.StatusBadRequest)
			return
		}
		images = append(images, model.UploadedImage{
			ID:          uuid.NewString(),
			Filename:    img.Filename,
			ContentType: img.ContentType,
			Data:        data,
		})
	}
	specs := model.ProductSpecs{
		ProductName:     req.ProductName,
		ProductType:     req.ProductType,
		Materials:       req.Materials,
		AdditionalSpecs: req.AdditionalSpecs,
	}
	if req.Width != nil && req.Height != nil && req.Depth != nil {
		specs.Dimensions = &model.Dimensions{Width: *req.Width, Height: *req.Height, Depth: *req.Depth}
	}
	session, err := h.sessions.Update(userID, sessionID, func(s *wizard.Session) error {
		s.SetInput(model.ProductInput{Images: images, Specs: specs})
		return nil
	})
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse(session))
}

// setContext godoc
// @Summary Pick the scene preset for step two
// @Tags wizard
// @Accept json
// @Produce json
// @Param context body dto.WizardContextDTO true "Scene preset"
// @Success 200 {object} dto.WizardSessionResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 404 {string} string "Session not found"
// @Router /wizard/sessions/{sessionId}/context [put]
func (h *WizardHandler) setContext(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	var req dto.WizardContextDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	session, err := h.sessions.Update(userID, sessionID, func(s *wizard.Session) error {
		s.SetContext(model.ContextPreset(req.ContextPreset))
		return nil
	})
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse(session))
}

// setSettings godoc
// @Summary Set generation settings for steps two and three
// @Tags wizard
// @Accept json
// @Produce json
// @Param settings body dto.WizardSettingsDTO true "Generation settings"
// @Success 200 {object} dto.WizardSessionResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 404 {string} string "Session not found"
// @Router /wizard/sessions/{sessionId}/settings [put]
func (h *WizardHandler) setSettings(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	var req dto.WizardSettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	settings := model.UISettings{
		ContextPreset:    model.ContextPreset(req.ContextPreset),
		BackgroundStyle:  model.BackgroundStyle(req.BackgroundStyle),
		ProductPosition:  model.ProductPosition(req.ProductPosition),
		ReservedTextZone: req.ReservedTextZone,
		Props:            req.Props,
		Lighting:         model.Lighting(req.Lighting),
		StrictMode:       req.StrictMode,
		Quality:          req.Quality,
		Variations:       req.Variations,
	}
	session, err := h.sessions.Update(userID, sessionID, func(s *wizard.Session) error {
		s.SetSettings(settings)
		return nil
	})
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse(session))
}

func (h *WizardHandler) step(w http.ResponseWriter, userID, sessionID string, fn func(*wizard.Session) error) {
	session, err := h.sessions.Update(userID, sessionID, fn)
	if err != nil {
		switch {
		case errors.Is(err, wizard.ErrSessionNotFound):
			http.Error(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, wizard.ErrStepIncomplete):
			http.Error(w, "Current step is incomplete", http.StatusConflict)
		case errors.Is(err, wizard.ErrAtFirstStep), errors.Is(err, wizard.ErrAtLastStep):
			http.Error(w, "No such step", http.StatusConflict)
		default:
			http.Error(w, "Failed to update session: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse(session))
}

// generate godoc
// @Summary Generate visuals from a completed wizard session
// @Description Runs the generation batch. Responds with the succeeded
// variations; a batch where every variation failed is an error and nothing
// is charged.
// @Tags wizard
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequestDTO true "Generate request"
// @Success 200 {object} dto.GenerateResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 402 {string} string "No active subscription or limit reached"
// @Failure 404 {string} string "Session not found"
// @Failure 409 {string} string "Session is not ready to generate"
// @Failure 502 {string} string "All variations failed"
// @Router /wizard/generate [post]
func (h *WizardHandler) generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.GenerateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	session, err := h.sessions.Get(userID, req.SessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if session.Step != wizard.StepGenerate {
		http.Error(w, "Session is not ready to generate", http.StatusConflict)
		return
	}
	name := req.Name
	if name == "" {
		name = session.Config.ProductInput.Specs.ProductName
	}
	result, err := h.generationSvc.Generate(r.Context(), userID, service.GenerationRequest{
		ProjectID:  session.ProjectID,
		Name:       name,
		Specs:      session.Config.ProductInput.Specs,
		Settings:   session.Config.UISettings,
		Images:     session.Config.ProductInput.Images,
		Variations: session.Config.UISettings.Variations,
	})
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}
	// The session has served its purpose once a durable visual exists.
	h.sessions.Delete(userID, req.SessionID)

	images := make([]dto.GeneratedImageDTO, 0, len(result.Images))
	for i := range result.Images {
		images = append(images, imageResponse(&result.Images[i]))
	}
	resp := dto.GenerateResponseDTO{
		Visual:      visualResponse(result.Visual),
		Images:      images,
		FailedCount: result.FailedCount,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *WizardHandler) writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSubscription):
		http.Error(w, "No active subscription", http.StatusPaymentRequired)
	case errors.Is(err, repository.ErrGenerationLimitExceeded):
		http.Error(w, "Generation limit reached for the current billing period", http.StatusPaymentRequired)
	case errors.Is(err, service.ErrAllVariationsFailed):
		http.Error(w, "All variations failed", http.StatusBadGateway)
	default:
		h.logger.Error().Err(err).Msg("generation failed")
		http.Error(w, "Failed to generate: "+err.Error(), http.StatusBadRequest)
	}
}

func sessionResponse(s *wizard.Session) dto.WizardSessionResponseDTO {
	return dto.WizardSessionResponseDTO{
		SessionID:  s.ID,
		ProjectID:  s.ProjectID,
		Step:       int(s.Step),
		StepName:   s.Step.String(),
		ImageCount: len(s.Config.ProductInput.Images),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
