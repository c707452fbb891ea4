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

// TicketHandler handles support ticket endpoints
type TicketHandler struct {
	ticketService service.TicketService
	validate      *validator.Validate
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketService service.TicketService, validate *validator.Validate) *TicketHandler {
	return &TicketHandler{ticketService: ticketService, validate: validate}
}

// RegisterRoutes mounts ticket routes
func (h *TicketHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/tickets", authMw(http.HandlerFunc(h.handleTickets)))
	mux.Handle("/tickets/", authMw(http.HandlerFunc(h.getTicket)))
}

func (h *TicketHandler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createTicket(w, r)
	case http.MethodGet:
		h.listTickets(w, r)
	default:
		http.NotFound(w, r)
	}
}

// createTicket godoc
// @Summary File a support ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Param ticket body dto.TicketCreateDTO true "Ticket creation request"
// @Success 201 {object} dto.TicketResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /tickets [post]
func (h *TicketHandler) createTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.TicketCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	created, err := h.ticketService.Create(r.Context(), userID, req.Subject, req.Message)
	if err != nil {
		http.Error(w, "Failed to create ticket: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ticketResponse(created))
}

// listTickets godoc
// @Summary List the authenticated user's support tickets
// @Tags tickets
// @Produce json
// @Success 200 {array} dto.TicketResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Router /tickets [get]
func (h *TicketHandler) listTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	tickets, err := h.ticketService.List(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list tickets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.TicketResponseDTO, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, ticketResponse(&tickets[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// getTicket godoc
// @Summary Get a support ticket
// @Tags tickets
// @Produce json
// @Param ticketId path string true "Ticket ID"
// @Success 200 {object} dto.TicketResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Ticket not found"
// @Router /tickets/{ticketId} [get]
func (h *TicketHandler) getTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ticketID := strings.TrimPrefix(r.URL.Path, "/tickets/")
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	ticket, err := h.ticketService.Get(r.Context(), userID, ticketID)
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) || errors.Is(err, service.ErrNotOwner) {
			http.Error(w, "Ticket not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve ticket: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ticketResponse(ticket))
}

func ticketResponse(t *model.SupportTicket) dto.TicketResponseDTO {
	return dto.TicketResponseDTO{
		TicketID:  t.ID,
		Subject:   t.Subject,
		Message:   t.Message,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
