package handler

import (
	"encoding/json"
	"net/http"

	"piktor/internal/api/v1/dto"
	"piktor/internal/middleware"
	"piktor/internal/service"

	"github.com/rs/zerolog"
)

// SubscriptionHandler handles subscription-related endpoints.
type SubscriptionHandler struct {
	stripeSvc *service.StripeService
	subSvc    service.SubscriptionService
	logger    zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(stripeSvc *service.StripeService, subSvc service.SubscriptionService, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{stripeSvc: stripeSvc, subSvc: subSvc, logger: logger}
}

// RegisterRoutes registers the subscription endpoints. The webhook endpoint
// is verified by Stripe signature, not by the auth middleware.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions/checkout", authMiddleware(http.HandlerFunc(h.Checkout)))
	mux.Handle("/subscriptions/portal", authMiddleware(http.HandlerFunc(h.Portal)))
	mux.Handle("/subscriptions/me", authMiddleware(http.HandlerFunc(h.GetSubscription)))
	mux.Handle("/subscriptions/invoices", authMiddleware(http.HandlerFunc(h.ListInvoices)))
	mux.Handle("/webhooks/stripe", http.HandlerFunc(h.Webhook))
}

// Checkout godoc
// @Summary Initiate a Stripe Checkout session for plan upgrade
// @Description Creates a Stripe Checkout session and returns its URL.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.SubscriptionCheckoutRequest true "Subscription checkout request"
// @Success 200 {object} map[string]string "URL of the Stripe Checkout session"
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to create checkout session"
// @Router /subscriptions/checkout [post]
func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req dto.SubscriptionCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	url, err := h.stripeSvc.CreateCheckoutSession(r.Context(), userID, req.Plan)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create checkout session")
		http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"url": url}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}

// Portal godoc
// @Summary Create a Stripe Customer Portal session
// @Description Generates a Stripe Customer Portal session URL for the authenticated user.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} map[string]string "URL of the Customer Portal session"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to create portal session"
// @Router /subscriptions/portal [get]
func (h *SubscriptionHandler) Portal(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	url, err := h.stripeSvc.CreatePortalSession(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create portal session")
		http.Error(w, "failed to create portal session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"url": url}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}

// GetSubscription godoc
// @Summary Get the current subscription state
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "no subscription"
// @Router /subscriptions/me [get]
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sub, err := h.subSvc.GetSubscription(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to retrieve subscription", http.StatusInternalServerError)
		return
	}
	if sub == nil {
		http.Error(w, "no subscription", http.StatusNotFound)
		return
	}
	resp := dto.SubscriptionResponseDTO{
		PlanID:   sub.PlanID,
		Status:   sub.Status,
		StartsAt: sub.StartsAt,
		EndsAt:   sub.EndsAt,
	}
	if plan, err := h.subSvc.GetPlan(r.Context(), sub.PlanID); err == nil && plan != nil {
		resp.PlanName = plan.Name
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListInvoices godoc
// @Summary List billing history
// @Tags subscriptions
// @Produce json
// @Success 200 {array} dto.InvoiceResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /subscriptions/invoices [get]
func (h *SubscriptionHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	invoices, err := h.subSvc.ListInvoices(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list invoices", http.StatusInternalServerError)
		return
	}
	resp := make([]dto.InvoiceResponseDTO, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, dto.InvoiceResponseDTO{
			InvoiceID:   inv.ID,
			AmountCents: inv.AmountCents,
			Currency:    inv.Currency,
			Status:      inv.Status,
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
			CreatedAt:   inv.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Webhook godoc
// @Summary Handle Stripe webhook events
// @Description Verifies the Stripe signature and applies the subscription
// state change.
// @Tags subscriptions
// @Accept json
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "invalid payload or signature"
// @Router /webhooks/stripe [post]
func (h *SubscriptionHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.stripeSvc.HandleWebhook(w, r)
}
