package handler

import (
	"encoding/json"
	"net/http"

	"piktor/internal/api/v1/dto"
	"piktor/internal/service"

	"github.com/rs/zerolog"
)

// DLQHandler receives dead-letter push notifications from Pub/Sub.
type DLQHandler struct {
	service service.DLQService
	logger  zerolog.Logger
}

// NewDLQHandler creates a new DLQHandler
func NewDLQHandler(s service.DLQService, l zerolog.Logger) *DLQHandler {
	return &DLQHandler{service: s, logger: l}
}

// RegisterRoutes mounts the DLQ push endpoint behind the Pub/Sub auth
// middleware, not the user auth middleware.
func (h *DLQHandler) RegisterRoutes(mux *http.ServeMux, pubsubAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/dlq", pubsubAuthMw(http.HandlerFunc(h.recordDLQ)))
}

func (h *DLQHandler) recordDLQ(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid Pub/Sub push payload", http.StatusBadRequest)
		return
	}
	if req.Message.MessageID == "" {
		http.Error(w, "Invalid Pub/Sub message format: missing message ID", http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("messageId", req.Message.MessageID).
		Str("subscription", req.Subscription).
		Msg("Processing dead-letter queue message")

	if err := h.service.ProcessAndSave(r.Context(), &req); err != nil {
		// Still ack so Pub/Sub does not redeliver a message that is already
		// dead. The error is logged for offline analysis.
		h.logger.Error().Err(err).Msg("Failed to save DLQ message to database")
	}
	w.WriteHeader(http.StatusNoContent)
}
