package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lifestyle-api/internal/models"
	"lifestyle-api/internal/service"
	"lifestyle-api/internal/session"
)

type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions *service.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, logger: logger}
}

type verifyResponse struct {
	Success     bool            `json:"success"`
	Platform    models.Platform `json:"platform"`
	ProductID   string          `json:"productId"`
	ExpiresDate string          `json:"expiresDate,omitempty"`
}

// RegisterRoutes mounts routes that all require a session
func (h *SubscriptionHandler) RegisterRoutes(router chi.Router) {
	router.Route("/subscription", func(r chi.Router) {
		r.Post("/verify", h.Verify)
		r.Get("/status", h.Status)
	})
}

// Verify validates an in-app purchase receipt
// @Summary Verify a purchase receipt
// @Tags subscription
// @Accept json
// @Produce json
// @Success 200 {object} verifyResponse
// @Failure 400,401,500,501 {object} errorResponse
// @Router /subscription/verify [post]
func (h *SubscriptionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var receipt models.PurchaseReceipt
	if err := decodeJSON(w, r, &receipt); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, msgMissingFields)
		return
	}

	sess := session.FromContext(r.Context())
	result, err := h.subscriptions.Verify(r.Context(), sess.User.ID, receipt)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, verifyResponse{
		Success:     true,
		Platform:    result.Platform,
		ProductID:   result.ProductID,
		ExpiresDate: result.ExpiresDate,
	})
}

func (h *SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, h.subscriptions.Status(session.FromContext(r.Context())))
}
