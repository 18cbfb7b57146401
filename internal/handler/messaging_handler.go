package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lifestyle-api/internal/service"
	"lifestyle-api/internal/session"
)

type MessagingHandler struct {
	messaging *service.MessagingService
	logger    *zap.Logger
}

func NewMessagingHandler(messaging *service.MessagingService, logger *zap.Logger) *MessagingHandler {
	return &MessagingHandler{messaging: messaging, logger: logger}
}

func (h *MessagingHandler) RegisterRoutes(router chi.Router) {
	router.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.Conversations)
		r.Get("/{conversationID}/messages", h.Messages)
		r.Post("/{conversationID}/messages", h.Send)
	})
}

func (h *MessagingHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	convs, err := h.messaging.Conversations(r.Context(), sess.User.ID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{"conversations": convs})
}

func (h *MessagingHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	msgs, err := h.messaging.Messages(r.Context(), sess.User.ID, chi.URLParam(r, "conversationID"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *MessagingHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sess := session.FromContext(r.Context())
	msg, err := h.messaging.Send(r.Context(), sess.User, chi.URLParam(r, "conversationID"), req.Body)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, map[string]interface{}{"message": msg})
}
