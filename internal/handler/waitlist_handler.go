package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lifestyle-api/internal/service"
)

const (
	msgWaitlistJoined  = "Successfully joined the waitlist!"
	msgWaitlistAlready = "You're already on the waitlist!"
)

type WaitlistHandler struct {
	waitlist *service.WaitlistService
	logger   *zap.Logger
}

func NewWaitlistHandler(waitlist *service.WaitlistService, logger *zap.Logger) *WaitlistHandler {
	return &WaitlistHandler{waitlist: waitlist, logger: logger}
}

func (h *WaitlistHandler) RegisterRoutes(router chi.Router) {
	router.Route("/waitlist", func(r chi.Router) {
		r.Post("/", h.Join)
		r.Get("/count", h.Count)
	})
}

// Join adds an email to the waitlist: 201 when new, 200 when already present
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, msgInvalidEmail)
		return
	}

	created, err := h.waitlist.Join(r.Context(), req.Email, requestMeta(r))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	if created {
		respondWithJSON(w, h.logger, http.StatusCreated, messageResponse{Message: msgWaitlistJoined})
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, messageResponse{Message: msgWaitlistAlready})
}

// Count always answers 200
func (h *WaitlistHandler) Count(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]int64{"count": h.waitlist.Count(r.Context())})
}
