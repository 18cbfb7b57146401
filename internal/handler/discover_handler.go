package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lifestyle-api/internal/service"
	"lifestyle-api/internal/session"
)

type DiscoverHandler struct {
	discover *service.DiscoverService
	logger   *zap.Logger
}

func NewDiscoverHandler(discover *service.DiscoverService, logger *zap.Logger) *DiscoverHandler {
	return &DiscoverHandler{discover: discover, logger: logger}
}

func (h *DiscoverHandler) RegisterRoutes(router chi.Router) {
	router.Route("/discover", func(r chi.Router) {
		r.Get("/", h.Feed)
		r.Post("/{profileID}/view", h.RecordView)
	})
}

func (h *DiscoverHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, h.logger, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sess := session.FromContext(r.Context())
	page, err := h.discover.Feed(r.Context(), sess.User.ID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, page)
}

func (h *DiscoverHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	err := h.discover.RecordView(r.Context(), sess.User.ID, chi.URLParam(r, "profileID"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
