package handler

import (
	"net/http"

	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/rs/zerolog"
)

// ReviewHandler handles consumer reviews.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("handler", "review").Logger(),
	}
}

// Create handles POST /api/reviews requests.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req model.ReviewRequest
	if !decode(w, r, &req) {
		return
	}

	review, err := h.service.CreateReview(r.Context(), caller.ID, req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// ListForRestaurant handles GET /api/restaurants/{id}/reviews requests.
func (h *ReviewHandler) ListForRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		badRequest(w, model.ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	reviews, err := h.service.ListRestaurantReviews(r.Context(), restaurantID, page)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ListMine handles GET /api/reviews/mine requests.
func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		badRequest(w, model.ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	reviews, err := h.service.ListConsumerReviews(r.Context(), caller.ID, page)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
