package handler

import (
	"net/http"

	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/rs/zerolog"
)

// ProfileHandler serves the caller's own account profile.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("handler", "profile").Logger(),
	}
}

// Consumer handles GET /api/consumers/me requests.
func (h *ProfileHandler) Consumer(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	consumer, err := h.service.ConsumerProfile(r.Context(), caller.ID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, consumer)
}

// UpdateConsumer handles PATCH /api/consumers/me requests.
func (h *ProfileHandler) UpdateConsumer(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req model.ConsumerProfileUpdate
	if !decode(w, r, &req) {
		return
	}

	consumer, err := h.service.UpdateConsumerProfile(r.Context(), caller.ID, req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, consumer)
}

// Restaurant handles GET /api/restaurants/me requests.
func (h *ProfileHandler) Restaurant(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	restaurant, err := h.service.RestaurantProfile(r.Context(), caller.ID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}

// UpdateRestaurant handles PATCH /api/restaurants/me requests.
func (h *ProfileHandler) UpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req model.RestaurantProfileUpdate
	if !decode(w, r, &req) {
		return
	}

	restaurant, err := h.service.UpdateRestaurantProfile(r.Context(), caller.ID, req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}
