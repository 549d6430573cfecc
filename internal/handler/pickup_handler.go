package handler

import (
	"context"
	"net/http"

	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PickupRequest carries a pickup code typed or scanned at the counter.
type PickupRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// PickupHandler handles pickup verification by restaurants.
type PickupHandler struct {
	service service.PickupService
	logger  zerolog.Logger
}

// NewPickupHandler creates a new pickup handler.
func NewPickupHandler(service service.PickupService, logger zerolog.Logger) *PickupHandler {
	return &PickupHandler{
		service: service,
		logger:  logger.With().Str("handler", "pickup").Logger(),
	}
}

// Validate handles POST /api/pickups/validate requests.
func (h *PickupHandler) Validate(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Validate)
}

// Redeem handles POST /api/pickups/redeem requests.
func (h *PickupHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Redeem)
}

func (h *PickupHandler) handle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, restaurantID uuid.UUID, code string) (*model.Order, error)) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req PickupRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := op(r.Context(), caller.ID, req.Code)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
