package handler

import (
	"net/http"

	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/rs/zerolog"
)

const orderStatusRule = "oneof=PENDING_PAYMENT CONFIRMED READY_FOR_PICKUP COMPLETED CANCELLED NO_SHOW"

// OrderHandler handles consumer order requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req model.ReservationRequest
	if !decode(w, r, &req) {
		return
	}
	req.ConsumerID = caller.ID

	reservation, err := h.service.CreateReservation(r.Context(), req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		badRequest(w, model.ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	var status *model.OrderStatus
	if v := r.URL.Query().Get("status"); v != "" {
		if err := validate.Var(v, orderStatusRule); err != nil {
			badRequest(w, model.ErrCodeInvalidRequest, "invalid status", nil)
			return
		}
		s := model.OrderStatus(v)
		status = &s
	}

	result, err := h.service.ListConsumerOrders(r.Context(), caller.ID, status, page)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), caller.ID, id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.CancelByConsumer(r.Context(), caller.ID, id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
