package handler

import (
	"net/http"

	"surplus-market/internal/service"

	"github.com/rs/zerolog"
)

// SalesHandler serves restaurant sales reports.
type SalesHandler struct {
	service service.SalesService
	logger  zerolog.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(service service.SalesService, logger zerolog.Logger) *SalesHandler {
	return &SalesHandler{
		service: service,
		logger:  logger.With().Str("handler", "sales").Logger(),
	}
}

// History handles GET /api/restaurants/me/sales requests. startDate and
// endDate are optional YYYY-MM-DD bounds.
func (h *SalesHandler) History(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	history, err := h.service.SalesHistory(r.Context(), caller.ID, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
