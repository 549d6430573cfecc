package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OfferHandler handles offer publication and discovery requests.
type OfferHandler struct {
	offers    service.OfferService
	discovery service.DiscoveryService
	logger    zerolog.Logger
}

// NewOfferHandler creates a new offer handler.
func NewOfferHandler(offers service.OfferService, discovery service.DiscoveryService, logger zerolog.Logger) *OfferHandler {
	return &OfferHandler{
		offers:    offers,
		discovery: discovery,
		logger:    logger.With().Str("handler", "offer").Logger(),
	}
}

// Create handles POST /api/offers requests.
func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var spec model.OfferSpec
	if !decode(w, r, &spec) {
		return
	}

	offer, err := h.offers.CreateOffer(r.Context(), caller.ID, spec)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

// GetByID handles GET /api/offers/{id} requests.
func (h *OfferHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.offers.GetOffer(r.Context(), id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// Cancel handles POST /api/offers/{id}/cancel requests.
func (h *OfferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.offers.CancelOffer(r.Context(), caller.ID, id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// Search handles GET /api/offers requests.
//
// Query parameters: lat, lng, radiusKm, minPrice, maxPrice, vegetarian, vegan,
// page, limit. lat and lng must be given together.
func (h *OfferHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOfferFilter(r)
	if err != nil {
		badRequest(w, model.ErrCodeInvalidRequest, err.Error(), nil)
		return
	}

	result, err := h.discovery.Search(r.Context(), filter)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseOfferFilter(r *http.Request) (model.OfferFilter, error) {
	q := r.URL.Query()
	var filter model.OfferFilter
	var err error

	if filter.Page, err = pageFromQuery(r); err != nil {
		return filter, err
	}
	if filter.IsVegetarian, err = queryBool(r, "vegetarian"); err != nil {
		return filter, err
	}
	if filter.IsVegan, err = queryBool(r, "vegan"); err != nil {
		return filter, err
	}

	if filter.MinPrice, err = queryDecimal(r, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(r, "maxPrice"); err != nil {
		return filter, err
	}

	lat, lng := q.Get("lat"), q.Get("lng")
	if (lat == "") != (lng == "") {
		return filter, errors.New("lat and lng must be given together")
	}
	if lat != "" {
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil || la < -90 || la > 90 {
			return filter, errors.New("invalid lat")
		}
		lo, err := strconv.ParseFloat(lng, 64)
		if err != nil || lo < -180 || lo > 180 {
			return filter, errors.New("invalid lng")
		}
		filter.Location = &model.Location{Latitude: la, Longitude: lo}
	}

	if v := q.Get("radiusKm"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			return filter, errors.New("invalid radiusKm")
		}
		filter.RadiusKm = radius
	}
	return filter, nil
}

// queryDecimal parses an optional non-negative decimal query parameter.
func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("invalid %s: %q", name, v)
	}
	return &d, nil
}
