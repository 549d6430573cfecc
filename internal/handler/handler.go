package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"surplus-market/internal/gateway"
	"surplus-market/internal/middleware"
	"surplus-market/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	case model.KindState:
		return http.StatusUnprocessableEntity
	case model.KindAuthorization:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an error response. Domain errors keep their code and
// details. Gateway outages become 503 and anything else a logged 500.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status := statusFor(domainErr.Kind)
		logger.Debug().Err(err).Str("code", domainErr.Code).Int("status", status).Msg("request rejected")
		writeJSON(w, status, model.ErrorResponse{
			Error:   domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		})
		return
	}

	if errors.Is(err, gateway.ErrUnavailable) {
		logger.Warn().Err(err).Msg("payment gateway unavailable")
		writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   model.ErrCodeGatewayUnavailable,
			Message: "payment gateway unavailable, try again later",
		})
		return
	}

	logger.Error().Err(err).Msg("handler error")
	writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
		Error:   model.ErrCodeInternalError,
		Message: "internal server error",
	})
}

// badRequest writes a 400 with the given code and message.
func badRequest(w http.ResponseWriter, code, message string, details map[string]any) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: code, Message: message, Details: details})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, model.ErrCodeInvalidJSON, "invalid request body", nil)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			badRequest(w, model.ErrCodeInvalidRequest, err.Error(), nil)
			return false
		}
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		badRequest(w, model.ErrCodeInvalidRequest, "request validation failed", fields)
		return false
	}
	return true
}

// pathUUID parses a UUID route parameter.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, model.ErrCodeInvalidRequest, fmt.Sprintf("invalid %s", name), nil)
		return uuid.Nil, false
	}
	return id, true
}

// identity returns the authenticated caller. Routes using it are mounted behind
// middleware.Authenticate.
func identity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{
			Error:   model.ErrCodeUnauthorised,
			Message: "authentication required",
		})
	}
	return id, ok
}

// pageFromQuery reads page and limit query parameters.
func pageFromQuery(r *http.Request) (model.Page, error) {
	q := r.URL.Query()
	var page model.Page
	var err error
	if v := q.Get("page"); v != "" {
		if page.Number, err = strconv.Atoi(v); err != nil {
			return page, fmt.Errorf("invalid page: %q", v)
		}
	}
	if v := q.Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			return page, fmt.Errorf("invalid limit: %q", v)
		}
	}
	return page.Normalize(), nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, v)
	}
	return &b, nil
}
