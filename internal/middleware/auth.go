package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"surplus-market/internal/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type identityKey struct{}

// Claims are the JWT claims identifying a consumer or restaurant.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for id valid for ttl from now.
func IssueToken(secret string, id model.Identity, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a signed token and returns the identity it carries.
func ParseToken(secret, token string) (model.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Identity{}, err
	}
	if !parsed.Valid {
		return model.Identity{}, errors.New("token is not valid")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Identity{}, fmt.Errorf("invalid subject: %w", err)
	}
	switch claims.Role {
	case model.RoleConsumer, model.RoleRestaurant:
	default:
		return model.Identity{}, fmt.Errorf("invalid role: %q", claims.Role)
	}
	return model.Identity{ID: id, Role: claims.Role}, nil
}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity set by Authenticate.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok
}

// Authenticate validates the bearer token and stores the caller identity.
func Authenticate(secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing bearer token")
				deny(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing bearer token")
				return
			}

			id, err := ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid bearer token")
				deny(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers whose identity does not have role.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required")
				return
			}
			if id.Role != role {
				deny(w, http.StatusForbidden, model.ErrCodeForbidden, fmt.Sprintf("%s access required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: code, Message: message})
}
