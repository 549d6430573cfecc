package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func TestCORS(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		expectedStatus int
		expectHandler  bool
	}{
		{
			name:           "Preflight request",
			method:         http.MethodOptions,
			expectedStatus: http.StatusNoContent,
			expectHandler:  false,
		},
		{
			name:           "GET request",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectHandler:  true,
		},
		{
			name:           "POST request",
			method:         http.MethodPost,
			expectedStatus: http.StatusOK,
			expectHandler:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			handler := CORS(testHandler)

			req := httptest.NewRequest(tt.method, "/test", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectHandler, handlerCalled)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
		})
	}
}

func TestAuthenticate(t *testing.T) {
	logger := zerolog.Nop()
	caller := model.Identity{ID: uuid.New(), Role: model.RoleConsumer}

	valid, err := IssueToken(testSecret, caller, time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, caller, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	forged, err := IssueToken("other-secret", caller, time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectHandler  bool
	}{
		{name: "Valid token", header: "Bearer " + valid, expectedStatus: http.StatusOK, expectHandler: true},
		{name: "Missing header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "Wrong scheme", header: "Basic " + valid, expectedStatus: http.StatusUnauthorized},
		{name: "Expired token", header: "Bearer " + expired, expectedStatus: http.StatusUnauthorized},
		{name: "Wrong secret", header: "Bearer " + forged, expectedStatus: http.StatusUnauthorized},
		{name: "Garbage token", header: "Bearer not-a-jwt", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.Identity
			handlerCalled := false
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				got, _ = IdentityFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			Authenticate(testSecret, logger)(testHandler).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectHandler, handlerCalled)
			if tt.expectHandler {
				assert.Equal(t, caller, got)
			}
		})
	}
}

func TestParseToken_RejectsUnknownRole(t *testing.T) {
	token, err := IssueToken(testSecret, model.Identity{ID: uuid.New(), Role: "admin"}, time.Hour, time.Now())
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)

	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		identity       *model.Identity
		expectedStatus int
	}{
		{name: "Matching role", identity: &model.Identity{ID: uuid.New(), Role: model.RoleRestaurant}, expectedStatus: http.StatusOK},
		{name: "Other role", identity: &model.Identity{ID: uuid.New(), Role: model.RoleConsumer}, expectedStatus: http.StatusForbidden},
		{name: "Anonymous", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/pickups/redeem", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.identity))
			}
			w := httptest.NewRecorder()

			RequireRole(model.RoleRestaurant)(testHandler).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	logger := zerolog.Nop()

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := Recovery(logger)(testHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestLogging(t *testing.T) {
	logger := zerolog.Nop()

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	handler := Logging(logger)(testHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}
