package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"surplus-market/internal/gateway"
	"surplus-market/internal/middleware"
	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func bearer(t *testing.T, id uuid.UUID, role model.Role) string {
	t.Helper()
	token, err := middleware.IssueToken(testJWTSecret, model.Identity{ID: id, Role: role}, time.Hour, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func call(t *testing.T, server http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func deliverWebhook(t *testing.T, server http.Handler, paymentID string) *httptest.ResponseRecorder {
	t.Helper()

	body := fmt.Sprintf(`{"type":"payment","action":"payment.updated","data":{"id":%q}}`, paymentID)
	requestID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("X-Signature", gateway.Sign(testWebhookSecret, paymentID, requestID, fmt.Sprint(time.Now().Unix())))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestMarketplaceFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	fake, gw := newFakeMercadoPago(t)
	server := NewStack(t, testDB, gw.URL, clockwork.NewRealClock()).Router()

	CleanupDB(t, testDB.Pool)
	now := time.Now().UTC()
	rest := SeedRestaurant(t, testDB.Pool, "Padaria Central", -23.5614, -46.6559)
	consumer := SeedConsumer(t, testDB.Pool, "Carla Dias")
	offer := SeedOffer(t, testDB.Pool, rest.ID, OfferSeed{
		Quantity: 4,
		Price:    "12.00",
		Original: "30.00",
		Start:    now.Add(-10 * time.Minute),
		End:      now.Add(2 * time.Hour),
	})

	consumerAuth := bearer(t, consumer.ID, model.RoleConsumer)
	restaurantAuth := bearer(t, rest.ID, model.RoleRestaurant)

	var reservation model.Reservation

	t.Run("reserve returns a pending order with a PIX session", func(t *testing.T) {
		w := call(t, server, http.MethodPost, "/api/orders", consumerAuth, map[string]any{
			"offerId":       offer.ID,
			"quantity":      2,
			"paymentMethod": "PIX",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.NoError(t, json.NewDecoder(w.Body).Decode(&reservation))

		assert.Equal(t, model.OrderStatusPendingPayment, reservation.Order.Status)
		assert.Equal(t, "24.00", reservation.Order.TotalAmount.StringFixed(2))
		assert.Equal(t, "3.60", reservation.Order.PlatformFee.StringFixed(2))
		assert.Equal(t, "20.40", reservation.Order.RestaurantAmount.StringFixed(2))
		assert.Len(t, reservation.Order.PickupCode, model.PickupCodeLength)
		require.NotNil(t, reservation.Payment)
		assert.NotEmpty(t, reservation.Payment.QRCode)
		require.NotNil(t, reservation.Order.QRCodeURL)

		artifact := call(t, server, http.MethodGet, *reservation.Order.QRCodeURL, "", nil)
		assert.Equal(t, http.StatusOK, artifact.Code)
	})

	t.Run("unsigned webhook is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/mercadopago",
			strings.NewReader(`{"type":"payment","data":{"id":"1"}}`))
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("approved webhook confirms the order once", func(t *testing.T) {
		fake.setStatus(reservation.Payment.PaymentID, "approved")

		for i := 0; i < 2; i++ {
			w := deliverWebhook(t, server, reservation.Payment.PaymentID)
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"received":true}`, w.Body.String())
		}

		w := call(t, server, http.MethodGet, "/api/orders/"+reservation.Order.ID.String(), consumerAuth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "CONFIRMED", gjson.Get(w.Body.String(), "status").String())
		assert.Equal(t, "APPROVED", gjson.Get(w.Body.String(), "paymentStatus").String())

		var transactions int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(),
			`SELECT COUNT(*) FROM transactions WHERE order_id = $1`, reservation.Order.ID).Scan(&transactions))
		assert.Equal(t, 1, transactions)
	})

	t.Run("consumer cannot cancel inside the lockout", func(t *testing.T) {
		w := call(t, server, http.MethodPost, "/api/orders/"+reservation.Order.ID.String()+"/cancel", consumerAuth, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("another restaurant cannot see the code", func(t *testing.T) {
		other := bearer(t, uuid.New(), model.RoleRestaurant)
		w := call(t, server, http.MethodPost, "/api/pickups/validate", other, map[string]string{"code": reservation.Order.PickupCode})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("redeem completes the order and is idempotent", func(t *testing.T) {
		code := strings.ToLower(reservation.Order.PickupCode)
		w := call(t, server, http.MethodPost, "/api/pickups/validate", restaurantAuth, map[string]string{"code": code})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		for i := 0; i < 2; i++ {
			w = call(t, server, http.MethodPost, "/api/pickups/redeem", restaurantAuth, map[string]string{"code": code})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "COMPLETED", gjson.Get(w.Body.String(), "status").String())
		}

		var status string
		require.NoError(t, testDB.Pool.QueryRow(context.Background(),
			`SELECT status FROM transactions WHERE order_id = $1`, reservation.Order.ID).Scan(&status))
		assert.Equal(t, "processed", status)
	})

	t.Run("review updates the restaurant rating", func(t *testing.T) {
		w := call(t, server, http.MethodPost, "/api/reviews", consumerAuth, map[string]any{
			"orderId": reservation.Order.ID,
			"rating":  4,
			"comment": "Pão fresquinho",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = call(t, server, http.MethodPost, "/api/reviews", consumerAuth, map[string]any{
			"orderId": reservation.Order.ID,
			"rating":  5,
		})
		assert.Equal(t, http.StatusConflict, w.Code)

		var total int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(),
			`SELECT total_ratings FROM restaurants WHERE id = $1`, rest.ID).Scan(&total))
		assert.Equal(t, 1, total)
	})

	t.Run("refused payment releases units", func(t *testing.T) {
		w := call(t, server, http.MethodPost, "/api/orders", consumerAuth, map[string]any{
			"offerId":       offer.ID,
			"quantity":      2,
			"paymentMethod": "PIX",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		paymentID := gjson.Get(w.Body.String(), "payment.paymentId").String()
		orderID := gjson.Get(w.Body.String(), "order.id").String()

		w = call(t, server, http.MethodGet, "/api/offers/"+offer.ID.String(), "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 0, gjson.Get(w.Body.String(), "availableQuantity").Int())
		assert.Equal(t, "SOLD_OUT", gjson.Get(w.Body.String(), "status").String())

		fake.setStatus(paymentID, "rejected")
		require.Equal(t, http.StatusOK, deliverWebhook(t, server, paymentID).Code)

		w = call(t, server, http.MethodGet, "/api/orders/"+orderID, consumerAuth, nil)
		assert.Equal(t, "CANCELLED", gjson.Get(w.Body.String(), "status").String())
		assert.Equal(t, "REFUSED", gjson.Get(w.Body.String(), "paymentStatus").String())

		w = call(t, server, http.MethodGet, "/api/offers/"+offer.ID.String(), "", nil)
		assert.EqualValues(t, 2, gjson.Get(w.Body.String(), "availableQuantity").Int())
		assert.Equal(t, "ACTIVE", gjson.Get(w.Body.String(), "status").String())
	})

	t.Run("notifications are listed and acknowledged", func(t *testing.T) {
		w := call(t, server, http.MethodGet, "/api/notifications?unread=true", consumerAuth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.GreaterOrEqual(t, gjson.Get(w.Body.String(), "unreadCount").Int(), int64(2))

		w = call(t, server, http.MethodPost, "/api/notifications/read-all", consumerAuth, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = call(t, server, http.MethodGet, "/api/notifications", consumerAuth, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, gjson.Get(w.Body.String(), "unreadCount").Int())
	})

	t.Run("blocked consumers cannot reserve", func(t *testing.T) {
		_, err := testDB.Pool.Exec(context.Background(),
			`UPDATE consumers SET failed_pickups = 3, blocked_until = $2 WHERE id = $1`,
			consumer.ID, now.Add(model.BlockDuration))
		require.NoError(t, err)

		w := call(t, server, http.MethodPost, "/api/orders", consumerAuth, map[string]any{
			"offerId":       offer.ID,
			"quantity":      1,
			"paymentMethod": "PIX",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.True(t, gjson.Get(w.Body.String(), "details.blockedUntil").Exists())
	})
}
