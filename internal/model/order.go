package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusNoShow         OrderStatus = "NO_SHOW"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusNoShow:
		return true
	}
	return false
}

// HoldsUnits reports whether an order in this state keeps its units reserved.
func (s OrderStatus) HoldsUnits() bool {
	return s != OrderStatusCancelled && s != OrderStatusNoShow
}

// PaymentStatus is the payment state recorded on an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusApproved PaymentStatus = "APPROVED"
	PaymentStatusRefused  PaymentStatus = "REFUSED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod is how the consumer pays.
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodPix || m == PaymentMethodCreditCard
}

// Order business rules.
const (
	PickupCodeLength    = 10
	CancellationLockout = 2 * time.Hour
	ReviewRequestDelay  = 1 * time.Hour
	ReminderLeadTime    = 30 * time.Minute
)

// PlatformFeeRate is the platform share of each order total.
var PlatformFeeRate = decimal.NewFromFloat(0.15)

// GoodwillCreditRate is credited to consumers whose order is cancelled by the restaurant.
var GoodwillCreditRate = decimal.NewFromFloat(0.10)

// Order is a consumer reservation against an offer.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	ConsumerID       uuid.UUID       `json:"consumerId" db:"consumer_id"`
	OfferID          uuid.UUID       `json:"offerId" db:"offer_id"`
	RestaurantID     uuid.UUID       `json:"restaurantId" db:"restaurant_id"`
	Quantity         int             `json:"quantity" db:"quantity"`
	OriginalPrice    decimal.Decimal `json:"originalPrice" db:"original_price"`
	PromotionalPrice decimal.Decimal `json:"promotionalPrice" db:"promotional_price"`
	TotalAmount      decimal.Decimal `json:"totalAmount" db:"total_amount"`
	PlatformFee      decimal.Decimal `json:"platformFee" db:"platform_fee"`
	RestaurantAmount decimal.Decimal `json:"restaurantAmount" db:"restaurant_amount"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	PaymentID        *string         `json:"paymentId,omitempty" db:"payment_id"`
	PickupCode       string          `json:"pickupCode" db:"pickup_code"`
	QRCodeURL        *string         `json:"qrCodeUrl,omitempty" db:"qr_code_url"`
	Status           OrderStatus     `json:"status" db:"status"`
	PickupTime       *time.Time      `json:"pickupTime,omitempty" db:"pickup_time"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`

	// Pickup window of the offer, loaded with the order.
	PickupStartTime time.Time `json:"pickupStartTime" db:"-"`
	PickupEndTime   time.Time `json:"pickupEndTime" db:"-"`
}

// InPickupWindow reports whether now lies within [start, end].
func (o *Order) InPickupWindow(now time.Time) bool {
	return !now.Before(o.PickupStartTime) && !now.After(o.PickupEndTime)
}

// ReservationRequest is the consumer input for a new order.
type ReservationRequest struct {
	ConsumerID    uuid.UUID     `json:"-"`
	OfferID       uuid.UUID     `json:"offerId" validate:"required"`
	Quantity      int           `json:"quantity" validate:"required,min=1,max=50"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=PIX CREDIT_CARD"`
}

// Reservation is the result of a successful reservation.
type Reservation struct {
	Order   *Order          `json:"order"`
	Payment *PaymentSession `json:"payment,omitempty"`
}

// PaymentSession carries what the consumer needs to complete payment.
type PaymentSession struct {
	PaymentID    string `json:"paymentId"`
	Status       string `json:"status"`
	QRCode       string `json:"qrCode,omitempty"`
	QRCodeBase64 string `json:"qrCodeBase64,omitempty"`
	CheckoutURL  string `json:"checkoutUrl,omitempty"`
}
