package model

import (
	"fmt"
	"time"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorKind classifies domain errors so callers can react without string matching.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindConflict      ErrorKind = "conflict"
	KindState         ErrorKind = "state"
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindUnavailable   ErrorKind = "unavailable"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON              = "INVALID_JSON"
	ErrCodeInvalidRequest           = "INVALID_REQUEST"
	ErrCodeUnauthorised             = "UNAUTHORIZED"
	ErrCodeForbidden                = "FORBIDDEN"
	ErrCodeInternalError            = "INTERNAL_ERROR"
	ErrCodeDiscountTooLow           = "DISCOUNT_TOO_LOW"
	ErrCodeInvalidPickupWindow      = "INVALID_PICKUP_WINDOW"
	ErrCodeInvalidQuantity          = "INVALID_QUANTITY"
	ErrCodeInvalidPrice             = "INVALID_PRICE"
	ErrCodeInvalidPaymentMethod     = "INVALID_PAYMENT_METHOD"
	ErrCodeRestaurantNotApproved    = "RESTAURANT_NOT_APPROVED"
	ErrCodeRestaurantNotFound       = "RESTAURANT_NOT_FOUND"
	ErrCodeConsumerNotFound         = "CONSUMER_NOT_FOUND"
	ErrCodeBlockedConsumer          = "BLOCKED_CONSUMER"
	ErrCodeOfferNotFound            = "OFFER_NOT_FOUND"
	ErrCodeOfferUnavailable         = "OFFER_UNAVAILABLE"
	ErrCodeOfferExpired             = "OFFER_EXPIRED"
	ErrCodeInsufficientQuantity     = "INSUFFICIENT_QUANTITY"
	ErrCodeNotOfferOwner            = "NOT_OFFER_OWNER"
	ErrCodeOrderNotFound            = "ORDER_NOT_FOUND"
	ErrCodeNotOrderOwner            = "NOT_ORDER_OWNER"
	ErrCodeInvalidOrderState        = "INVALID_ORDER_STATE"
	ErrCodeCancellationWindowClosed = "CANCELLATION_WINDOW_CLOSED"
	ErrCodeInvalidPickupCode        = "INVALID_PICKUP_CODE"
	ErrCodeNotReadyForPickup        = "NOT_READY_FOR_PICKUP"
	ErrCodeOutsidePickupWindow      = "OUTSIDE_PICKUP_WINDOW"
	ErrCodePickupCodeExhausted      = "PICKUP_CODE_EXHAUSTED"
	ErrCodeInvalidRating            = "INVALID_RATING"
	ErrCodeAlreadyReviewed          = "ALREADY_REVIEWED"
	ErrCodeNotificationNotFound     = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidLocation          = "INVALID_LOCATION"
	ErrCodeInvalidDateRange         = "INVALID_DATE_RANGE"
	ErrCodeGatewayUnavailable       = "GATEWAY_UNAVAILABLE"
)

// DomainError is a business-rule failure surfaced to the caller.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that errors carrying details still
// compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrDiscountTooLow           = NewDomainError(KindValidation, ErrCodeDiscountTooLow, "Promotional price must be at least 30% below the original price")
	ErrInvalidPickupWindow      = NewDomainError(KindValidation, ErrCodeInvalidPickupWindow, "Pickup window must last between 1 and 3 hours")
	ErrInvalidQuantity          = NewDomainError(KindValidation, ErrCodeInvalidQuantity, "Quantity is out of the allowed range")
	ErrInvalidPrice             = NewDomainError(KindValidation, ErrCodeInvalidPrice, "Prices must be greater than zero")
	ErrInvalidPaymentMethod     = NewDomainError(KindValidation, ErrCodeInvalidPaymentMethod, "Payment method must be PIX or CREDIT_CARD")
	ErrInvalidRating            = NewDomainError(KindValidation, ErrCodeInvalidRating, "Rating must be between 1 and 5")
	ErrRestaurantNotApproved    = NewDomainError(KindAuthorization, ErrCodeRestaurantNotApproved, "Restaurant is not approved to publish offers")
	ErrRestaurantNotFound       = NewDomainError(KindNotFound, ErrCodeRestaurantNotFound, "Restaurant not found")
	ErrConsumerNotFound         = NewDomainError(KindNotFound, ErrCodeConsumerNotFound, "Consumer not found")
	ErrBlockedConsumer          = NewDomainError(KindAuthorization, ErrCodeBlockedConsumer, "Consumer is temporarily blocked")
	ErrOfferNotFound            = NewDomainError(KindNotFound, ErrCodeOfferNotFound, "Offer not found")
	ErrOfferUnavailable         = NewDomainError(KindConflict, ErrCodeOfferUnavailable, "Offer is not available")
	ErrOfferExpired             = NewDomainError(KindConflict, ErrCodeOfferExpired, "Offer pickup window has passed")
	ErrInsufficientQuantity     = NewDomainError(KindConflict, ErrCodeInsufficientQuantity, "Not enough units left in this offer")
	ErrNotOfferOwner            = NewDomainError(KindAuthorization, ErrCodeNotOfferOwner, "Offer belongs to another restaurant")
	ErrOrderNotFound            = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrNotOrderOwner            = NewDomainError(KindAuthorization, ErrCodeNotOrderOwner, "Order belongs to another consumer")
	ErrInvalidOrderState        = NewDomainError(KindState, ErrCodeInvalidOrderState, "Operation is not allowed in the current order state")
	ErrCancellationWindowClosed = NewDomainError(KindState, ErrCodeCancellationWindowClosed, "Orders can only be cancelled up to 2 hours before pickup")
	ErrInvalidPickupCode        = NewDomainError(KindNotFound, ErrCodeInvalidPickupCode, "Pickup code is invalid")
	ErrNotReadyForPickup        = NewDomainError(KindState, ErrCodeNotReadyForPickup, "Order is not ready for pickup")
	ErrOutsidePickupWindow      = NewDomainError(KindState, ErrCodeOutsidePickupWindow, "Outside the pickup window")
	ErrPickupCodeExhausted      = NewDomainError(KindConflict, ErrCodePickupCodeExhausted, "Could not allocate a unique pickup code")
	ErrAlreadyReviewed          = NewDomainError(KindConflict, ErrCodeAlreadyReviewed, "Order has already been reviewed")
	ErrNotificationNotFound     = NewDomainError(KindNotFound, ErrCodeNotificationNotFound, "Notification not found")
	ErrInvalidLocation          = NewDomainError(KindValidation, ErrCodeInvalidLocation, "Latitude and longitude must be updated together")
	ErrInvalidDateRange         = NewDomainError(KindValidation, ErrCodeInvalidDateRange, "Start date must not be after end date")
)

func withDetails(base *DomainError, message string, details map[string]any) *DomainError {
	return &DomainError{
		Kind:    base.Kind,
		Code:    base.Code,
		Message: message,
		Details: details,
	}
}

// NewBlockedConsumerError reports when the block on a consumer expires.
func NewBlockedConsumerError(until time.Time) *DomainError {
	return withDetails(ErrBlockedConsumer,
		fmt.Sprintf("Consumer is blocked until %s", until.Format(time.RFC3339)),
		map[string]any{"blockedUntil": until},
	)
}

// NewOutsidePickupWindowError reports the window the caller missed.
func NewOutsidePickupWindowError(start, end time.Time) *DomainError {
	return withDetails(ErrOutsidePickupWindow,
		fmt.Sprintf("Pickup is only possible between %s and %s", start.Format(time.RFC3339), end.Format(time.RFC3339)),
		map[string]any{"pickupStartTime": start, "pickupEndTime": end},
	)
}

// NewInvalidOrderStateError reports the state that prevented op.
func NewInvalidOrderStateError(op string, current OrderStatus) *DomainError {
	return withDetails(ErrInvalidOrderState,
		fmt.Sprintf("Cannot %s an order in state %s", op, current),
		map[string]any{"status": current},
	)
}

// NewNotReadyForPickupError reports the current order state.
func NewNotReadyForPickupError(current OrderStatus) *DomainError {
	return withDetails(ErrNotReadyForPickup,
		fmt.Sprintf("Order is not ready for pickup (status %s)", current),
		map[string]any{"status": current},
	)
}

// NewInsufficientQuantityError reports how many units are left.
func NewInsufficientQuantityError(available int) *DomainError {
	return withDetails(ErrInsufficientQuantity,
		fmt.Sprintf("Only %d units left in this offer", available),
		map[string]any{"available": available},
	)
}

// NewInvalidDateError reports a date parameter that is not YYYY-MM-DD.
func NewInvalidDateError(name, value string) *DomainError {
	return withDetails(ErrInvalidDateRange,
		fmt.Sprintf("%s must be a date in YYYY-MM-DD format", name),
		map[string]any{name: value},
	)
}
