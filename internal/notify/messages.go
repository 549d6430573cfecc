package notify

import (
	"fmt"
	"time"

	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func related(id uuid.UUID) *uuid.UUID {
	return &id
}

func toConsumer(order *model.Order, kind model.NotificationType, title, message string) *model.Notification {
	return &model.Notification{
		RecipientID:   order.ConsumerID,
		RecipientType: model.RecipientConsumer,
		Type:          kind,
		Title:         title,
		Message:       message,
		RelatedID:     related(order.ID),
	}
}

func toRestaurant(order *model.Order, kind model.NotificationType, title, message string) *model.Notification {
	return &model.Notification{
		RecipientID:   order.RestaurantID,
		RecipientType: model.RecipientRestaurant,
		Type:          kind,
		Title:         title,
		Message:       message,
		RelatedID:     related(order.ID),
	}
}

// OrderConfirmed tells the consumer their payment was approved and gives the pickup code.
func OrderConfirmed(order *model.Order) *model.Notification {
	return toConsumer(order, model.NotificationOrderConfirmed, "Order confirmed",
		fmt.Sprintf("Payment approved. Your pickup code is %s.", order.PickupCode))
}

// NewOrder alerts the restaurant to a confirmed order.
func NewOrder(order *model.Order) *model.Notification {
	return toRestaurant(order, model.NotificationNewOrder, "New order",
		fmt.Sprintf("New order of %d unit(s), total %s.", order.Quantity, order.TotalAmount.StringFixed(2)))
}

// OrderCancelled tells the consumer their order was cancelled.
func OrderCancelled(order *model.Order) *model.Notification {
	return toConsumer(order, model.NotificationOrderCancelled, "Order cancelled",
		"Your order was cancelled and your payment will be refunded.")
}

// OrderCancelledForRestaurant tells the restaurant a consumer cancelled.
func OrderCancelledForRestaurant(order *model.Order) *model.Notification {
	return toRestaurant(order, model.NotificationOrderCancelled, "Order cancelled",
		fmt.Sprintf("An order of %d unit(s) was cancelled by the customer.", order.Quantity))
}

// PaymentRefused tells the consumer the gateway did not approve the payment.
func PaymentRefused(order *model.Order, paymentStatus model.PaymentStatus) *model.Notification {
	msg := "Your payment was not approved and the order was cancelled."
	if paymentStatus == model.PaymentStatusRefunded {
		msg = "Your payment was cancelled and the order was cancelled."
	}
	return toConsumer(order, model.NotificationPaymentRefused, "Payment not approved", msg)
}

// OfferCancelled tells the consumer the restaurant withdrew the offer.
func OfferCancelled(order *model.Order, credit decimal.Decimal) *model.Notification {
	return toConsumer(order, model.NotificationOfferCancelled, "Offer cancelled",
		fmt.Sprintf("The restaurant cancelled this offer. Your payment will be refunded and %s was added to your credit.",
			credit.StringFixed(2)))
}

// NoShowWarning tells the consumer a pickup was missed.
func NoShowWarning(order *model.Order, failed, limit int) *model.Notification {
	return toConsumer(order, model.NotificationNoShowWarning, "Missed pickup",
		fmt.Sprintf("You missed a pickup (%d/%d). Reaching %d blocks new reservations.", failed, limit, limit))
}

// AccountBlocked tells the consumer they cannot reserve until until.
func AccountBlocked(order *model.Order, until time.Time) *model.Notification {
	return toConsumer(order, model.NotificationAccountBlocked, "Account blocked",
		fmt.Sprintf("Too many missed pickups. Reservations are blocked until %s.", until.Format(time.RFC3339)))
}

// PickupReminder reminds the consumer the pickup window opens soon.
func PickupReminder(order *model.Order) *model.Notification {
	return toConsumer(order, model.NotificationPickupReminder, "Pickup soon",
		fmt.Sprintf("Your pickup window opens at %s. Code: %s.", order.PickupStartTime.Format(time.RFC3339), order.PickupCode))
}

// PickupCompleted tells the restaurant an order was collected.
func PickupCompleted(order *model.Order) *model.Notification {
	return toRestaurant(order, model.NotificationPickupCompleted, "Order collected",
		fmt.Sprintf("Order with code %s was collected.", order.PickupCode))
}

// ReviewRequest asks the consumer to rate a completed order.
func ReviewRequest(order *model.Order) *model.Notification {
	return toConsumer(order, model.NotificationReviewRequest, "How was it?",
		"Tell us about your pickup by rating the restaurant.")
}

// PayoutProcessed tells the restaurant a settlement was paid.
func PayoutProcessed(t *model.Transaction) *model.Notification {
	return &model.Notification{
		RecipientID:   t.RestaurantID,
		RecipientType: model.RecipientRestaurant,
		Type:          model.NotificationPayoutProcessed,
		Title:         "Payout processed",
		Message:       fmt.Sprintf("A payout of %s was transferred.", t.RestaurantAmount.StringFixed(2)),
		RelatedID:     related(t.ID),
	}
}

// LowRatingAlert warns the restaurant its average rating dropped.
func LowRatingAlert(restaurantID uuid.UUID, summary model.RatingSummary) *model.Notification {
	return &model.Notification{
		RecipientID:   restaurantID,
		RecipientType: model.RecipientRestaurant,
		Type:          model.NotificationLowRatingAlert,
		Title:         "Low rating",
		Message:       fmt.Sprintf("Your average rating is %.2f over %d reviews.", summary.Average, summary.Total),
	}
}
