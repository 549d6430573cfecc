package model

import (
	"time"

	"github.com/google/uuid"
)

// RecipientType identifies who receives a notification.
type RecipientType string

const (
	RecipientConsumer   RecipientType = "consumer"
	RecipientRestaurant RecipientType = "restaurant"
)

// NotificationType categorises notifications.
type NotificationType string

const (
	NotificationOrderConfirmed  NotificationType = "ORDER_CONFIRMED"
	NotificationNewOrder        NotificationType = "NEW_ORDER"
	NotificationOrderCancelled  NotificationType = "ORDER_CANCELLED"
	NotificationPaymentRefused  NotificationType = "PAYMENT_REFUSED"
	NotificationOfferCancelled  NotificationType = "OFFER_CANCELLED"
	NotificationNoShowWarning   NotificationType = "NO_SHOW_WARNING"
	NotificationAccountBlocked  NotificationType = "ACCOUNT_BLOCKED"
	NotificationPickupReminder  NotificationType = "PICKUP_REMINDER"
	NotificationPayoutProcessed NotificationType = "PAYOUT_PROCESSED"
	NotificationReviewRequest   NotificationType = "REVIEW_REQUEST"
	NotificationLowRatingAlert  NotificationType = "LOW_RATING_ALERT"
	NotificationPickupCompleted NotificationType = "PICKUP_COMPLETED"
)

// Notification is a message for a consumer or restaurant.
type Notification struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	RecipientID   uuid.UUID        `json:"recipientId" db:"recipient_id"`
	RecipientType RecipientType    `json:"recipientType" db:"recipient_type"`
	Type          NotificationType `json:"type" db:"type"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	RelatedID     *uuid.UUID       `json:"relatedId,omitempty" db:"related_id"`
	IsRead        bool             `json:"isRead" db:"is_read"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
}

// NotificationList is a page of notifications with the unread count.
type NotificationList struct {
	PageResult[Notification]
	UnreadCount int `json:"unreadCount"`
}
