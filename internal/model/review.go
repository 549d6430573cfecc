package model

import (
	"time"

	"github.com/google/uuid"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a consumer rating of a completed order.
type Review struct {
	ID           uuid.UUID `json:"id" db:"id"`
	OrderID      uuid.UUID `json:"orderId" db:"order_id"`
	ConsumerID   uuid.UUID `json:"consumerId" db:"consumer_id"`
	RestaurantID uuid.UUID `json:"restaurantId" db:"restaurant_id"`
	Rating       int       `json:"rating" db:"rating"`
	Comment      string    `json:"comment,omitempty" db:"comment"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// ReviewRequest is the consumer input for a review.
type ReviewRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
	Rating  int       `json:"rating" validate:"required,min=1,max=5"`
	Comment string    `json:"comment" validate:"max=1000"`
}

// RatingSummary is the recomputed restaurant rating.
type RatingSummary struct {
	Average float64 `json:"averageRating"`
	Total   int     `json:"totalRatings"`
}

// ReviewView is a review with the name of the other party.
type ReviewView struct {
	Review
	ConsumerName   string `json:"consumerName,omitempty"`
	RestaurantName string `json:"restaurantName,omitempty"`
}

// RestaurantReviews is a page of a restaurant's reviews and its rating.
type RestaurantReviews struct {
	PageResult[ReviewView]
	Summary RatingSummary `json:"summary"`
}
