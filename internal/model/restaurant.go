package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rating alert thresholds.
const (
	LowRatingMinReviews = 10
)

// LowRatingThreshold triggers an alert once enough reviews exist.
var LowRatingThreshold = decimal.NewFromFloat(3.0)

// Restaurant publishes offers.
type Restaurant struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Email         string          `json:"email" db:"email"`
	TaxID         string          `json:"taxId" db:"tax_id"`
	Address       string          `json:"address" db:"address"`
	Latitude      float64         `json:"latitude" db:"latitude"`
	Longitude     float64         `json:"longitude" db:"longitude"`
	IsApproved    bool            `json:"isApproved" db:"is_approved"`
	AverageRating decimal.Decimal `json:"averageRating" db:"average_rating"`
	TotalRatings  int             `json:"totalRatings" db:"total_ratings"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// RestaurantProfileUpdate changes the editable restaurant fields. Nil fields
// are kept. Latitude and longitude move together.
type RestaurantProfileUpdate struct {
	Name      *string  `json:"name" validate:"omitempty,min=2,max=255"`
	Address   *string  `json:"address" validate:"omitempty,max=500"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}
