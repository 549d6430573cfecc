package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferStatus is the lifecycle state of an offer.
type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusSoldOut   OfferStatus = "SOLD_OUT"
	OfferStatusExpired   OfferStatus = "EXPIRED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// Offer limits.
const (
	MinOfferQuantity      = 1
	MaxOfferQuantity      = 50
	MinPickupWindow       = 1 * time.Hour
	MaxPickupWindow       = 3 * time.Hour
	DefaultSearchRadiusKm = 5.0
)

// MinDiscount is the smallest accepted discount, as a fraction of the original price.
var MinDiscount = decimal.NewFromFloat(0.30)

// Offer is a batch of discounted surplus food with a pickup window.
type Offer struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	RestaurantID      uuid.UUID       `json:"restaurantId" db:"restaurant_id"`
	PackageType       string          `json:"packageType" db:"package_type"`
	Description       string          `json:"description" db:"description"`
	Quantity          int             `json:"quantity" db:"quantity"`
	AvailableQuantity int             `json:"availableQuantity" db:"available_quantity"`
	OriginalPrice     decimal.Decimal `json:"originalPrice" db:"original_price"`
	PromotionalPrice  decimal.Decimal `json:"promotionalPrice" db:"promotional_price"`
	DiscountPercent   decimal.Decimal `json:"discountPercent" db:"discount_percent"`
	PickupStartTime   time.Time       `json:"pickupStartTime" db:"pickup_start_time"`
	PickupEndTime     time.Time       `json:"pickupEndTime" db:"pickup_end_time"`
	IsVegetarian      bool            `json:"isVegetarian" db:"is_vegetarian"`
	IsVegan           bool            `json:"isVegan" db:"is_vegan"`
	Status            OfferStatus     `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// OfferSpec is the restaurant-supplied input for a new offer.
type OfferSpec struct {
	PackageType      string          `json:"packageType" validate:"required,max=100"`
	Description      string          `json:"description" validate:"max=1000"`
	Quantity         int             `json:"quantity" validate:"required,min=1,max=50"`
	OriginalPrice    decimal.Decimal `json:"originalPrice" validate:"required"`
	PromotionalPrice decimal.Decimal `json:"promotionalPrice" validate:"required"`
	PickupStartTime  time.Time       `json:"pickupStartTime" validate:"required"`
	PickupEndTime    time.Time       `json:"pickupEndTime" validate:"required,gtfield=PickupStartTime"`
	IsVegetarian     bool            `json:"isVegetarian"`
	IsVegan          bool            `json:"isVegan"`
}

// DiscountFraction returns (original-promotional)/original.
func (s OfferSpec) DiscountFraction() decimal.Decimal {
	if s.OriginalPrice.IsZero() {
		return decimal.Zero
	}
	return s.OriginalPrice.Sub(s.PromotionalPrice).Div(s.OriginalPrice)
}

// OfferListing is an offer as returned by discovery, with its restaurant location.
type OfferListing struct {
	Offer
	RestaurantName    string   `json:"restaurantName"`
	RestaurantAddress string   `json:"restaurantAddress"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	DistanceKm        *float64 `json:"distanceKm,omitempty"`
}

// Location is a consumer position in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// OfferFilter narrows discovery results.
type OfferFilter struct {
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	IsVegetarian *bool
	IsVegan      *bool
	Location     *Location
	RadiusKm     float64
	Page         Page
}

// Bounds is a latitude/longitude rectangle used to prefilter by distance.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}
