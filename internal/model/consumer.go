package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Penalty rules.
const (
	MaxFailedPickups = 3
	BlockDuration    = 30 * 24 * time.Hour
)

// Consumer is a person who reserves offers.
type Consumer struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Email         string          `json:"email" db:"email"`
	FailedPickups int             `json:"failedPickups" db:"failed_pickups"`
	BlockedUntil  *time.Time      `json:"blockedUntil,omitempty" db:"blocked_until"`
	CreditBalance decimal.Decimal `json:"creditBalance" db:"credit_balance"`
	IsActive      bool            `json:"isActive" db:"is_active"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// IsBlocked reports whether the consumer is blocked at now.
func (c *Consumer) IsBlocked(now time.Time) bool {
	return c.BlockedUntil != nil && c.BlockedUntil.After(now)
}

// ConsumerProfileUpdate changes the editable consumer fields. Nil fields are kept.
type ConsumerProfileUpdate struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=255"`
}
