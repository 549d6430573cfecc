package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusProcessed TransactionStatus = "processed"
	TransactionStatusPaid      TransactionStatus = "paid"
)

// Transaction is the financial record of an approved order.
type Transaction struct {
	ID               uuid.UUID         `json:"id" db:"id"`
	OrderID          uuid.UUID         `json:"orderId" db:"order_id"`
	RestaurantID     uuid.UUID         `json:"restaurantId" db:"restaurant_id"`
	Amount           decimal.Decimal   `json:"amount" db:"amount"`
	PlatformFee      decimal.Decimal   `json:"platformFee" db:"platform_fee"`
	RestaurantAmount decimal.Decimal   `json:"restaurantAmount" db:"restaurant_amount"`
	Status           TransactionStatus `json:"status" db:"status"`
	ProcessedAt      *time.Time        `json:"processedAt,omitempty" db:"processed_at"`
	PaidAt           *time.Time        `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
}

// NewTransactionForOrder builds the pending transaction for an approved order.
func NewTransactionForOrder(order *Order, now time.Time) *Transaction {
	return &Transaction{
		ID:               uuid.New(),
		OrderID:          order.ID,
		RestaurantID:     order.RestaurantID,
		Amount:           order.TotalAmount,
		PlatformFee:      order.PlatformFee,
		RestaurantAmount: order.RestaurantAmount,
		Status:           TransactionStatusPending,
		CreatedAt:        now,
	}
}
