package gateway

import "surplus-market/internal/model"

// Gateway payment statuses.
const (
	StatusApproved  = "approved"
	StatusPending   = "pending"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

// MapStatus maps a gateway payment status to the internal payment and order status.
// Unrecognized statuses map to pending.
func MapStatus(status string) (model.PaymentStatus, model.OrderStatus) {
	switch status {
	case StatusApproved:
		return model.PaymentStatusApproved, model.OrderStatusConfirmed
	case StatusRejected:
		return model.PaymentStatusRefused, model.OrderStatusCancelled
	case StatusCancelled, StatusRefunded:
		return model.PaymentStatusRefunded, model.OrderStatusCancelled
	default:
		return model.PaymentStatusPending, model.OrderStatusPendingPayment
	}
}
