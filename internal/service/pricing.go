package service

import (
	"surplus-market/internal/model"

	"github.com/shopspring/decimal"
)

var (
	hundred       = decimal.NewFromInt(100)
	maxPriceRatio = decimal.NewFromInt(1).Sub(model.MinDiscount)
)

// priceSnapshot holds the price fields copied onto an order.
type priceSnapshot struct {
	original         decimal.Decimal
	promotional      decimal.Decimal
	total            decimal.Decimal
	platformFee      decimal.Decimal
	restaurantAmount decimal.Decimal
}

// priceOrder computes the order amounts for qty units of offer. The fee is
// rounded to cents and the restaurant receives the remainder.
func priceOrder(offer *model.Offer, qty int) priceSnapshot {
	units := decimal.NewFromInt(int64(qty))
	total := offer.PromotionalPrice.Mul(units)
	fee := total.Mul(model.PlatformFeeRate).Round(2)

	return priceSnapshot{
		original:         offer.OriginalPrice.Mul(units),
		promotional:      offer.PromotionalPrice,
		total:            total,
		platformFee:      fee,
		restaurantAmount: total.Sub(fee),
	}
}

// meetsMinDiscount reports whether promotional ≤ original × (1 − MinDiscount).
func meetsMinDiscount(original, promotional decimal.Decimal) bool {
	return promotional.LessThanOrEqual(original.Mul(maxPriceRatio))
}

// discountPercent returns the discount as a percentage rounded to two places.
func discountPercent(original, promotional decimal.Decimal) decimal.Decimal {
	if original.IsZero() {
		return decimal.Zero
	}
	return original.Sub(promotional).Mul(hundred).Div(original).Round(2)
}

// goodwillCredit is the credit granted when a restaurant cancels an order.
func goodwillCredit(order *model.Order) decimal.Decimal {
	return order.TotalAmount.Mul(model.GoodwillCreditRate).Round(2)
}
