package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used in reports and query strings.
const DateLayout = "2006-01-02"

// SalesRange bounds a sales report. From is inclusive and To exclusive; nil
// leaves that side open.
type SalesRange struct {
	From *time.Time
	To   *time.Time
}

// DailySales aggregates a restaurant's settled orders for one local day.
type DailySales struct {
	Date        string          `json:"date"`
	TotalOrders int             `json:"totalOrders"`
	Revenue     decimal.Decimal `json:"revenue"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	NetRevenue  decimal.Decimal `json:"netRevenue"`
}

// SalesSummary totals a sales report.
type SalesSummary struct {
	TotalOrders int             `json:"totalOrders"`
	Revenue     decimal.Decimal `json:"revenue"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	NetRevenue  decimal.Decimal `json:"netRevenue"`
}

// SalesHistory is a restaurant's daily sales, newest day first.
type SalesHistory struct {
	Days    []DailySales `json:"days"`
	Summary SalesSummary `json:"summary"`
}

// NewSalesHistory totals days into a report.
func NewSalesHistory(days []DailySales) SalesHistory {
	if days == nil {
		days = []DailySales{}
	}
	var sum SalesSummary
	for _, d := range days {
		sum.TotalOrders += d.TotalOrders
		sum.Revenue = sum.Revenue.Add(d.Revenue)
		sum.PlatformFee = sum.PlatformFee.Add(d.PlatformFee)
		sum.NetRevenue = sum.NetRevenue.Add(d.NetRevenue)
	}
	return SalesHistory{Days: days, Summary: sum}
}
