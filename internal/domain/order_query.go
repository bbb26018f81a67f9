package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderFilter struct {
	Status *OrderStatus
	Limit  int
	Offset int
}

// StatusSummary aggregates a tenant's orders in one status over a period.
type StatusSummary struct {
	Status OrderStatus
	Count  int
	Total  decimal.Decimal
}

type OrderStats struct {
	TenantID        string
	Since           time.Time
	CountByStatus   map[OrderStatus]int
	TotalOrders     int
	Revenue         decimal.Decimal
	ProfitMargin    decimal.Decimal
	EstimatedProfit decimal.Decimal
}
