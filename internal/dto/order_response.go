package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type OrderResponse struct {
	ID                 uint                `json:"id"`
	TenantID           string              `json:"tenantId"`
	CustomerName       string              `json:"customerName"`
	CustomerPhone      string              `json:"customerPhone"`
	CustomerAddress    string              `json:"customerAddress"`
	CustomerEmail      *string             `json:"customerEmail,omitempty"`
	CustomerDivision   string              `json:"customerDivision"`
	CustomerDistrict   string              `json:"customerDistrict"`
	SubTotal           decimal.Decimal     `json:"subTotal"`
	VAT                decimal.Decimal     `json:"vat"`
	DeliveryCharge     decimal.Decimal     `json:"deliveryCharge"`
	Total              decimal.Decimal     `json:"total"`
	AdvancePayment     decimal.Decimal     `json:"advancePayment"`
	Remaining          decimal.Decimal     `json:"remaining"`
	ExpressDelivery    bool                `json:"expressDelivery"`
	Status             string              `json:"status"`
	PaymentMethod      string              `json:"paymentMethod"`
	Note               *string             `json:"note,omitempty"`
	Version            int                 `json:"version"`
	Items              []OrderItemResponse `json:"items"`
	AllowedTransitions []string            `json:"allowedTransitions,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

type OrderItemResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type StatsResponse struct {
	TenantID        string          `json:"tenantId"`
	Since           time.Time       `json:"since"`
	TotalOrders     int             `json:"totalOrders"`
	CountByStatus   map[string]int  `json:"countByStatus"`
	Revenue         decimal.Decimal `json:"revenue"`
	ProfitMargin    decimal.Decimal `json:"profitMargin"`
	EstimatedProfit decimal.Decimal `json:"estimatedProfit"`
	IsEstimate      bool            `json:"isEstimate"`
}

type QuoteResponse struct {
	TenantID  string                `json:"tenantId"`
	Region    string                `json:"region"`
	Breakdown domain.PriceBreakdown `json:"breakdown"`
}
