package dto

import "github.com/shopspring/decimal"

type CreateOrderRequest struct {
	TenantID         string             `json:"tenantId" validate:"required,max=64"`
	CustomerName     string             `json:"customerName" validate:"required,max=150"`
	CustomerPhone    string             `json:"customerPhone" validate:"required,max=30"`
	CustomerAddress  string             `json:"customerAddress" validate:"required,max=255"`
	CustomerEmail    *string            `json:"customerEmail,omitempty" validate:"omitempty,email,max=150"`
	CustomerDivision string             `json:"customerDivision,omitempty" validate:"max=100"`
	CustomerDistrict string             `json:"customerDistrict,omitempty" validate:"max=100"`
	ExpressDelivery  bool               `json:"expressDelivery,omitempty"`
	AdvancePayment   *decimal.Decimal   `json:"advancePayment,omitempty"`
	Items            []OrderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	Total            decimal.Decimal    `json:"total"`
	PaymentMethod    string             `json:"paymentMethod" validate:"required,oneof=cash_on_delivery mobile_wallet bank_transfer card"`
	Note             *string            `json:"note,omitempty" validate:"omitempty,max=1000"`
}

type OrderItemRequest struct {
	ID       string          `json:"id" validate:"required,max=64"`
	Name     string          `json:"name" validate:"required,max=255"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"min=1"`
	Image    string          `json:"image,omitempty" validate:"max=512"`
}

// UpdateOrderRequest carries a status change, a financial edit, or both.
// Version, when set, must match the stored order.
type UpdateOrderRequest struct {
	Status           *string          `json:"status,omitempty"`
	CustomerDivision *string          `json:"customerDivision,omitempty" validate:"omitempty,max=100"`
	CustomerDistrict *string          `json:"customerDistrict,omitempty" validate:"omitempty,max=100"`
	DeliveryCharge   *decimal.Decimal `json:"deliveryCharge,omitempty"`
	AdvancePayment   *decimal.Decimal `json:"advancePayment,omitempty"`
	Version          *int             `json:"version,omitempty" validate:"omitempty,min=1"`
}

type QuoteRequest struct {
	Items            []OrderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	CustomerDivision string             `json:"customerDivision,omitempty" validate:"max=100"`
	ExpressDelivery  bool               `json:"expressDelivery,omitempty"`
	AdvancePayment   *decimal.Decimal   `json:"advancePayment,omitempty"`
}
