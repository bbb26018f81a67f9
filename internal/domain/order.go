package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus accepts any casing of a known status.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMobileWallet   PaymentMethod = "mobile_wallet"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCard           PaymentMethod = "card"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCashOnDelivery, PaymentMobileWallet, PaymentBankTransfer, PaymentCard:
		return true
	}
	return false
}

type Customer struct {
	Name     string
	Phone    string
	Address  string
	Email    *string
	Division string
	District string
}

// OrderItem is the snapshot of a cart line taken when the order is placed.
type OrderItem struct {
	ID        uint
	OrderID   uint
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	ImageRef  string
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i OrderItem) AsLineItem() LineItem {
	return LineItem{
		ID:        i.ProductID,
		Name:      i.Name,
		UnitPrice: i.UnitPrice,
		Quantity:  i.Quantity,
		ImageRef:  i.ImageRef,
	}
}

// SnapshotItems copies cart lines into order items.
func SnapshotItems(items []LineItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItem{
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageRef:  item.ImageRef,
		})
	}
	return out
}

type Order struct {
	ID              uint
	TenantID        string
	Customer        Customer
	Items           []OrderItem
	Breakdown       PriceBreakdown
	ExpressDelivery bool
	Status          OrderStatus
	PaymentMethod   PaymentMethod
	Note            *string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (o Order) LineItems() []LineItem {
	out := make([]LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		out = append(out, item.AsLineItem())
	}
	return out
}

// Clone returns a deep copy; mutating the clone's items never reaches o.
func (o Order) Clone() Order {
	cp := o
	cp.Items = make([]OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	if o.Customer.Email != nil {
		email := *o.Customer.Email
		cp.Customer.Email = &email
	}
	if o.Note != nil {
		note := *o.Note
		cp.Note = &note
	}
	return cp
}
