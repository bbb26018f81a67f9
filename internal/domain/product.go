package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         string
	TenantID   string
	Name       string
	Price      decimal.Decimal
	Stock      *int
	ImageRef   string
	IsActive   bool
	IsDeleted  bool
	TrackStock bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p Product) AvailableStock() int {
	if p.Stock == nil || *p.Stock < 0 {
		return 0
	}
	return *p.Stock
}

func (p Product) AsLineItem(quantity int) LineItem {
	return LineItem{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		ImageRef:  p.ImageRef,
	}
}
