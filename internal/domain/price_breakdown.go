package domain

import "github.com/shopspring/decimal"

// PriceBreakdown is always derived by the pricing package; it is never
// patched field by field.
type PriceBreakdown struct {
	SubTotal       decimal.Decimal `json:"subTotal"`
	VAT            decimal.Decimal `json:"vat"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	Total          decimal.Decimal `json:"total"`
	AdvancePaid    decimal.Decimal `json:"advancePaid"`
	Remaining      decimal.Decimal `json:"remaining"`
}

// Consistent reports whether the stored figures satisfy the breakdown invariants.
func (b PriceBreakdown) Consistent() bool {
	if !b.Total.Equal(b.SubTotal.Add(b.VAT).Add(b.DeliveryCharge)) {
		return false
	}
	if b.AdvancePaid.IsNegative() || b.AdvancePaid.GreaterThan(b.Total) {
		return false
	}
	return b.Remaining.Equal(b.Total.Sub(b.AdvancePaid))
}
