// Package pricing derives order price breakdowns from line items, the
// customer's delivery selection and the tenant's delivery settings.
// Breakdowns are always recomputed from inputs; nothing here patches a
// previous result.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

var hundred = decimal.NewFromInt(100)

type Input struct {
	Items       []domain.LineItem
	Selection   domain.DeliverySelection
	Settings    domain.DeliverySettings
	AdvancePaid decimal.Decimal
}

// Compute returns the full breakdown for in. An advance outside [0, total]
// is rejected with a ValidationError.
func Compute(in Input) (domain.PriceBreakdown, error) {
	subTotal := Subtotal(in.Items)
	delivery := DeliveryCharge(subTotal, in.Selection, in.Settings)
	vat := VAT(subTotal, in.Settings.VATRate)
	return Settle(subTotal, vat, delivery, in.AdvancePaid)
}

func Subtotal(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// DeliveryCharge applies the free-delivery threshold, then the zone charge.
// A configured, positive express charge replaces whichever of those applied.
func DeliveryCharge(subTotal decimal.Decimal, selection domain.DeliverySelection, settings domain.DeliverySettings) decimal.Decimal {
	if selection.ExpressRequested && settings.ExpressCharge != nil && settings.ExpressCharge.IsPositive() {
		return *settings.ExpressCharge
	}

	if settings.FreeDeliveryMinimum != nil && subTotal.GreaterThanOrEqual(*settings.FreeDeliveryMinimum) {
		return decimal.Zero
	}

	switch selection.Region {
	case domain.RegionInside:
		return settings.InsideRegionCharge
	case domain.RegionOutside:
		return settings.OutsideRegionCharge
	default:
		return decimal.Zero
	}
}

// VAT is subTotal × rate / 100, rounded to two decimals.
func VAT(subTotal, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return subTotal.Mul(rate).Div(hundred).Round(2)
}

// Settle assembles a breakdown from explicit components. It is used directly
// when an admin overrides the delivery charge.
func Settle(subTotal, vat, delivery, advance decimal.Decimal) (domain.PriceBreakdown, error) {
	if delivery.IsNegative() {
		return domain.PriceBreakdown{}, apperrors.NewValidationError("invalid delivery charge", apperrors.ValidationDetail{
			Field:   "deliveryCharge",
			Message: "deliveryCharge must be non-negative",
		})
	}

	total := subTotal.Add(vat).Add(delivery)

	if advance.IsNegative() {
		return domain.PriceBreakdown{}, apperrors.NewValidationError("invalid advance payment", apperrors.ValidationDetail{
			Field:   "advancePayment",
			Message: "advancePayment must be non-negative",
		})
	}
	if advance.GreaterThan(total) {
		return domain.PriceBreakdown{}, apperrors.NewValidationError("invalid advance payment", apperrors.ValidationDetail{
			Field:   "advancePayment",
			Message: "advancePayment must not exceed the order total of " + total.StringFixed(2),
		})
	}

	return domain.PriceBreakdown{
		SubTotal:       subTotal,
		VAT:            vat,
		DeliveryCharge: delivery,
		Total:          total,
		AdvancePaid:    advance,
		Remaining:      total.Sub(advance),
	}, nil
}

// RegionFor classifies a customer division against the tenant's inside
// division. An empty division leaves the region unspecified.
func RegionFor(division string, settings domain.DeliverySettings) domain.DeliveryRegion {
	division = strings.TrimSpace(division)
	if division == "" {
		return domain.RegionUnspecified
	}
	inside := strings.TrimSpace(settings.InsideDivision)
	if inside == "" {
		inside = domain.DefaultInsideDivision
	}
	if strings.EqualFold(division, inside) {
		return domain.RegionInside
	}
	return domain.RegionOutside
}

// Selection is a convenience for building a DeliverySelection from order fields.
func Selection(division string, express bool, settings domain.DeliverySettings) domain.DeliverySelection {
	return domain.DeliverySelection{
		Region:           RegionFor(division, settings),
		ExpressRequested: express,
	}
}
