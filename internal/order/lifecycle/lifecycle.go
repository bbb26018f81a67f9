// Package lifecycle gates order status changes and financial edits. Both
// operations return an updated copy and leave their input untouched.
package lifecycle

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/pricing"
)

const InitialStatus = domain.OrderStatusPending

var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:   {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:   {domain.OrderStatusDelivered, domain.OrderStatusCancelled},
	domain.OrderStatusDelivered: nil,
	domain.OrderStatusCancelled: nil,
}

// AllowedTransitions lists the statuses reachable from status in one step.
func AllowedTransitions(status domain.OrderStatus) []domain.OrderStatus {
	next := transitions[status]
	out := make([]domain.OrderStatus, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to domain.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func IsTerminal(status domain.OrderStatus) bool {
	return status.IsValid() && len(transitions[status]) == 0
}

// Transition moves order to status to. Unknown statuses yield a
// ValidationError, edges outside the graph a TransitionError.
func Transition(order domain.Order, to domain.OrderStatus, now time.Time) (domain.Order, error) {
	if !to.IsValid() {
		return order, apperrors.NewValidationError("invalid status", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of pending, confirmed, shipped, delivered, cancelled",
		})
	}
	if !CanTransition(order.Status, to) {
		return order, apperrors.NewTransitionError(order.Status.String(), to.String())
	}

	out := order.Clone()
	out.Status = to
	out.UpdatedAt = now
	return out, nil
}

// FinancialEdit carries the admin-editable fields. Nil means unchanged.
type FinancialEdit struct {
	Division       *string
	District       *string
	DeliveryCharge *decimal.Decimal
	AdvancePayment *decimal.Decimal
}

func (e FinancialEdit) IsEmpty() bool {
	return e.Division == nil && e.District == nil && e.DeliveryCharge == nil && e.AdvancePayment == nil
}

// ApplyFinancials applies edit regardless of status and re-derives the
// breakdown. An explicit delivery charge wins; otherwise a division change
// reprices delivery from settings. VAT stays as charged at placement.
func ApplyFinancials(order domain.Order, edit FinancialEdit, settings domain.DeliverySettings, now time.Time) (domain.Order, error) {
	out := order.Clone()

	divisionChanged := false
	if edit.Division != nil {
		division := strings.TrimSpace(*edit.Division)
		divisionChanged = !strings.EqualFold(division, out.Customer.Division)
		out.Customer.Division = division
	}
	if edit.District != nil {
		out.Customer.District = strings.TrimSpace(*edit.District)
	}

	subTotal := pricing.Subtotal(out.LineItems())

	delivery := out.Breakdown.DeliveryCharge
	switch {
	case edit.DeliveryCharge != nil:
		delivery = *edit.DeliveryCharge
	case divisionChanged:
		selection := pricing.Selection(out.Customer.Division, out.ExpressDelivery, settings)
		delivery = pricing.DeliveryCharge(subTotal, selection, settings)
	}

	advance := out.Breakdown.AdvancePaid
	if edit.AdvancePayment != nil {
		advance = *edit.AdvancePayment
	}

	breakdown, err := pricing.Settle(subTotal, out.Breakdown.VAT, delivery, advance)
	if err != nil {
		return order, err
	}

	out.Breakdown = breakdown
	out.UpdatedAt = now
	return out, nil
}
