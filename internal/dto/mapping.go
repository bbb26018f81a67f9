package dto

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func ToLineItems(items []OrderItemRequest) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.LineItem{
			ID:        strings.TrimSpace(item.ID),
			Name:      strings.TrimSpace(item.Name),
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			ImageRef:  item.Image,
		})
	}
	return out
}

func FromLineItems(items []domain.LineItem) []OrderItemRequest {
	out := make([]OrderItemRequest, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemRequest{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
			Image:    item.ImageRef,
		})
	}
	return out
}

// ToOrderResponse renders order; allowed lists the statuses it may move to
// and is omitted when nil.
func ToOrderResponse(order domain.Order, allowed []domain.OrderStatus) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:       item.ProductID,
			Name:     item.Name,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
			Image:    item.ImageRef,
		})
	}

	resp := OrderResponse{
		ID:               order.ID,
		TenantID:         order.TenantID,
		CustomerName:     order.Customer.Name,
		CustomerPhone:    order.Customer.Phone,
		CustomerAddress:  order.Customer.Address,
		CustomerEmail:    order.Customer.Email,
		CustomerDivision: order.Customer.Division,
		CustomerDistrict: order.Customer.District,
		SubTotal:         order.Breakdown.SubTotal,
		VAT:              order.Breakdown.VAT,
		DeliveryCharge:   order.Breakdown.DeliveryCharge,
		Total:            order.Breakdown.Total,
		AdvancePayment:   order.Breakdown.AdvancePaid,
		Remaining:        order.Breakdown.Remaining,
		ExpressDelivery:  order.ExpressDelivery,
		Status:           string(order.Status),
		PaymentMethod:    string(order.PaymentMethod),
		Note:             order.Note,
		Version:          order.Version,
		Items:            items,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	if allowed != nil {
		resp.AllowedTransitions = make([]string, 0, len(allowed))
		for _, s := range allowed {
			resp.AllowedTransitions = append(resp.AllowedTransitions, string(s))
		}
	}
	return resp
}

// ToOrder is the inverse of ToOrderResponse, used by API clients.
func ToOrder(resp OrderResponse) domain.Order {
	items := make([]domain.OrderItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		items = append(items, domain.OrderItem{
			OrderID:   resp.ID,
			ProductID: item.ID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			ImageRef:  item.Image,
		})
	}
	return domain.Order{
		ID:       resp.ID,
		TenantID: resp.TenantID,
		Customer: domain.Customer{
			Name:     resp.CustomerName,
			Phone:    resp.CustomerPhone,
			Address:  resp.CustomerAddress,
			Email:    resp.CustomerEmail,
			Division: resp.CustomerDivision,
			District: resp.CustomerDistrict,
		},
		Items: items,
		Breakdown: domain.PriceBreakdown{
			SubTotal:       resp.SubTotal,
			VAT:            resp.VAT,
			DeliveryCharge: resp.DeliveryCharge,
			Total:          resp.Total,
			AdvancePaid:    resp.AdvancePayment,
			Remaining:      resp.Remaining,
		},
		ExpressDelivery: resp.ExpressDelivery,
		Status:          domain.OrderStatus(resp.Status),
		PaymentMethod:   domain.PaymentMethod(resp.PaymentMethod),
		Note:            resp.Note,
		Version:         resp.Version,
		CreatedAt:       resp.CreatedAt,
		UpdatedAt:       resp.UpdatedAt,
	}
}

func ToStatsResponse(stats domain.OrderStats) StatsResponse {
	counts := make(map[string]int, len(stats.CountByStatus))
	for status, n := range stats.CountByStatus {
		counts[string(status)] = n
	}
	return StatsResponse{
		TenantID:        stats.TenantID,
		Since:           stats.Since,
		TotalOrders:     stats.TotalOrders,
		CountByStatus:   counts,
		Revenue:         stats.Revenue,
		ProfitMargin:    stats.ProfitMargin,
		EstimatedProfit: stats.EstimatedProfit,
		IsEstimate:      true,
	}
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Advance returns the request's advance payment, zero when absent.
func (r CreateOrderRequest) Advance() decimal.Decimal {
	return decimalOrZero(r.AdvancePayment)
}

func (r QuoteRequest) Advance() decimal.Decimal {
	return decimalOrZero(r.AdvancePayment)
}
