package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/httpio"
	"storefront/internal/order/lifecycle"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type PlaceOrderUseCase interface {
	PlaceOrder(ctx context.Context, req dto.CreateOrderRequest) (*domain.Order, error)
	Quote(ctx context.Context, tenantID string, req dto.QuoteRequest) (*dto.QuoteResponse, error)
}

type ManageOrderUseCase interface {
	Get(ctx context.Context, tenantID string, id uint) (*domain.Order, error)
	List(ctx context.Context, tenantID string, filter domain.OrderFilter) ([]domain.Order, error)
	Update(ctx context.Context, tenantID string, id uint, req dto.UpdateOrderRequest) (*domain.Order, error)
	Delete(ctx context.Context, tenantID string, id uint) error
	Stats(ctx context.Context, tenantID string, margin *decimal.Decimal) (*domain.OrderStats, error)
}

type OrderController struct {
	place  PlaceOrderUseCase
	manage ManageOrderUseCase
	logger *zap.Logger
}

func NewOrderController(place PlaceOrderUseCase, manage ManageOrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		place:  place,
		manage: manage,
		logger: logger,
	}
}

// CreateOrder serves POST /orders.
func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateOrderRequest
	if err := httpio.DecodeAndValidate(r, &req); err != nil {
		logger.Warn("invalid create order request", zap.Error(err))
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	logger = logger.With(zap.String("tenantId", req.TenantID))

	order, err := c.place.PlaceOrder(r.Context(), req)
	if err != nil {
		c.logFailure(logger, "place order failed", err)
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	logger.Info("order created", zap.Uint("orderId", order.ID))
	httpio.WriteJSON(w, http.StatusCreated, dto.ToOrderResponse(*order, lifecycle.AllowedTransitions(order.Status)), logger)
}

// ListOrders serves GET /stores/{tenantId}/orders.
func (c *OrderController) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := tenantParam(r)
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	filter, err := parseListFilter(r)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	orders, err := c.manage.List(r.Context(), tenantID, filter)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	resp := dto.OrderListResponse{
		Orders: make([]dto.OrderResponse, 0, len(orders)),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, dto.ToOrderResponse(o, nil))
	}
	httpio.WriteJSON(w, http.StatusOK, resp, logger)
}

// GetOrder serves GET /stores/{tenantId}/orders/{orderId}.
func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := tenantParam(r)
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	orderID, err := orderIDParam(r)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	order, err := c.manage.Get(r.Context(), tenantID, orderID)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, dto.ToOrderResponse(*order, lifecycle.AllowedTransitions(order.Status)), logger)
}

// UpdateOrder serves PUT /stores/{tenantId}/orders/{orderId}.
func (c *OrderController) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := tenantParam(r)
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	orderID, err := orderIDParam(r)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	logger = logger.With(zap.Uint("orderId", orderID))

	var req dto.UpdateOrderRequest
	if err := httpio.DecodeAndValidate(r, &req); err != nil {
		logger.Warn("invalid update order request", zap.Error(err))
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	order, err := c.manage.Update(r.Context(), tenantID, orderID, req)
	if err != nil {
		c.logFailure(logger, "update order failed", err)
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, dto.ToOrderResponse(*order, lifecycle.AllowedTransitions(order.Status)), logger)
}

// DeleteOrder serves DELETE /stores/{tenantId}/orders/{orderId}.
func (c *OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := tenantParam(r)
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	orderID, err := orderIDParam(r)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	if err := c.manage.Delete(r.Context(), tenantID, orderID); err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OrderStats serves GET /stores/{tenantId}/orders/stats?margin=0.25.
func (c *OrderController) OrderStats(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := tenantParam(r)
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	var margin *decimal.Decimal
	if raw := strings.TrimSpace(r.URL.Query().Get("margin")); raw != "" {
		m, err := decimal.NewFromString(raw)
		if err != nil {
			httpio.WriteError(w, traceID, apperrors.NewValidationError("invalid query parameter", apperrors.ValidationDetail{
				Field:   "margin",
				Message: "margin must be a decimal between 0 and 1",
			}), logger)
			return
		}
		margin = &m
	}

	stats, err := c.manage.Stats(r.Context(), tenantID, margin)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, dto.ToStatsResponse(*stats), logger)
}

// Quote serves POST /stores/{tenantId}/quote.
func (c *OrderController) Quote(w http.ResponseWriter, r *http.Request) {
	traceID := httpio.TraceID(r.Context())
	tenantID := tenantParam(r)
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("tenantId", tenantID))

	var req dto.QuoteRequest
	if err := httpio.DecodeAndValidate(r, &req); err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}

	quote, err := c.place.Quote(r.Context(), tenantID, req)
	if err != nil {
		httpio.WriteError(w, traceID, err, logger)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, quote, logger)
}

func (c *OrderController) logFailure(logger *zap.Logger, msg string, err error) {
	if _, ok := apperrors.IsStockError(err); ok {
		logger.Warn(msg, zap.Error(err))
		return
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		logger.Warn(msg, zap.Error(err))
		return
	}
	if _, ok := apperrors.IsTransitionError(err); ok {
		logger.Warn(msg, zap.Error(err))
	}
}

func tenantParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "tenantId"))
}

func orderIDParam(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "orderId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
	}
	return uint(id), nil
}

func parseListFilter(r *http.Request) (domain.OrderFilter, error) {
	limit, err := httpio.QueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		return domain.OrderFilter{}, err
	}
	offset, err := httpio.QueryInt(r, "offset", 0, 0, 1_000_000)
	if err != nil {
		return domain.OrderFilter{}, err
	}

	filter := domain.OrderFilter{Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			return domain.OrderFilter{}, apperrors.NewValidationError("invalid query parameter", apperrors.ValidationDetail{
				Field:   "status",
				Message: "status must be one of pending, confirmed, shipped, delivered, cancelled",
			})
		}
		filter.Status = &status
	}
	return filter, nil
}
