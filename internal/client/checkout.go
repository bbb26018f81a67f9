package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/httpio"
	"storefront/internal/pricing"
)

type OrderAPI interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*dto.OrderResponse, error)
	DeliverySettings(ctx context.Context, tenantID string) (domain.DeliverySettings, error)
}

// CheckoutForm is what the customer fills in at checkout.
type CheckoutForm struct {
	CustomerName     string           `json:"customerName" validate:"required,max=150"`
	CustomerPhone    string           `json:"customerPhone" validate:"required,max=30"`
	CustomerAddress  string           `json:"customerAddress" validate:"required,max=255"`
	CustomerEmail    *string          `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerDivision string           `json:"customerDivision,omitempty"`
	CustomerDistrict string           `json:"customerDistrict,omitempty"`
	ExpressDelivery  bool             `json:"expressDelivery,omitempty"`
	AdvancePayment   *decimal.Decimal `json:"advancePayment,omitempty"`
	PaymentMethod    string           `json:"paymentMethod" validate:"required,oneof=cash_on_delivery mobile_wallet bank_transfer card"`
	Note             *string          `json:"note,omitempty"`
}

type pendingSubmission struct {
	key         string
	requestHash string
}

// Checkout turns a tenant's cart into an order. One submission per tenant is
// in flight at a time; concurrent callers share its result.
type Checkout struct {
	api    OrderAPI
	carts  *cart.Store
	logger *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	pending map[string]pendingSubmission
	newKey  func() string
}

func NewCheckout(api OrderAPI, carts *cart.Store, logger *zap.Logger) *Checkout {
	return &Checkout{
		api:     api,
		carts:   carts,
		logger:  logger,
		pending: make(map[string]pendingSubmission),
		newKey:  uuid.NewString,
	}
}

// Submit places an order for tenantID's cart. The ordered lines leave the cart
// only after the server confirms the order; on any failure it is left as it was.
func (c *Checkout) Submit(ctx context.Context, tenantID string, form CheckoutForm) (*dto.OrderResponse, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, apperrors.NewValidationError("no store selected", apperrors.ValidationDetail{
			Field:   "tenantId",
			Message: "tenantId is required",
		})
	}
	if err := httpio.Validate(form); err != nil {
		return nil, err
	}

	v, err, shared := c.group.Do(tenantID, func() (any, error) {
		return c.submit(ctx, tenantID, form)
	})
	if shared {
		c.logger.Debug("checkout joined an in-flight submission", zap.String("tenantId", tenantID))
	}
	if err != nil {
		return nil, err
	}
	return v.(*dto.OrderResponse), nil
}

func (c *Checkout) submit(ctx context.Context, tenantID string, form CheckoutForm) (*dto.OrderResponse, error) {
	logger := c.logger.With(zap.String("tenantId", tenantID))
	tenantCart := c.carts.Tenant(tenantID)

	items := tenantCart.Items(ctx)
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("cart is empty", apperrors.ValidationDetail{
			Field:   "items",
			Message: "add at least one item before checking out",
		})
	}

	settings, err := c.api.DeliverySettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	advance := decimal.Zero
	if form.AdvancePayment != nil {
		advance = *form.AdvancePayment
	}
	breakdown, err := pricing.Compute(pricing.Input{
		Items:       items,
		Selection:   pricing.Selection(form.CustomerDivision, form.ExpressDelivery, settings),
		Settings:    settings,
		AdvancePaid: advance,
	})
	if err != nil {
		return nil, err
	}

	req := dto.CreateOrderRequest{
		TenantID:         tenantID,
		CustomerName:     strings.TrimSpace(form.CustomerName),
		CustomerPhone:    strings.TrimSpace(form.CustomerPhone),
		CustomerAddress:  strings.TrimSpace(form.CustomerAddress),
		CustomerEmail:    form.CustomerEmail,
		CustomerDivision: strings.TrimSpace(form.CustomerDivision),
		CustomerDistrict: strings.TrimSpace(form.CustomerDistrict),
		ExpressDelivery:  form.ExpressDelivery,
		AdvancePayment:   form.AdvancePayment,
		Items:            dto.FromLineItems(items),
		Total:            breakdown.Total,
		PaymentMethod:    form.PaymentMethod,
		Note:             form.Note,
	}

	key, err := c.idempotencyKey(tenantID, req)
	if err != nil {
		return nil, err
	}

	order, err := c.api.CreateOrder(ctx, req, key)
	if err != nil {
		logger.Warn("order submission failed, cart preserved", zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	delete(c.pending, tenantID)
	c.mu.Unlock()

	// Lines added while the request was in flight stay in the cart.
	if err := tenantCart.Subtract(ctx, items); err != nil {
		logger.Error("order placed but cart could not be updated", zap.Uint("orderId", order.ID), zap.Error(err))
	}
	logger.Info("order placed", zap.Uint("orderId", order.ID), zap.String("total", breakdown.Total.StringFixed(2)))
	return order, nil
}

// idempotencyKey reuses the tenant's previous key while the request is
// unchanged, so a manual retry after a lost response cannot create a second
// order. Any change to the request gets a fresh key.
func (c *Checkout) idempotencyKey(tenantID string, req dto.CreateOrderRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode order request: %w", err)
	}
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[tenantID]; ok && p.requestHash == hash {
		return p.key, nil
	}
	key := c.newKey()
	c.pending[tenantID] = pendingSubmission{key: key, requestHash: hash}
	return key, nil
}
