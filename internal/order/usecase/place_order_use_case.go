package usecase

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/order/lifecycle"
	"storefront/internal/pricing"
)

type SettingsProvider interface {
	ForTenant(ctx context.Context, tenantID string) (domain.DeliverySettings, error)
}

type OrderPlacer interface {
	Place(ctx context.Context, order domain.Order, trackStock bool) (*domain.Order, error)
}

// Recorder receives order outcomes; *metrics.Metrics satisfies it.
type Recorder interface {
	OrderPlaced(tenantID string)
	OrderRejected(reason string)
	StatusChanged(from, to string)
}

type noopRecorder struct{}

func (noopRecorder) OrderPlaced(string) {}
func (noopRecorder) OrderRejected(string) {}
func (noopRecorder) StatusChanged(string, string) {}

type PlaceOrderUseCase struct {
	settings         SettingsProvider
	placer           OrderPlacer
	recorder         Recorder
	logger           *zap.Logger
	maxRetryAttempts int
	now              func() time.Time
	sleep            func(time.Duration)
}

func NewPlaceOrderUseCase(
	settings SettingsProvider,
	placer OrderPlacer,
	recorder Recorder,
	logger *zap.Logger,
	maxRetryAttempts int,
) *PlaceOrderUseCase {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &PlaceOrderUseCase{
		settings:         settings,
		placer:           placer,
		recorder:         recorder,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		now:              func() time.Time { return time.Now().UTC() },
		sleep:            time.Sleep,
	}
}

// Quote prices items for tenantID without placing anything.
func (uc *PlaceOrderUseCase) Quote(ctx context.Context, tenantID string, req dto.QuoteRequest) (*dto.QuoteResponse, error) {
	items := dto.ToLineItems(req.Items)
	if err := validateLines(items); err != nil {
		return nil, err
	}

	settings, err := uc.settings.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	selection := pricing.Selection(req.CustomerDivision, req.ExpressDelivery, settings)
	breakdown, err := pricing.Compute(pricing.Input{
		Items:       items,
		Selection:   selection,
		Settings:    settings,
		AdvancePaid: req.Advance(),
	})
	if err != nil {
		return nil, err
	}

	return &dto.QuoteResponse{
		TenantID:  tenantID,
		Region:    string(selection.Region),
		Breakdown: breakdown,
	}, nil
}

// PlaceOrder recomputes the price server-side, rejects a disagreeing client
// total and places the order, retrying on deadlock.
func (uc *PlaceOrderUseCase) PlaceOrder(ctx context.Context, req dto.CreateOrderRequest) (*domain.Order, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	logger := uc.logger.With(zap.String("tenantId", tenantID))
	logger.Info("place order started", zap.Int("itemCount", len(req.Items)))

	items := dto.ToLineItems(req.Items)
	if err := validateLines(items); err != nil {
		uc.recorder.OrderRejected("validation")
		return nil, err
	}

	settings, err := uc.settings.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	division := strings.TrimSpace(req.CustomerDivision)
	breakdown, err := pricing.Compute(pricing.Input{
		Items:       items,
		Selection:   pricing.Selection(division, req.ExpressDelivery, settings),
		Settings:    settings,
		AdvancePaid: req.Advance(),
	})
	if err != nil {
		uc.recorder.OrderRejected("validation")
		return nil, err
	}

	if !req.Total.Round(2).Equal(breakdown.Total.Round(2)) {
		logger.Warn("client total mismatch",
			zap.String("clientTotal", req.Total.String()),
			zap.String("computedTotal", breakdown.Total.String()),
		)
		uc.recorder.OrderRejected("total_mismatch")
		return nil, apperrors.NewValidationError("total does not match the computed price", apperrors.ValidationDetail{
			Field:   "total",
			Message: "total must equal " + breakdown.Total.StringFixed(2),
		})
	}

	now := uc.now()
	order := domain.Order{
		TenantID: tenantID,
		Customer: domain.Customer{
			Name:     strings.TrimSpace(req.CustomerName),
			Phone:    strings.TrimSpace(req.CustomerPhone),
			Address:  strings.TrimSpace(req.CustomerAddress),
			Email:    req.CustomerEmail,
			Division: division,
			District: strings.TrimSpace(req.CustomerDistrict),
		},
		Items:           domain.SnapshotItems(items),
		Breakdown:       breakdown,
		ExpressDelivery: req.ExpressDelivery,
		Status:          lifecycle.InitialStatus,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		Note:            req.Note,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	placed, err := uc.placeWithRetry(ctx, order, settings.TrackStock, logger)
	if err != nil {
		if _, ok := apperrors.IsStockError(err); ok {
			uc.recorder.OrderRejected("out_of_stock")
		}
		if _, ok := apperrors.IsValidationError(err); ok {
			uc.recorder.OrderRejected("price_mismatch")
		}
		return nil, err
	}

	uc.recorder.OrderPlaced(tenantID)
	return placed, nil
}

func (uc *PlaceOrderUseCase) placeWithRetry(ctx context.Context, order domain.Order, trackStock bool, logger *zap.Logger) (*domain.Order, error) {
	backoff := 100 * time.Millisecond

	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		placed, err := uc.placer.Place(ctx, order, trackStock)
		if err == nil {
			return placed, nil
		}
		if !mysql.IsDeadlock(err) {
			return nil, err
		}
		if attempt == uc.maxRetryAttempts {
			break
		}

		// ±20% jitter
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", uc.maxRetryAttempts),
			zap.Duration("backoff", wait),
		)
		uc.sleep(wait)
		backoff *= 2

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	uc.recorder.OrderRejected("deadlock")
	return nil, apperrors.NewDeadlockError("order could not be placed after repeated deadlocks, try again")
}

// validateLines rejects prices the tag validator cannot express.
func validateLines(items []domain.LineItem) error {
	var details []apperrors.ValidationDetail
	for i, item := range items {
		if item.UnitPrice.IsNegative() {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(i) + "].price",
				Message: "price must be non-negative",
			})
		}
	}
	if len(items) == 0 {
		details = append(details, apperrors.ValidationDetail{Field: "items", Message: "items must contain at least 1 entries"})
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}
