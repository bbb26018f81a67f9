package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/order/lifecycle"
)

type OrderRepository interface {
	FindByID(ctx context.Context, tenantID string, id uint) (*domain.Order, error)
	ListByTenant(ctx context.Context, tenantID string, filter domain.OrderFilter) ([]domain.Order, error)
	Delete(ctx context.Context, tenantID string, id uint) error
	SummaryByStatus(ctx context.Context, tenantID string, since time.Time) ([]domain.StatusSummary, error)
}

type OrderSaver interface {
	Save(ctx context.Context, order domain.Order, expectedVersion int) (*domain.Order, error)
}

type ManageOrderUseCase struct {
	orders       OrderRepository
	saver        OrderSaver
	settings     SettingsProvider
	recorder     Recorder
	logger       *zap.Logger
	profitMargin decimal.Decimal
	now          func() time.Time
}

func NewManageOrderUseCase(
	orders OrderRepository,
	saver OrderSaver,
	settings SettingsProvider,
	recorder Recorder,
	logger *zap.Logger,
	profitMargin decimal.Decimal,
) *ManageOrderUseCase {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &ManageOrderUseCase{
		orders:       orders,
		saver:        saver,
		settings:     settings,
		recorder:     recorder,
		logger:       logger,
		profitMargin: profitMargin,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ManageOrderUseCase) Get(ctx context.Context, tenantID string, id uint) (*domain.Order, error) {
	return uc.orders.FindByID(ctx, tenantID, id)
}

func (uc *ManageOrderUseCase) List(ctx context.Context, tenantID string, filter domain.OrderFilter) ([]domain.Order, error) {
	return uc.orders.ListByTenant(ctx, tenantID, filter)
}

// Update applies the financial edit and then the status change to one
// loaded snapshot and persists both at once.
func (uc *ManageOrderUseCase) Update(ctx context.Context, tenantID string, id uint, req dto.UpdateOrderRequest) (*domain.Order, error) {
	edit := lifecycle.FinancialEdit{
		Division:       req.CustomerDivision,
		District:       req.CustomerDistrict,
		DeliveryCharge: req.DeliveryCharge,
		AdvancePayment: req.AdvancePayment,
	}
	if req.Status == nil && edit.IsEmpty() {
		return nil, apperrors.NewValidationError("nothing to update", apperrors.ValidationDetail{
			Field:   "body",
			Message: "status or a financial field is required",
		})
	}

	logger := uc.logger.With(zap.String("tenantId", tenantID), zap.Uint("orderId", id))

	current, err := uc.orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != current.Version {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %d is at version %d, not %d", id, current.Version, *req.Version))
	}

	now := uc.now()
	updated := *current

	if !edit.IsEmpty() {
		settings, err := uc.settings.ForTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		updated, err = lifecycle.ApplyFinancials(updated, edit, settings, now)
		if err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		to := domain.OrderStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		updated, err = lifecycle.Transition(updated, to, now)
		if err != nil {
			logger.Warn("status change rejected", zap.String("from", string(current.Status)), zap.String("to", *req.Status), zap.Error(err))
			return nil, err
		}
	}

	saved, err := uc.saver.Save(ctx, updated, current.Version)
	if err != nil {
		return nil, err
	}

	if saved.Status != current.Status {
		uc.recorder.StatusChanged(string(current.Status), string(saved.Status))
		logger.Info("order status changed", zap.String("from", string(current.Status)), zap.String("to", string(saved.Status)))
	}
	return saved, nil
}

func (uc *ManageOrderUseCase) Delete(ctx context.Context, tenantID string, id uint) error {
	if err := uc.orders.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	uc.logger.Info("order deleted", zap.String("tenantId", tenantID), zap.Uint("orderId", id))
	return nil
}

// Stats summarizes the current calendar month. Revenue excludes cancelled
// orders; profit is revenue times margin and only an estimate. A nil margin
// uses the configured default.
func (uc *ManageOrderUseCase) Stats(ctx context.Context, tenantID string, margin *decimal.Decimal) (*domain.OrderStats, error) {
	m := uc.profitMargin
	if margin != nil {
		m = *margin
	}
	if m.IsNegative() || m.GreaterThan(decimal.NewFromInt(1)) {
		return nil, apperrors.NewValidationError("invalid margin", apperrors.ValidationDetail{
			Field:   "margin",
			Message: "margin must be between 0 and 1",
		})
	}

	now := uc.now()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	summary, err := uc.orders.SummaryByStatus(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	stats := &domain.OrderStats{
		TenantID:      tenantID,
		Since:         since,
		CountByStatus: map[domain.OrderStatus]int{},
		Revenue:       decimal.Zero,
		ProfitMargin:  m,
	}
	for _, s := range summary {
		stats.CountByStatus[s.Status] += s.Count
		stats.TotalOrders += s.Count
		if s.Status != domain.OrderStatusCancelled {
			stats.Revenue = stats.Revenue.Add(s.Total)
		}
	}
	stats.EstimatedProfit = stats.Revenue.Mul(m).Round(2)

	return stats, nil
}
