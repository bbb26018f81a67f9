package settings

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

type Repository interface {
	FindByTenant(ctx context.Context, tenantID string) (*domain.DeliverySettings, error)
	Upsert(ctx context.Context, settings domain.DeliverySettings) error
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ForTenant returns the tenant's delivery settings, falling back to defaults
// when the tenant never configured any.
func (s *Service) ForTenant(ctx context.Context, tenantID string) (domain.DeliverySettings, error) {
	found, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			s.logger.Debug("no delivery settings, using defaults", zap.String("tenantId", tenantID))
			return domain.DefaultDeliverySettings(tenantID), nil
		}
		return domain.DeliverySettings{}, err
	}
	if strings.TrimSpace(found.InsideDivision) == "" {
		found.InsideDivision = domain.DefaultInsideDivision
	}
	return *found, nil
}

// Update validates and stores req, returning the resulting settings.
func (s *Service) Update(ctx context.Context, tenantID string, req UpdateSettingsRequest) (domain.DeliverySettings, error) {
	if err := validateUpdate(req); err != nil {
		return domain.DeliverySettings{}, err
	}

	current, err := s.ForTenant(ctx, tenantID)
	if err != nil {
		return domain.DeliverySettings{}, err
	}

	current.InsideRegionCharge = req.InsideRegionCharge
	current.OutsideRegionCharge = req.OutsideRegionCharge
	current.FreeDeliveryMinimum = req.FreeDeliveryMinimum
	current.ExpressCharge = req.ExpressCharge
	if req.VATRate != nil {
		current.VATRate = *req.VATRate
	}
	if req.InsideDivision != nil {
		current.InsideDivision = strings.TrimSpace(*req.InsideDivision)
	}
	if req.TrackStock != nil {
		current.TrackStock = *req.TrackStock
	}

	if err := s.repo.Upsert(ctx, current); err != nil {
		return domain.DeliverySettings{}, err
	}

	s.logger.Info("delivery settings updated", zap.String("tenantId", tenantID))
	return s.ForTenant(ctx, tenantID)
}

var maxVATRate = decimal.NewFromInt(100)

func validateUpdate(req UpdateSettingsRequest) error {
	var details []apperrors.ValidationDetail

	nonNegative := func(field string, v *decimal.Decimal) {
		if v != nil && v.IsNegative() {
			details = append(details, apperrors.ValidationDetail{
				Field:   field,
				Message: field + " must be non-negative",
			})
		}
	}
	nonNegative("insideRegionCharge", &req.InsideRegionCharge)
	nonNegative("outsideRegionCharge", &req.OutsideRegionCharge)
	nonNegative("freeDeliveryMinimum", req.FreeDeliveryMinimum)
	nonNegative("expressCharge", req.ExpressCharge)

	if req.VATRate != nil && (req.VATRate.IsNegative() || req.VATRate.GreaterThan(maxVATRate)) {
		details = append(details, apperrors.ValidationDetail{
			Field:   "vatRate",
			Message: "vatRate must be between 0 and 100",
		})
	}
	if req.InsideDivision != nil && strings.TrimSpace(*req.InsideDivision) == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "insideDivision",
			Message: "insideDivision must not be blank",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}
