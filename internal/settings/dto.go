package settings

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type UpdateSettingsRequest struct {
	InsideRegionCharge  decimal.Decimal  `json:"insideRegionCharge"`
	OutsideRegionCharge decimal.Decimal  `json:"outsideRegionCharge"`
	FreeDeliveryMinimum *decimal.Decimal `json:"freeDeliveryMinimum,omitempty"`
	ExpressCharge       *decimal.Decimal `json:"expressCharge,omitempty"`
	VATRate             *decimal.Decimal `json:"vatRate,omitempty"`
	InsideDivision      *string          `json:"insideDivision,omitempty" validate:"omitempty,max=100"`
	TrackStock          *bool            `json:"trackStock,omitempty"`
}

// SettingsResponse is also the wire shape the order client decodes.
type SettingsResponse struct {
	TenantID            string           `json:"tenantId"`
	InsideRegionCharge  decimal.Decimal  `json:"insideRegionCharge"`
	OutsideRegionCharge decimal.Decimal  `json:"outsideRegionCharge"`
	FreeDeliveryMinimum *decimal.Decimal `json:"freeDeliveryMinimum,omitempty"`
	ExpressCharge       *decimal.Decimal `json:"expressCharge,omitempty"`
	VATRate             decimal.Decimal  `json:"vatRate"`
	InsideDivision      string           `json:"insideDivision"`
	TrackStock          bool             `json:"trackStock"`
	UpdatedAt           *time.Time       `json:"updatedAt,omitempty"`
}

func ToResponse(s domain.DeliverySettings) SettingsResponse {
	resp := SettingsResponse{
		TenantID:            s.TenantID,
		InsideRegionCharge:  s.InsideRegionCharge,
		OutsideRegionCharge: s.OutsideRegionCharge,
		FreeDeliveryMinimum: s.FreeDeliveryMinimum,
		ExpressCharge:       s.ExpressCharge,
		VATRate:             s.VATRate,
		InsideDivision:      s.InsideDivision,
		TrackStock:          s.TrackStock,
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

// FromResponse converts the wire shape back into domain settings.
func FromResponse(r SettingsResponse) domain.DeliverySettings {
	s := domain.DeliverySettings{
		TenantID:            r.TenantID,
		InsideRegionCharge:  r.InsideRegionCharge,
		OutsideRegionCharge: r.OutsideRegionCharge,
		FreeDeliveryMinimum: r.FreeDeliveryMinimum,
		ExpressCharge:       r.ExpressCharge,
		VATRate:             r.VATRate,
		InsideDivision:      r.InsideDivision,
		TrackStock:          r.TrackStock,
	}
	if s.InsideDivision == "" {
		s.InsideDivision = domain.DefaultInsideDivision
	}
	if r.UpdatedAt != nil {
		s.UpdatedAt = *r.UpdatedAt
	}
	return s
}
