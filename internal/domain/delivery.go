package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryRegion string

const (
	RegionUnspecified DeliveryRegion = "unspecified"
	RegionInside      DeliveryRegion = "inside"
	RegionOutside     DeliveryRegion = "outside"
)

type DeliverySelection struct {
	Region           DeliveryRegion
	ExpressRequested bool
}

const DefaultInsideDivision = "Dhaka"

// DeliverySettings is the per-tenant configuration consumed by pricing.
// Nil optional fields mean the feature is not configured.
type DeliverySettings struct {
	TenantID            string
	InsideRegionCharge  decimal.Decimal
	OutsideRegionCharge decimal.Decimal
	FreeDeliveryMinimum *decimal.Decimal
	ExpressCharge       *decimal.Decimal
	VATRate             decimal.Decimal
	InsideDivision      string
	TrackStock          bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func DefaultDeliverySettings(tenantID string) DeliverySettings {
	return DeliverySettings{
		TenantID:            tenantID,
		InsideRegionCharge:  decimal.Zero,
		OutsideRegionCharge: decimal.Zero,
		VATRate:             decimal.Zero,
		InsideDivision:      DefaultInsideDivision,
	}
}
