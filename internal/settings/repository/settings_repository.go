package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/errors"
)

type MySQLSettingsRepository struct {
	db *sql.DB
}

func NewMySQLSettingsRepository(db *sql.DB) *MySQLSettingsRepository {
	return &MySQLSettingsRepository{db: db}
}

func (r *MySQLSettingsRepository) FindByTenant(ctx context.Context, tenantID string) (*domain.DeliverySettings, error) {
	query := `
		SELECT tenantId, insideRegionCharge, outsideRegionCharge, freeDeliveryMinimum,
		       expressCharge, vatRate, insideDivision, trackStock, createdAt, updatedAt
		FROM DeliverySettings
		WHERE tenantId = ?
	`

	var (
		s           domain.DeliverySettings
		freeMinimum decimal.NullDecimal
		express     decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&s.TenantID, &s.InsideRegionCharge, &s.OutsideRegionCharge, &freeMinimum,
		&express, &s.VATRate, &s.InsideDivision, &s.TrackStock,
		&s.CreatedAt, &s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("delivery settings for tenant %s not found", tenantID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying delivery settings by tenant: %w", err)
	}

	if freeMinimum.Valid {
		s.FreeDeliveryMinimum = &freeMinimum.Decimal
	}
	if express.Valid {
		s.ExpressCharge = &express.Decimal
	}

	return &s, nil
}

func (r *MySQLSettingsRepository) Upsert(ctx context.Context, s domain.DeliverySettings) error {
	query := `
		INSERT INTO DeliverySettings (tenantId, insideRegionCharge, outsideRegionCharge,
		                              freeDeliveryMinimum, expressCharge, vatRate,
		                              insideDivision, trackStock)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			insideRegionCharge = VALUES(insideRegionCharge),
			outsideRegionCharge = VALUES(outsideRegionCharge),
			freeDeliveryMinimum = VALUES(freeDeliveryMinimum),
			expressCharge = VALUES(expressCharge),
			vatRate = VALUES(vatRate),
			insideDivision = VALUES(insideDivision),
			trackStock = VALUES(trackStock)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.TenantID, s.InsideRegionCharge, s.OutsideRegionCharge,
		nullable(s.FreeDeliveryMinimum), nullable(s.ExpressCharge), s.VATRate,
		s.InsideDivision, s.TrackStock,
	)
	if err != nil {
		return fmt.Errorf("upserting delivery settings: %w", err)
	}
	return nil
}

func nullable(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *v, Valid: true}
}
