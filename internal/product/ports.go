package product

import (
	"context"
	"database/sql"

	"storefront/internal/domain"
)

type CatalogService interface {
	Lookup(ctx context.Context, tenantID string, ids []string) (*LookupProductsResponse, error)
	CheckCart(ctx context.Context, tenantID string, lines []CartLine) (*CheckCartResponse, error)
}

type Repository interface {
	FindByIDsAndTenant(ctx context.Context, ids []string, tenantID string) ([]domain.Product, error)
}

// StockRepository is the locking surface used while an order is placed.
type StockRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, productID string, tenantID string) (*domain.Product, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, productID string, tenantID string, quantity int) error
}
