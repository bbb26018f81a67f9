package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/errors"
)

const productColumns = `id, tenantId, name, price, stock, image, isActive, isDeleted, trackStock, createdAt, updatedAt`

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p     domain.Product
		stock sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Price, &stock, &p.ImageRef,
		&p.IsActive, &p.IsDeleted, &p.TrackStock,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if stock.Valid {
		v := int(stock.Int64)
		p.Stock = &v
	}
	return p, nil
}

// FindByIDsAndTenant returns the non-deleted products among ids, ordered by id.
func (r *MySQLRepository) FindByIDsAndTenant(ctx context.Context, ids []string, tenantID string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM Product
		WHERE tenantId = ?
		  AND id IN (%s)
		  AND isDeleted = 0
		ORDER BY id`,
		productColumns, strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

// FindByIDForUpdate locks the product row for the rest of tx.
func (r *MySQLRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, productID string, tenantID string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM Product
		WHERE tenantId = ? AND id = ? AND isDeleted = 0
		FOR UPDATE`, productColumns)

	p, err := scanProduct(tx.QueryRowContext(ctx, query, tenantID, productID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product %s not found", productID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product for update: %w", err)
	}

	return &p, nil
}

// DecrementStock subtracts quantity from a product whose stock covers it.
func (r *MySQLRepository) DecrementStock(ctx context.Context, tx *sql.Tx, productID string, tenantID string, quantity int) error {
	query := `
		UPDATE Product
		SET stock = stock - ?
		WHERE tenantId = ? AND id = ? AND stock >= ?`

	result, err := tx.ExecContext(ctx, query, quantity, tenantID, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrementing product stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewConflictError(fmt.Sprintf("stock for product %s changed during checkout", productID))
	}

	return nil
}
