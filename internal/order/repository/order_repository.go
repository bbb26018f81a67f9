package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/errors"
)

const orderColumns = `id, tenantId, customerName, customerPhone, customerAddress, customerEmail,
	customerDivision, customerDistrict, subTotal, vat, deliveryCharge, total, advancePaid,
	remaining, expressDelivery, status, paymentMethod, note, version, createdAt, updatedAt`

type MySQLOrderRepository struct {
	db    *sql.DB
	items *MySQLOrderItemRepository
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db, items: NewMySQLOrderItemRepository(db)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o     domain.Order
		email sql.NullString
		note  sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.TenantID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address, &email,
		&o.Customer.Division, &o.Customer.District,
		&o.Breakdown.SubTotal, &o.Breakdown.VAT, &o.Breakdown.DeliveryCharge, &o.Breakdown.Total,
		&o.Breakdown.AdvancePaid, &o.Breakdown.Remaining,
		&o.ExpressDelivery, &o.Status, &o.PaymentMethod, &note, &o.Version,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if email.Valid {
		o.Customer.Email = &email.String
	}
	if note.Valid {
		o.Note = &note.String
	}
	return o, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Create inserts the order row only; items are inserted separately in the
// same transaction.
func (r *MySQLOrderRepository) Create(ctx context.Context, tx *sql.Tx, order domain.Order) (uint, error) {
	query := `
		INSERT INTO Orders (
			tenantId, customerName, customerPhone, customerAddress, customerEmail,
			customerDivision, customerDistrict, subTotal, vat, deliveryCharge, total,
			advancePaid, remaining, expressDelivery, status, paymentMethod, note, version,
			createdAt, updatedAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	version := order.Version
	if version < 1 {
		version = 1
	}

	result, err := tx.ExecContext(ctx, query,
		order.TenantID, order.Customer.Name, order.Customer.Phone, order.Customer.Address,
		nullString(order.Customer.Email), order.Customer.Division, order.Customer.District,
		order.Breakdown.SubTotal, order.Breakdown.VAT, order.Breakdown.DeliveryCharge,
		order.Breakdown.Total, order.Breakdown.AdvancePaid, order.Breakdown.Remaining,
		order.ExpressDelivery, string(order.Status), string(order.PaymentMethod),
		nullString(order.Note), version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, tenantID string, id uint) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM Orders WHERE id = ? AND tenantId = ?`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, []uint{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return &order, nil
}

// ListByTenant returns the tenant's orders newest first, each with its items.
func (r *MySQLOrderRepository) ListByTenant(ctx context.Context, tenantID string, filter domain.OrderFilter) ([]domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM Orders WHERE tenantId = ?`, orderColumns)
	args := []any{tenantID}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY createdAt DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	ids := []uint{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}

	return orders, nil
}

// Update writes status and financial columns when the stored version still
// equals expectedVersion, then bumps it. A missing row is NotFound; a
// version mismatch is a Conflict.
func (r *MySQLOrderRepository) Update(ctx context.Context, tx *sql.Tx, order domain.Order, expectedVersion int) error {
	query := `
		UPDATE Orders
		SET customerDivision = ?, customerDistrict = ?, vat = ?, deliveryCharge = ?,
		    total = ?, advancePaid = ?, remaining = ?, status = ?, updatedAt = ?,
		    version = version + 1
		WHERE id = ? AND tenantId = ? AND version = ?`

	result, err := tx.ExecContext(ctx, query,
		order.Customer.Division, order.Customer.District,
		order.Breakdown.VAT, order.Breakdown.DeliveryCharge, order.Breakdown.Total,
		order.Breakdown.AdvancePaid, order.Breakdown.Remaining,
		string(order.Status), order.UpdatedAt,
		order.ID, order.TenantID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var current int
	err = tx.QueryRowContext(ctx, `SELECT version FROM Orders WHERE id = ? AND tenantId = ?`, order.ID, order.TenantID).Scan(&current)
	if err == sql.ErrNoRows {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", order.ID))
	}
	if err != nil {
		return fmt.Errorf("reading order version: %w", err)
	}
	return errors.NewConflictError(fmt.Sprintf("order %d was modified concurrently (version %d, expected %d)", order.ID, current, expectedVersion))
}

// Delete removes the order; its items go with it through the foreign key.
func (r *MySQLOrderRepository) Delete(ctx context.Context, tenantID string, id uint) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM Orders WHERE id = ? AND tenantId = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	return nil
}

func (r *MySQLOrderRepository) SummaryByStatus(ctx context.Context, tenantID string, since time.Time) ([]domain.StatusSummary, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)
		FROM Orders
		WHERE tenantId = ? AND createdAt >= ?
		GROUP BY status
		ORDER BY status`

	rows, err := r.db.QueryContext(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("summarizing orders: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusSummary
	for rows.Next() {
		var s domain.StatusSummary
		if err := rows.Scan(&s.Status, &s.Count, &s.Total); err != nil {
			return nil, fmt.Errorf("scanning order summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order summary: %w", err)
	}
	return out, nil
}
