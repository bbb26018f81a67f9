package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type ProductRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, productID string, tenantID string) (*domain.Product, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, productID string, tenantID string, quantity int) error
}

type OrderItemRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (uint, error)
}

type OrderRepository interface {
	Create(ctx context.Context, tx *sql.Tx, order domain.Order) (uint, error)
	Update(ctx context.Context, tx *sql.Tx, order domain.Order, expectedVersion int) error
}

// OrderService owns the transactional writes of the order module.
type OrderService struct {
	db            TransactionManager
	productRepo   ProductRepository
	orderItemRepo OrderItemRepository
	orderRepo     OrderRepository
	logger        *zap.Logger
	txTimeout     time.Duration
}

func NewOrderService(
	db TransactionManager,
	productRepo ProductRepository,
	orderItemRepo OrderItemRepository,
	orderRepo OrderRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *OrderService {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &OrderService{
		db:            db,
		productRepo:   productRepo,
		orderItemRepo: orderItemRepo,
		orderRepo:     orderRepo,
		logger:        logger,
		txTimeout:     txTimeout,
	}
}

// Place persists order and its items in one transaction. With trackStock set,
// every product row is locked and checked first; any failing line rejects
// the whole order with a StockError and nothing is written.
func (s *OrderService) Place(ctx context.Context, order domain.Order, trackStock bool) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	// MySQL ignores rollback after commit.
	defer tx.Rollback()

	if trackStock {
		if err := s.reserveStock(txCtx, tx, order.TenantID, order.Items); err != nil {
			return nil, err
		}
	}

	orderID, err := s.orderRepo.Create(txCtx, tx, order)
	if err != nil {
		s.logger.Error("failed to insert order", zap.String("tenantId", order.TenantID), zap.Error(err))
		return nil, err
	}

	placed := order.Clone()
	placed.ID = orderID
	for i := range placed.Items {
		placed.Items[i].OrderID = orderID
		itemID, err := s.orderItemRepo.Insert(txCtx, tx, placed.Items[i])
		if err != nil {
			s.logger.Error("failed to insert order item", zap.Uint("orderId", orderID), zap.String("productId", placed.Items[i].ProductID), zap.Error(err))
			return nil, err
		}
		placed.Items[i].ID = itemID
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint("orderId", orderID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order placed",
		zap.Uint("orderId", orderID),
		zap.String("tenantId", order.TenantID),
		zap.Int("itemCount", len(placed.Items)),
		zap.String("total", placed.Breakdown.Total.String()),
	)
	return &placed, nil
}

// Save writes an edited order if its stored version still equals
// expectedVersion. The returned copy carries the bumped version.
func (s *OrderService) Save(ctx context.Context, order domain.Order, expectedVersion int) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	if err := s.orderRepo.Update(txCtx, tx, order, expectedVersion); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint("orderId", order.ID), zap.Error(err))
		return nil, err
	}

	saved := order.Clone()
	saved.Version = expectedVersion + 1
	return &saved, nil
}

type demand struct {
	productID string
	quantity  int
}

// aggregateDemand sums quantities per product and sorts by product id so
// concurrent placements lock rows in the same order.
func aggregateDemand(items []domain.OrderItem) []demand {
	totals := map[string]int{}
	for _, item := range items {
		totals[item.ProductID] += item.Quantity
	}
	out := make([]demand, 0, len(totals))
	for id, qty := range totals {
		out = append(out, demand{productID: id, quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out
}

func (s *OrderService) reserveStock(ctx context.Context, tx *sql.Tx, tenantID string, items []domain.OrderItem) error {
	demands := aggregateDemand(items)

	var (
		failures  []apperrors.StockFailure
		decrement []demand
		catalog   = make(map[string]*domain.Product, len(demands))
	)
	for _, d := range demands {
		product, err := s.productRepo.FindByIDForUpdate(ctx, tx, d.productID, tenantID)
		if err != nil {
			if _, ok := apperrors.IsNotFoundError(err); !ok {
				return err
			}
			product = nil
		}
		catalog[d.productID] = product

		failure := checkStock(product, d)
		if failure != nil {
			s.logger.Warn("stock check failed",
				zap.String("tenantId", tenantID),
				zap.String("productId", d.productID),
				zap.Int("quantity", d.quantity),
				zap.String("reason", string(failure.Reason)),
			)
			failures = append(failures, *failure)
			continue
		}
		if tracksStock(product) {
			decrement = append(decrement, d)
		}
	}

	if len(failures) > 0 {
		return apperrors.NewStockError(failures...)
	}
	if err := checkPrices(items, catalog); err != nil {
		s.logger.Warn("order priced off catalog", zap.String("tenantId", tenantID), zap.Error(err))
		return err
	}

	for _, d := range decrement {
		if err := s.productRepo.DecrementStock(ctx, tx, d.productID, tenantID, d.quantity); err != nil {
			return err
		}
	}
	return nil
}

func tracksStock(p *domain.Product) bool {
	return p != nil && p.TrackStock && p.Stock != nil
}

// checkStock returns the reason a product cannot serve d, or nil.
func checkStock(p *domain.Product, d demand) *apperrors.StockFailure {
	failure := func(reason apperrors.StockFailureReason, available int) *apperrors.StockFailure {
		return &apperrors.StockFailure{
			ProductID: d.productID,
			Quantity:  d.quantity,
			Available: available,
			Reason:    reason,
		}
	}

	if p == nil {
		return failure(apperrors.ReasonNotFound, 0)
	}
	if !p.IsActive {
		return failure(apperrors.ReasonProductInactive, 0)
	}
	if !tracksStock(p) {
		return nil
	}

	available := p.AvailableStock()
	if available == 0 {
		return failure(apperrors.ReasonOutOfStock, 0)
	}
	if available < d.quantity {
		return failure(apperrors.ReasonInsufficientAvailable, available)
	}
	return nil
}

// checkPrices rejects lines whose unit price differs from the locked catalog
// row. Products absent from catalog are not checked.
func checkPrices(items []domain.OrderItem, catalog map[string]*domain.Product) error {
	var details []apperrors.ValidationDetail
	for i, item := range items {
		p := catalog[item.ProductID]
		if p == nil || item.UnitPrice.Equal(p.Price) {
			continue
		}
		details = append(details, apperrors.ValidationDetail{
			Field:   fmt.Sprintf("items[%d].price", i),
			Message: fmt.Sprintf("price of %s is %s, not %s", item.ProductID, p.Price.StringFixed(2), item.UnitPrice.StringFixed(2)),
		})
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("prices changed, refresh the cart", details...)
	}
	return nil
}
