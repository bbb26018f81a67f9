package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	orderrepo "storefront/internal/order/repository"
	productrepo "storefront/internal/product/repository"
	"storefront/internal/testutil"
)

func intPtr(i int) *int {
	return &i
}

type mockTransactionManager struct {
	BeginTxFunc func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func (m *mockTransactionManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return m.BeginTxFunc(ctx, opts)
}

// Unit Tests

func TestAggregateDemand_SortsAndMerges(t *testing.T) {
	got := aggregateDemand([]domain.OrderItem{
		{ProductID: "p3", Quantity: 1},
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p3", Quantity: 4},
	})

	require.Len(t, got, 2)
	assert.Equal(t, demand{productID: "p1", quantity: 2}, got[0])
	assert.Equal(t, demand{productID: "p3", quantity: 5}, got[1])
}

func TestCheckStock(t *testing.T) {
	tests := []struct {
		name    string
		product *domain.Product
		qty     int
		reason  apperrors.StockFailureReason
		ok      bool
	}{
		{name: "missing product", product: nil, qty: 1, reason: apperrors.ReasonNotFound},
		{name: "inactive", product: &domain.Product{IsActive: false}, qty: 1, reason: apperrors.ReasonProductInactive},
		{name: "untracked product", product: &domain.Product{IsActive: true, TrackStock: false}, qty: 50, ok: true},
		{name: "tracked without stock value", product: &domain.Product{IsActive: true, TrackStock: true}, qty: 50, ok: true},
		{name: "out of stock", product: &domain.Product{IsActive: true, TrackStock: true, Stock: intPtr(0)}, qty: 1, reason: apperrors.ReasonOutOfStock},
		{name: "insufficient", product: &domain.Product{IsActive: true, TrackStock: true, Stock: intPtr(2)}, qty: 3, reason: apperrors.ReasonInsufficientAvailable},
		{name: "exact stock", product: &domain.Product{IsActive: true, TrackStock: true, Stock: intPtr(3)}, qty: 3, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure := checkStock(tt.product, demand{productID: "p1", quantity: tt.qty})
			if tt.ok {
				assert.Nil(t, failure)
				return
			}
			require.NotNil(t, failure)
			assert.Equal(t, tt.reason, failure.Reason)
			assert.Equal(t, "p1", failure.ProductID)
			assert.Equal(t, tt.qty, failure.Quantity)
		})
	}
}

func TestCheckPrices(t *testing.T) {
	catalog := map[string]*domain.Product{
		"p1": {ID: "p1", Price: decimal.RequireFromString("250.00")},
		"p2": {ID: "p2", Price: decimal.NewFromInt(80)},
		"p3": nil,
	}

	err := checkPrices([]domain.OrderItem{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(250), Quantity: 1},
		{ProductID: "p2", UnitPrice: decimal.NewFromInt(80), Quantity: 2},
		{ProductID: "p3", UnitPrice: decimal.NewFromInt(1), Quantity: 1},
	}, catalog)
	assert.NoError(t, err)

	err = checkPrices([]domain.OrderItem{
		{ProductID: "p2", UnitPrice: decimal.NewFromInt(80), Quantity: 1},
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(1), Quantity: 1},
	}, catalog)
	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	require.Len(t, ve.Details, 1)
	assert.Equal(t, "items[1].price", ve.Details[0].Field)
	assert.Contains(t, ve.Details[0].Message, "250.00")
}

func TestPlace_BeginTxError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewOrderService(&mockTransactionManager{
		BeginTxFunc: func(context.Context, *sql.TxOptions) (*sql.Tx, error) {
			return nil, boom
		},
	}, nil, nil, nil, zap.NewNop(), time.Second)

	order, err := svc.Place(context.Background(), domain.Order{TenantID: "shop-a"}, true)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, boom)
}

func TestNewOrderService_DefaultTimeout(t *testing.T) {
	svc := NewOrderService(nil, nil, nil, nil, zap.NewNop(), 0)
	assert.Equal(t, 5*time.Second, svc.txTimeout)
}

// Integration Tests

func newIntegrationService(db *sql.DB) *OrderService {
	return NewOrderService(
		db,
		productrepo.NewMySQLRepository(db),
		orderrepo.NewMySQLOrderItemRepository(db),
		orderrepo.NewMySQLOrderRepository(db),
		zap.NewNop(),
		5*time.Second,
	)
}

func seedProduct(t *testing.T, db *sql.DB, tenantID, id string, stock *int, active bool) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO Product (id, tenantId, name, price, stock, isActive, trackStock)
		VALUES (?, ?, ?, 100.00, ?, ?, 1)`, id, tenantID, "Product "+id, stock, active)
	require.NoError(t, err)
}

func productStock(t *testing.T, db *sql.DB, tenantID, id string) int {
	t.Helper()
	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM Product WHERE tenantId = ? AND id = ?`, tenantID, id).Scan(&stock))
	return stock
}

func newOrder(tenantID string, items ...domain.OrderItem) domain.Order {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Order{
		TenantID:      tenantID,
		Customer:      domain.Customer{Name: "Karim", Phone: "01800000000", Address: "Road 5", Division: "Dhaka"},
		Items:         items,
		Breakdown:     domain.PriceBreakdown{SubTotal: decimal.NewFromInt(200), Total: decimal.NewFromInt(200), Remaining: decimal.NewFromInt(200)},
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentCashOnDelivery,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPlace_DecrementsStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	seedProduct(t, db, "shop-a", "p1", intPtr(5), true)
	svc := newIntegrationService(db)

	placed, err := svc.Place(context.Background(), newOrder("shop-a",
		domain.OrderItem{ProductID: "p1", Name: "Tea", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
	), true)
	require.NoError(t, err)
	assert.NotZero(t, placed.ID)
	require.Len(t, placed.Items, 1)
	assert.Equal(t, placed.ID, placed.Items[0].OrderID)
	assert.NotZero(t, placed.Items[0].ID)
	assert.Equal(t, 3, productStock(t, db, "shop-a", "p1"))
}

func TestPlace_RejectsWholeOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	seedProduct(t, db, "shop-a", "p1", intPtr(5), true)
	seedProduct(t, db, "shop-a", "p2", intPtr(1), true)
	seedProduct(t, db, "shop-a", "p3", intPtr(9), false)
	svc := newIntegrationService(db)

	_, err := svc.Place(context.Background(), newOrder("shop-a",
		domain.OrderItem{ProductID: "p1", Quantity: 1},
		domain.OrderItem{ProductID: "p2", Quantity: 2},
		domain.OrderItem{ProductID: "p3", Quantity: 1},
		domain.OrderItem{ProductID: "missing", Quantity: 1},
	), true)

	stockErr, ok := apperrors.IsStockError(err)
	require.True(t, ok)
	reasons := map[string]apperrors.StockFailureReason{}
	for _, f := range stockErr.Failures {
		reasons[f.ProductID] = f.Reason
	}
	assert.Equal(t, map[string]apperrors.StockFailureReason{
		"p2":      apperrors.ReasonInsufficientAvailable,
		"p3":      apperrors.ReasonProductInactive,
		"missing": apperrors.ReasonNotFound,
	}, reasons)

	assert.Equal(t, 5, productStock(t, db, "shop-a", "p1"))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Orders`).Scan(&count))
	assert.Zero(t, count)
}

func TestPlace_RejectsTamperedPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	seedProduct(t, db, "shop-a", "p1", intPtr(5), true)
	svc := newIntegrationService(db)

	_, err := svc.Place(context.Background(), newOrder("shop-a",
		domain.OrderItem{ProductID: "p1", Name: "Tea", UnitPrice: decimal.NewFromInt(1), Quantity: 2},
	), true)
	_, ok := apperrors.IsValidationError(err)
	require.True(t, ok)

	assert.Equal(t, 5, productStock(t, db, "shop-a", "p1"))
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Orders`).Scan(&count))
	assert.Zero(t, count)
}

func TestPlace_WithoutStockTracking(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	svc := newIntegrationService(db)

	placed, err := svc.Place(context.Background(), newOrder("shop-a",
		domain.OrderItem{ProductID: "not-in-catalog", Name: "Gift", UnitPrice: decimal.NewFromInt(50), Quantity: 1},
	), false)
	require.NoError(t, err)
	assert.NotZero(t, placed.ID)
}

func TestSave_BumpsVersion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	svc := newIntegrationService(db)
	ctx := context.Background()

	placed, err := svc.Place(ctx, newOrder("shop-a", domain.OrderItem{ProductID: "x", Name: "X", UnitPrice: decimal.NewFromInt(200), Quantity: 1}), false)
	require.NoError(t, err)

	edited := placed.Clone()
	edited.Status = domain.OrderStatusConfirmed
	saved, err := svc.Save(ctx, edited, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)

	_, err = svc.Save(ctx, edited, 1)
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}
