package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/testutil"
)

// Unit Tests

func TestNewMySQLOrderItemRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderItemRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestOrderItemRepository_FindByOrderIDs_Empty(t *testing.T) {
	repo := NewMySQLOrderItemRepository(&sql.DB{})

	got, err := repo.FindByOrderIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Integration Tests

func TestOrderItemRepository_InsertAndGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	now := time.Now().UTC()
	first := insertOrder(t, db, sampleOrder("shop-a", now))

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	second, err := NewMySQLOrderRepository(db).Create(ctx, tx, sampleOrder("shop-a", now))
	require.NoError(t, err)

	repo := NewMySQLOrderItemRepository(db)
	itemID, err := repo.Insert(ctx, tx, domain.OrderItem{
		OrderID:   second,
		ProductID: "p9",
		Name:      "Honey",
		UnitPrice: decimal.RequireFromString("99.50"),
		Quantity:  3,
	})
	require.NoError(t, err)
	assert.NotZero(t, itemID)
	require.NoError(t, tx.Commit())

	grouped, err := repo.FindByOrderIDs(ctx, []uint{first, second})
	require.NoError(t, err)
	assert.Len(t, grouped[first], 2)
	require.Len(t, grouped[second], 1)
	assert.Equal(t, "Honey", grouped[second][0].Name)
	assert.True(t, grouped[second][0].UnitPrice.Equal(decimal.RequireFromString("99.50")))
	assert.Equal(t, 3, grouped[second][0].Quantity)
}
