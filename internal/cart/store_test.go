package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/tenant"
)

func item(id string, price int64, qty int) domain.LineItem {
	return domain.LineItem{ID: id, Name: "item " + id, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

func newTestStore(t *testing.T) (*Store, *tenant.Resolver, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	resolver := tenant.NewResolver()
	return NewStore(storage, resolver, zap.NewNop()), resolver, storage
}

func TestStore_AddIsIdempotentOnID(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)
	resolver.Navigate("/shop-a")

	require.NoError(t, store.Add(ctx, item("p-1", 100, 2)))
	require.NoError(t, store.Add(ctx, item("p-1", 100, 3)))

	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestStore_AddDefaultsQuantityToOne(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)
	resolver.Navigate("/shop-a")

	require.NoError(t, store.Add(ctx, item("p-1", 100, 0)))
	require.NoError(t, store.Add(ctx, item("p-2", 50, -4)))

	items := store.Items(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, "p-1", items[0].ID)
	assert.Equal(t, "p-2", items[1].ID)
}

func TestStore_AddRejectsInvalidItems(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)
	resolver.Navigate("/shop-a")

	err := store.Add(ctx, item("", 100, 1))
	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)

	err = store.Add(ctx, item("p-1", -1, 1))
	_, ok = apperrors.IsValidationError(err)
	assert.True(t, ok)

	assert.Empty(t, store.Items(ctx))
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)
	resolver.Navigate("/shop-a")
	require.NoError(t, store.Add(ctx, item("p-1", 100, 2)))
	require.NoError(t, store.Add(ctx, item("p-2", 40, 1)))

	require.NoError(t, store.UpdateQuantity(ctx, "p-1", 7))
	assert.Equal(t, 7, store.Items(ctx)[0].Quantity)

	require.NoError(t, store.UpdateQuantity(ctx, "p-1", 0))
	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "p-2", items[0].ID)

	require.NoError(t, store.UpdateQuantity(ctx, "p-2", -3))
	assert.Empty(t, store.Items(ctx))

	require.NoError(t, store.UpdateQuantity(ctx, "missing", 4))
	assert.Empty(t, store.Items(ctx))
}

func TestStore_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store, resolver, storage := newTestStore(t)
	resolver.Navigate("/shop-a")
	require.NoError(t, store.Add(ctx, item("p-1", 100, 1)))
	require.NoError(t, store.Add(ctx, item("p-2", 100, 1)))

	require.NoError(t, store.Remove(ctx, "absent"))
	assert.Len(t, store.Items(ctx), 2)

	require.NoError(t, store.Remove(ctx, "p-1"))
	assert.Len(t, store.Items(ctx), 1)

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.Items(ctx))

	raw, err := storage.Load(ctx, Key("shop-a"))
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestStore_SubtractKeepsUnorderedQuantities(t *testing.T) {
	ctx := context.Background()
	store, _, storage := newTestStore(t)
	shop := store.Tenant("shop-a")

	require.NoError(t, shop.Add(ctx, item("p-1", 100, 2)))
	require.NoError(t, shop.Add(ctx, item("p-2", 50, 3)))
	require.NoError(t, shop.Add(ctx, item("p-3", 10, 1)))

	require.NoError(t, shop.Subtract(ctx, []domain.LineItem{item("p-1", 100, 2), item("p-2", 50, 1)}))

	items := shop.Items(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, "p-2", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "p-3", items[1].ID)

	require.NoError(t, shop.Subtract(ctx, items))
	assert.Empty(t, shop.Items(ctx))
	_, ok := storage.data[Key("shop-a")]
	assert.False(t, ok)
}

func TestStore_Subtotal(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)
	resolver.Navigate("/shop-a")
	require.NoError(t, store.Add(ctx, domain.LineItem{ID: "p-1", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2}))
	require.NoError(t, store.Add(ctx, item("p-2", 100, 3)))

	assert.True(t, store.Subtotal(ctx).Equal(decimal.RequireFromString("325")))
}

func TestStore_TenantIsolationAndRestore(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)

	resolver.Navigate("/shop-a/products/1")
	require.NoError(t, store.Add(ctx, item("a-1", 100, 2)))

	resolver.Navigate("/shop-b")
	assert.Empty(t, store.Items(ctx))
	require.NoError(t, store.Add(ctx, item("b-1", 10, 1)))

	resolver.Navigate("/shop-a/cart")
	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "a-1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)

	bItems := store.Tenant("shop-b").Items(ctx)
	require.Len(t, bItems, 1)
	assert.Equal(t, "b-1", bItems[0].ID)
}

func TestStore_NonActiveWritesDoNotDisturbVisibleCart(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)
	resolver.Navigate("/shop-a")
	require.NoError(t, store.Add(ctx, item("a-1", 100, 1)))

	other := store.Tenant("shop-b")
	require.NoError(t, other.Add(ctx, item("b-1", 5, 4)))

	visible := store.Items(ctx)
	require.Len(t, visible, 1)
	assert.Equal(t, "a-1", visible[0].ID)

	resolver.Navigate("/shop-b")
	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestStore_ActiveHandleFollowsNavigation(t *testing.T) {
	ctx := context.Background()
	store, resolver, _ := newTestStore(t)
	active := store.Active()

	resolver.Navigate("/shop-a")
	require.NoError(t, active.Add(ctx, item("a-1", 1, 1)))
	resolver.Navigate("/shop-b")
	require.NoError(t, active.Add(ctx, item("b-1", 1, 1)))

	assert.Equal(t, "shop-b", store.ActiveTenant())
	assert.Len(t, store.Tenant("shop-a").Items(ctx), 1)
	assert.Len(t, store.Tenant("shop-b").Items(ctx), 1)
}

func TestStore_UnsetTenantIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store, _, storage := newTestStore(t)

	require.NoError(t, store.Add(ctx, item("p-1", 10, 1)))
	assert.Len(t, store.Items(ctx), 1)
	assert.Empty(t, storage.data)
}

func TestStore_CorruptDataYieldsEmptyCart(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, Key("shop-a"), []byte("{not json")))

	resolver := tenant.NewResolver()
	store := NewStore(storage, resolver, zap.NewNop())
	resolver.Navigate("/shop-a")

	assert.Empty(t, store.Items(ctx))
	require.NoError(t, store.Add(ctx, item("p-1", 10, 1)))
	assert.Len(t, store.Items(ctx), 1)
}

func TestStore_NormalizesPersistedDuplicates(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	raw := `[{"id":"p-1","name":"Mug","price":"10","quantity":1},
		{"id":"p-1","name":"Mug","price":"10","quantity":2},
		{"id":"p-2","name":"Cap","price":"5","quantity":0}]`
	require.NoError(t, storage.Save(ctx, Key("shop-a"), []byte(raw)))

	store := NewStore(storage, nil, zap.NewNop())
	store.Activate(ctx, "shop-a")

	items := store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestStore_SurvivesReloadFromFileStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := NewFileStorage(dir)
	require.NoError(t, err)
	first := NewStore(fs, nil, zap.NewNop())
	first.Activate(ctx, "shop-a")
	require.NoError(t, first.Add(ctx, item("p-1", 250, 2)))
	require.NoError(t, first.Add(ctx, item("p-2", 100, 1)))

	reopened, err := NewFileStorage(dir)
	require.NoError(t, err)
	second := NewStore(reopened, nil, zap.NewNop())
	second.Activate(ctx, "shop-a")

	items := second.Items(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, "p-1", items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(250)))
}

type failingStorage struct {
	*MemoryStorage
}

func (f *failingStorage) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_SaveFailureLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{MemoryStorage: NewMemoryStorage()}
	store := NewStore(storage, nil, zap.NewNop())
	store.Activate(ctx, "shop-a")

	err := store.Add(ctx, item("p-1", 10, 1))
	assert.Error(t, err)
	assert.Empty(t, store.Items(ctx))
}
