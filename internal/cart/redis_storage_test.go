package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) CartKey(key string) string {
	return "sf:cart:" + key
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	storage := NewRedisStorage(kv, time.Hour)

	data, err := storage.Load(ctx, "cart_shop-a")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, storage.Save(ctx, "cart_shop-a", []byte(`[]`)))
	assert.Equal(t, time.Hour, kv.ttls["sf:cart:cart_shop-a"])

	data, err = storage.Load(ctx, "cart_shop-a")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	require.NoError(t, storage.Delete(ctx, "cart_shop-a"))
	assert.Empty(t, kv.data)
}

func TestRedisStorage_SharedAcrossStores(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	first := NewStore(NewRedisStorage(kv, 0), nil, zap.NewNop())
	first.Activate(ctx, "shop-a")
	require.NoError(t, first.Add(ctx, item("p-1", 30, 2)))

	second := NewStore(NewRedisStorage(kv, 0), nil, zap.NewNop())
	items := second.Tenant("shop-a").Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}
