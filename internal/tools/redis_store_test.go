package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test:"), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	id, err := store.NextOrderID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	order := Order{OrderID: id, CustomerName: "Jane Doe", DrugName: "aspirin", Status: OrderStatusPending}
	require.NoError(t, store.SaveOrder(ctx, order))

	got, err := store.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	raw, err := mr.Get("test:orders:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":1,"customer_name":"Jane Doe","drug_name":"aspirin","status":"pending"}`, raw)
}

func TestRedisStoreNotFound(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.GetOrder(context.Background(), 99)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRedisStoreSharedCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	b := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	ctx := context.Background()

	id1, err := a.NextOrderID(ctx)
	require.NoError(t, err)
	id2, err := b.NextOrderID(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
	assert.True(t, mr.Exists("voicebridge:orders:next_id"))
}

func TestRedisStoreWithDispatcher(t *testing.T) {
	store, _ := newTestRedisStore(t)
	d := NewDispatcher(Options{Orders: store})
	ctx := context.Background()

	_, err := d.Dispatch(ctx, PlaceOrder, json.RawMessage(`{"customer_name":"Jane Doe","drug_name":"nothing"}`))
	require.NoError(t, err)

	raw, err := d.Dispatch(ctx, PlaceOrder, json.RawMessage(`{"customer_name":"Jane Doe","drug_name":"Aspirin"}`))
	require.NoError(t, err)
	var order Order
	require.NoError(t, json.Unmarshal(raw, &order))
	assert.Equal(t, int64(1), order.OrderID)

	raw, err = d.Dispatch(ctx, LookupOrder, json.RawMessage(`{"order_id":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":1,"customer_name":"Jane Doe","drug_name":"Aspirin","status":"pending"}`, string(raw))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
	mr.Close()

	_, err := store.NextOrderID(context.Background())
	assert.Error(t, err)
}
