package session

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmesh/tripmesh/core"
)

func TestInMemoryStoreLifecycle(t *testing.T) {
	store := NewInMemoryStore()

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)

	require.NoError(t, store.AppendEvent("sess-1", core.NewUserMessageEvent("inv-1", "weather in Lisbon?")))
	require.NoError(t, store.ApplyDelta("sess-1", map[string]any{"destination": "Lisbon"}))

	sess, err = store.Get("sess-1")
	require.NoError(t, err)
	assert.Len(t, sess.GetEvents(), 1)
	v, ok := sess.GetState("destination")
	require.True(t, ok)
	assert.Equal(t, "Lisbon", v)

	// Clones must not leak internal state
	sess.SetState("destination", "Porto")
	fresh, err := store.Get("sess-1")
	require.NoError(t, err)
	v, _ = fresh.GetState("destination")
	assert.Equal(t, "Lisbon", v)
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)

	_, err := store.Create("sess-1")
	require.NoError(t, err)

	ev := core.NewUserMessageEvent("inv-1", "find me a hotel in Porto")
	require.NoError(t, store.AppendEvent("sess-1", ev))
	require.NoError(t, store.ApplyDelta("sess-1", map[string]any{"trip_style": "relaxed"}))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	events := sess.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "find me a hotel in Porto", events[0].Text())
	assert.Equal(t, "user", events[0].Content.Role)

	v, ok := sess.GetState("trip_style")
	require.True(t, ok)
	assert.Equal(t, "relaxed", v)
}

func TestRedisStoreFunctionPartsSurviveEncoding(t *testing.T) {
	store := newTestRedisStore(t)

	call := core.NewFunctionCallEvent("WeatherAgent", "get_forecast", `{"location":"Lisbon","days":3}`)
	require.NoError(t, store.AppendEvent("sess-2", call))

	resp := core.NewFunctionResponseEvent("WeatherAgent", "fc1", "get_forecast", "sunny", nil)
	require.NoError(t, store.AppendEvent("sess-2", resp))

	sess, err := store.Get("sess-2")
	require.NoError(t, err)
	events := sess.GetEvents()
	require.Len(t, events, 2)

	calls := events[0].GetFunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "get_forecast", calls[0].Name)
	assert.JSONEq(t, `{"location":"Lisbon","days":3}`, calls[0].Arguments)

	responses := events[1].GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "sunny", responses[0].Response)
}

func TestRedisStoreLazyCreate(t *testing.T) {
	store := newTestRedisStore(t)
	sess, err := store.Get("missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", sess.ID)
	assert.Empty(t, sess.GetEvents())
}
