package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesTopicSubscribersOnly(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	var a, b int

	_, err := hub.Subscribe(ctx, "shared-routine:A", func() { a++ })
	require.NoError(t, err)
	_, err = hub.Subscribe(ctx, "shared-routine:B", func() { b++ })
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, "shared-routine:A"))
	require.NoError(t, hub.Publish(ctx, "shared-routine:A"))

	assert.Equal(t, 2, a)
	assert.Equal(t, 0, b)
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	n := 0

	sub, err := hub.Subscribe(ctx, "t", func() { n++ })
	require.NoError(t, err)
	other, err := hub.Subscribe(ctx, "t", func() {})
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Subscribers("t"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 1, hub.Subscribers("t"))

	require.NoError(t, hub.Publish(ctx, "t"))
	assert.Equal(t, 0, n)

	require.NoError(t, other.Close())
	assert.Equal(t, 0, hub.Subscribers("t"))
}

func TestHub_HandlerMayUnsubscribe(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	var closeFn func() error
	calls := 0

	sub, err := hub.Subscribe(ctx, "t", func() {
		calls++
		_ = closeFn()
	})
	require.NoError(t, err)
	closeFn = sub.Close

	require.NoError(t, hub.Publish(ctx, "t"))
	require.NoError(t, hub.Publish(ctx, "t"))
	assert.Equal(t, 1, calls)
}
