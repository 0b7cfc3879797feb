package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := ConnectRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer rdb.Close()
}

func TestConnectRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestMailQueue_FIFO(t *testing.T) {
	mr, rdb := newTestRedis(t)
	q := NewMailQueue(rdb, "mails")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a@b.co"))
	require.NoError(t, q.Enqueue(ctx, "c@d.co"))

	list, err := mr.List("mails")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	first, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	second, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "a@b.co", first)
	assert.Equal(t, "c@d.co", second)
}

func TestMailQueue_PopEmpty(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := NewMailQueue(rdb, "mails")

	_, err := q.Pop(context.Background(), 100*time.Millisecond)
	assert.True(t, errors.Is(err, ErrEmpty), "got %v", err)
}
