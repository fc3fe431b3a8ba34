package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetDel(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewFromClient(rdb)
	ctx := context.Background()

	mock.ExpectSet("k", "v", time.Minute).SetVal("OK")
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	mock.ExpectGet("k").SetVal("v")
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	mock.ExpectGet("missing").RedisNil()
	_, err = c.Get(ctx, "missing")
	assert.True(t, IsNilError(err))

	mock.ExpectDel("k").SetVal(1)
	require.NoError(t, c.Del(ctx, "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushByPattern(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewFromClient(rdb)

	mock.ExpectScan(0, "ld:v1:*", 100).SetVal([]string{"ld:v1:a", "ld:v1:b"}, 0)
	mock.ExpectDel("ld:v1:a").SetVal(1)
	mock.ExpectDel("ld:v1:b").SetVal(1)

	n, err := c.FlushByPattern(context.Background(), "ld:v1:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("down"))
	assert.Error(t, NewFromClient(rdb).Ping(context.Background()))
}
