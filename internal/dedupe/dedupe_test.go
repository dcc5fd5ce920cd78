package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithoutRedisEverythingIsNew(t *testing.T) {
	d := New(NewClient("", ""), 0)
	assert.Equal(t, DefaultTTL, d.ttl)

	for i := 0; i < 2; i++ {
		first, err := d.Claim(context.Background(), "m-1")
		require.NoError(t, err)
		assert.True(t, first)
	}
	assert.NoError(t, d.Release(context.Background(), "m-1"))
	assert.NoError(t, d.Close())
}

func TestUnreachableRedisReportsError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	d := New(rdb, time.Minute)
	defer d.Close()

	_, err := d.Claim(context.Background(), "m-1")
	assert.Error(t, err)
}
