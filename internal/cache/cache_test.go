package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "test", time.Minute), mr
}

type payload struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

func TestGetOrLoadMissRunsLoader(t *testing.T) {
	c, _ := newTestCache(t)

	var loads int
	var got payload
	err := c.GetOrLoad(context.Background(), "k1", &got, func(context.Context) (interface{}, error) {
		loads++
		return payload{Title: "Example", Year: 2020}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
	assert.Equal(t, payload{Title: "Example", Year: 2020}, got)
}

func TestGetOrLoadHitSkipsLoader(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var got payload
	require.NoError(t, c.GetOrLoad(ctx, "k1", &got, func(context.Context) (interface{}, error) {
		return payload{Title: "Example"}, nil
	}))

	err := c.GetOrLoad(ctx, "k1", &got, func(context.Context) (interface{}, error) {
		t.Fatal("loader ran on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Example", got.Title)
}

func TestGetOrLoadLoaderError(t *testing.T) {
	c, _ := newTestCache(t)

	var got payload
	err := c.GetOrLoad(context.Background(), "k1", &got, func(context.Context) (interface{}, error) {
		return nil, errors.New("upstream down")
	})
	assert.ErrorContains(t, err, "upstream down")

	// A failed load caches nothing; the next call tries again.
	err = c.GetOrLoad(context.Background(), "k1", &got, func(context.Context) (interface{}, error) {
		return payload{Title: "Recovered"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Recovered", got.Title)
}

func TestGetOrLoadConcurrentMissesLoadOnce(t *testing.T) {
	c, _ := newTestCache(t)

	var loads int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			var got payload
			err := c.GetOrLoad(context.Background(), "hot", &got, func(context.Context) (interface{}, error) {
				atomic.AddInt32(&loads, 1)
				time.Sleep(10 * time.Millisecond)
				return payload{Title: "Hot"}, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "Hot", got.Title)
		}()
	}
	close(start)
	wg.Wait()

	// The semaphore admits a handful of loaders, but the re-check after
	// acquisition keeps the count far below the caller count.
	assert.LessOrEqual(t, atomic.LoadInt32(&loads), int32(maxConcurrentLoads))
}

func TestCorruptEntryTreatedAsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Set("test:k1", "{not json")

	var got payload
	err := c.GetOrLoad(context.Background(), "k1", &got, func(context.Context) (interface{}, error) {
		return payload{Title: "Fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.Title)
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var got payload
	require.NoError(t, c.GetOrLoad(ctx, "k1", &got, func(context.Context) (interface{}, error) {
		return payload{Title: "One"}, nil
	}))
	require.NoError(t, c.Invalidate(ctx, "k1"))

	var loads int
	require.NoError(t, c.GetOrLoad(ctx, "k1", &got, func(context.Context) (interface{}, error) {
		loads++
		return payload{Title: "Two"}, nil
	}))
	assert.Equal(t, 1, loads)
	assert.Equal(t, "Two", got.Title)
}

func TestInvalidatePrefix(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got payload
	require.NoError(t, c.GetOrLoad(ctx, "a", &got, func(context.Context) (interface{}, error) {
		return payload{Title: "A"}, nil
	}))
	require.NoError(t, c.GetOrLoad(ctx, "b", &got, func(context.Context) (interface{}, error) {
		return payload{Title: "B"}, nil
	}))
	mr.Set("other:c", `{"title":"C"}`)

	require.NoError(t, c.InvalidatePrefix(ctx))
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("other:c"))
}
