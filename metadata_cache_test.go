package authz_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	authz "github.com/goliatone/go-authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderRecord struct {
	ID     string
	Total  int
	Status string

	hidden string
}

func (r orderRecord) String() string { return r.ID + r.hidden }

func TestMetadataCache_Properties(t *testing.T) {
	t.Run("reflects exported fields of a registered type", func(t *testing.T) {
		cache := authz.NewMetadataCache()
		key := cache.Register(orderRecord{})
		require.NotEmpty(t, key)

		props, err := cache.Properties(key)
		require.NoError(t, err)
		assert.Equal(t, []authz.PropertyDescriptor{
			{Name: "ID", DataType: "string"},
			{Name: "Total", DataType: "int"},
			{Name: "Status", DataType: "string"},
		}, props)
	})

	t.Run("pointer and value samples share one key", func(t *testing.T) {
		cache := authz.NewMetadataCache()
		assert.Equal(t, cache.Register(orderRecord{}), cache.Register(&orderRecord{}))
		assert.Equal(t, authz.TypeKey(orderRecord{}), authz.TypeKey(&orderRecord{}))
	})

	t.Run("unregistered key fails", func(t *testing.T) {
		cache := authz.NewMetadataCache()

		_, err := cache.Properties("github.com/acme/nope.Missing")
		assert.Error(t, err)
	})

	t.Run("repeated lookups return the same descriptors", func(t *testing.T) {
		cache := authz.NewMetadataCache()
		key := cache.Register(orderRecord{})

		first, err := cache.Properties(key)
		require.NoError(t, err)

		second, err := cache.Properties(key)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestMetadataCache_ComputeOncePerKey(t *testing.T) {
	var calls int64

	cache := authz.NewMetadataCache(authz.WithIntrospector(func(typeKey string) ([]authz.PropertyDescriptor, error) {
		atomic.AddInt64(&calls, 1)
		return []authz.PropertyDescriptor{{Name: "ID", DataType: "string"}}, nil
	}))

	const workers = 64

	var wg sync.WaitGroup
	results := make([][]authz.PropertyDescriptor, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Properties("pkg.Order")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "introspection must run once per key")

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i], "all callers must observe the same sequence")
	}
}

func TestMetadataCache_FailureIsNotCached(t *testing.T) {
	var calls int64
	fail := errors.New("introspection blew up")

	cache := authz.NewMetadataCache(authz.WithIntrospector(func(typeKey string) ([]authz.PropertyDescriptor, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return nil, fail
		}
		return []authz.PropertyDescriptor{{Name: "ID", DataType: "string"}}, nil
	}))

	_, err := cache.Properties("pkg.Order")
	require.ErrorIs(t, err, fail)

	// the failed key was dropped; the next call retries and succeeds
	props, err := cache.Properties("pkg.Order")
	require.NoError(t, err)
	assert.Len(t, props, 1)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestMetadataCache_PropertiesOf(t *testing.T) {
	cache := authz.NewMetadataCache()

	props, err := cache.PropertiesOf(&orderRecord{})
	require.NoError(t, err)
	assert.Len(t, props, 3)
}
