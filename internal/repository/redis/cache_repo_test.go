package redis

import (
	"testing"

	"github.com/DRSN-tech/ecofinds/internal/repository/redis/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepo_Keys(t *testing.T) {
	r := &CacheRepo{}
	assert.Equal(t, []string{"product:1", "product:42"}, r.buildProductCacheKeys([]int64{1, 42}))
}

func TestRedisValueToBytes(t *testing.T) {
	data, err := redisValueToBytes("abc", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	data, err = redisValueToBytes(nil, "k")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = redisValueToBytes(42, "k")
	require.Error(t, err)
}

func TestCacheRepo_MarshalRoundTrip(t *testing.T) {
	r := &CacheRepo{}
	data, err := r.marshalProductForCache(productModel(7, "lamp"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"title":"lamp","category_name":"Home","price":1500,"image_url":""}`, string(data))

	model, err := r.unmarshalProductFromCache(data)
	require.NoError(t, err)
	assert.Equal(t, int64(7), model.ID)
}

func productModel(id int64, title string) converter.ProductInfoRedisModel {
	return converter.ProductInfoRedisModel{ID: id, Title: title, CategoryName: "Home", Price: 1500}
}
