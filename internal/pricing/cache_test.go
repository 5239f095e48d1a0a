package pricing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/redis"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name string
		key  RecordKey
		want string
	}{
		{name: "model", key: sedanKey("Swift Dzire"), want: "pricing:v1:car:sedan:one-way:swift_dzire"},
		{name: "default", key: sedanKey(""), want: "pricing:v1:car:sedan:one-way:_default"},
		{
			name: "glob characters are neutralized",
			key:  RecordKey{Category: fare.CategoryBus, VehicleType: "Mini*Bus", VehicleModel: "[x]", TripType: fare.TripReturn},
			want: "pricing:v1:bus:mini_bus:return:_x_",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cacheKey(tt.key))
		})
	}
}

func TestRedisCache_GetSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCache(redis.Wrap(db), time.Minute)
	ctx := context.Background()
	rec := carRecord(fullCarRates())
	key := sedanKey("Dzire")

	data, err := json.Marshal(cacheEntry{Model: "Dzire", Record: rec})
	require.NoError(t, err)

	mock.ExpectGet(cacheKey(key)).RedisNil()
	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectSet(cacheKey(key), data, time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, key, rec))

	mock.ExpectGet(cacheKey(key)).SetVal(string(data))
	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.DistancePricing, got.DistancePricing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_InvalidateGroup(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCache(redis.Wrap(db), 0)

	keys := []string{"pricing:v1:car:sedan:one-way:dzire", "pricing:v1:car:sedan:one-way:_default"}
	mock.ExpectScan(0, "pricing:v1:car:sedan:one-way:*", 100).SetVal(keys, 0)
	mock.ExpectDel(keys...).SetVal(2)

	require.NoError(t, cache.InvalidateGroup(context.Background(), fare.CategoryCar, "Sedan", fare.TripOneWay))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_ThroughRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCache(redis.Wrap(db), time.Minute)
	stored := carRecord(fullCarRates())
	svc := NewService(newMemoryRepo(stored), WithCache(cache))
	key := sedanKey("Dzire")
	data, err := json.Marshal(cacheEntry{Model: "Dzire", Record: stored})
	require.NoError(t, err)

	mock.ExpectGet(cacheKey(key)).RedisNil()
	mock.ExpectSet(cacheKey(key), data, time.Minute).SetVal("OK")

	rec, source, err := svc.Resolve(context.Background(), key)

	require.NoError(t, err)
	assert.Equal(t, SourceExact, source)
	assert.Equal(t, "Dzire", rec.VehicleModel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetDropsCollidingModel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCache(redis.Wrap(db), time.Minute)
	rec := carRecord(fullCarRates())
	rec.VehicleModel = "Swift Dzire"
	data, err := json.Marshal(cacheEntry{Model: "Swift Dzire", Record: rec})
	require.NoError(t, err)

	// both models land on the same slug
	require.Equal(t, cacheKey(sedanKey("Swift Dzire")), cacheKey(sedanKey("Swift.Dzire")))
	mock.ExpectGet(cacheKey(sedanKey("Swift.Dzire"))).SetVal(string(data))

	got, err := cache.Get(context.Background(), sedanKey("Swift.Dzire"))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_DefaultFallbackServedFromCache(t *testing.T) {
	db, rdb := redismock.NewClientMock()
	cache := NewRedisCache(redis.Wrap(db), time.Minute)
	def := carRecord(fullCarRates())
	def.VehicleModel, def.IsDefault = "Default", true
	key := sedanKey("Ciaz")
	data, err := json.Marshal(cacheEntry{Model: "Ciaz", Record: def})
	require.NoError(t, err)

	m := new(mockRepo)
	m.On("FindActive", mock.Anything, key).Return(nil, nil).Once()
	m.On("FindDefault", mock.Anything, fare.CategoryCar, "Sedan", fare.TripOneWay).Return(def, nil).Once()
	svc := NewService(m, WithCache(cache))

	rdb.ExpectGet(cacheKey(key)).RedisNil()
	rdb.ExpectSet(cacheKey(key), data, time.Minute).SetVal("OK")
	rec, source, err := svc.Resolve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, source)
	assert.Equal(t, def.ID, rec.ID)

	rdb.ExpectGet(cacheKey(key)).SetVal(string(data))
	rec, source, err = svc.Resolve(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, def.ID, rec.ID)

	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "FindDefault", 1)
	assert.NoError(t, rdb.ExpectationsWereMet())
}
