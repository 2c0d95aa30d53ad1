package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTTLs() CacheTTLs {
	return CacheTTLs{Model: time.Hour, Forecast: time.Hour, Data: time.Hour}
}

func storedTriplet(t *testing.T, c *Cache, scope Scope) (Series, []byte, Prediction) {
	t.Helper()

	series := Series{Scope: scope, Points: flatHistory(day(2026, 8, 30), 30, 10)}
	model, err := NewHoltFitter().Fit(series)
	require.NoError(t, err)
	modelData, err := model.Encode()
	require.NoError(t, err)
	pred, err := model.Predict(7)
	require.NoError(t, err)

	c.PutAll(context.Background(), scope, series, modelData, pred, 7)
	return series, modelData, pred
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())
	scope := Scope(7)

	series, modelData, pred := storedTriplet(t, fc, scope)

	gotPred, ok := fc.GetForecast(ctx, scope, 7)
	require.True(t, ok)
	assert.Equal(t, pred.Fingerprint, gotPred.Fingerprint)
	assert.Len(t, gotPred.Points, len(pred.Points))

	gotModel, ok := fc.GetModel(ctx, scope, series.Fingerprint())
	require.True(t, ok)
	assert.Equal(t, modelData, gotModel)

	gotSeries, ok := fc.GetRawData(ctx, scope)
	require.True(t, ok)
	assert.Equal(t, series.Fingerprint(), gotSeries.Fingerprint())
}

func TestCacheMissesAreNotErrors(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())

	_, ok := fc.GetForecast(ctx, 7, 7)
	assert.False(t, ok)
	_, ok = fc.GetModel(ctx, 7, "anything")
	assert.False(t, ok)
	_, ok = fc.GetRawData(ctx, 7)
	assert.False(t, ok)
}

func TestCacheModelFingerprintMismatch(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())
	scope := Scope(7)

	storedTriplet(t, fc, scope)

	_, ok := fc.GetModel(ctx, scope, "some-other-window")
	assert.False(t, ok)
}

func TestCacheForecastHorizonMismatch(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())
	scope := Scope(7)

	storedTriplet(t, fc, scope)

	_, ok := fc.GetForecast(ctx, scope, 30)
	assert.False(t, ok)
}

func TestInvalidateProductsRemovesTriplet(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())
	scope := Scope(7)

	series, _, _ := storedTriplet(t, fc, scope)

	deleted, err := fc.InvalidateProducts(ctx, []int64{7})
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	_, ok := fc.GetForecast(ctx, scope, 7)
	assert.False(t, ok)
	_, ok = fc.GetModel(ctx, scope, series.Fingerprint())
	assert.False(t, ok)
	_, ok = fc.GetRawData(ctx, scope)
	assert.False(t, ok)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())

	storedTriplet(t, fc, 7)
	storedTriplet(t, fc, 8)

	deleted, err := fc.InvalidateProducts(ctx, []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, 6, deleted)

	deleted, err = fc.InvalidateProducts(ctx, []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestInvalidateEmptyCacheReturnsZero(t *testing.T) {
	fc := NewCache(cache.NewMemoryStore(), testTTLs())

	deleted, err := fc.InvalidateProducts(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	deleted, err = fc.InvalidateTotalSales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestInvalidateProductsLeavesAggregate(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())

	storedTriplet(t, fc, 7)
	storedTriplet(t, fc, TotalSales)

	_, err := fc.InvalidateProducts(ctx, []int64{7})
	require.NoError(t, err)

	_, ok := fc.GetForecast(ctx, TotalSales, 7)
	assert.True(t, ok)
}

func TestInvalidateAllSweepsEveryScope(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(cache.NewMemoryStore(), testTTLs())

	storedTriplet(t, fc, 7)
	storedTriplet(t, fc, 8)
	storedTriplet(t, fc, TotalSales)

	deleted, degraded, err := fc.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, 9, deleted)

	_, ok := fc.GetForecast(ctx, 8, 7)
	assert.False(t, ok)
}

// basicStore hides the pattern-delete capability of the wrapped store.
type basicStore struct {
	inner *cache.MemoryStore
}

func (s basicStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, key)
}

func (s basicStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, key, value, ttl)
}

func (s basicStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.inner.Delete(ctx, key)
}

func TestInvalidateAllDegradesWithoutPatternSupport(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(basicStore{inner: cache.NewMemoryStore()}, testTTLs())

	storedTriplet(t, fc, 7)
	storedTriplet(t, fc, TotalSales)

	deleted, degraded, err := fc.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, 3, deleted)

	// Only the aggregate scope could be cleared.
	_, ok := fc.GetForecast(ctx, TotalSales, 7)
	assert.False(t, ok)
	_, ok = fc.GetForecast(ctx, Scope(7), 7)
	assert.True(t, ok)
}

// failingStore simulates an unreachable backend.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, cache.ErrUnavailable
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrUnavailable
}

func (failingStore) Delete(context.Context, string) (bool, error) {
	return false, cache.ErrUnavailable
}

func TestUnavailableStoreReadsAsMiss(t *testing.T) {
	ctx := context.Background()
	fc := NewCache(failingStore{}, testTTLs())

	_, ok := fc.GetForecast(ctx, 7, 7)
	assert.False(t, ok)
	_, ok = fc.GetModel(ctx, 7, "fp")
	assert.False(t, ok)
	_, ok = fc.GetRawData(ctx, 7)
	assert.False(t, ok)
}

func TestUnavailableStoreInvalidationReportsError(t *testing.T) {
	fc := NewCache(failingStore{}, testTTLs())

	_, err := fc.InvalidateProducts(context.Background(), []int64{7})
	assert.True(t, errors.Is(err, cache.ErrUnavailable))
}
