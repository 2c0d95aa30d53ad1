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

type countingFitter struct {
	inner Fitter
	fits  int
}

func (f *countingFitter) Fit(series Series) (Model, error) {
	f.fits++
	return f.inner.Fit(series)
}

func (f *countingFitter) Decode(data []byte) (Model, error) {
	return f.inner.Decode(data)
}

func newTestEngine(source *fakeSales) (*Engine, *countingFitter, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	fitter := &countingFitter{inner: NewHoltFitter()}
	engine := NewEngine(source, NewCache(store, testTTLs()), fitter, Config{
		HistoryDays:   90,
		MinActiveDays: 7,
		FitTimeout:    5 * time.Second,
	})
	engine.now = func() time.Time { return day(2026, 8, 30) }
	return engine, fitter, store
}

func TestForecastFlatNinetyDays(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	engine, _, _ := newTestEngine(source)

	pred, err := engine.Forecast(context.Background(), 7, 30, true)
	require.NoError(t, err)
	require.Len(t, pred.Points, 30)

	for i, p := range pred.Points {
		expected := asOf.AddDate(0, 0, i+1)
		assert.True(t, p.Date.Equal(expected), "point %d: got %s, want %s", i, p.Date, expected)
		assert.InDelta(t, 10.0, p.Value, 0.5)
	}
}

func TestForecastCacheHitSkipsRefit(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	engine, fitter, _ := newTestEngine(source)
	ctx := context.Background()

	first, err := engine.Forecast(ctx, 7, 30, true)
	require.NoError(t, err)
	assert.Equal(t, 1, fitter.fits)

	second, err := engine.Forecast(ctx, 7, 30, true)
	require.NoError(t, err)
	assert.Equal(t, 1, fitter.fits, "cached prediction must not trigger a refit")
	assert.Equal(t, first, second)
}

func TestForecastWithoutCacheIsDeterministic(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	engine, fitter, store := newTestEngine(source)
	ctx := context.Background()

	first, err := engine.Forecast(ctx, 7, 14, false)
	require.NoError(t, err)
	second, err := engine.Forecast(ctx, 7, 14, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, fitter.fits)
	assert.Equal(t, 0, store.Len(), "uncached runs must not write artifacts")
}

func TestForecastDifferentHorizonRecomputes(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	engine, _, _ := newTestEngine(source)
	ctx := context.Background()

	_, err := engine.Forecast(ctx, 7, 7, true)
	require.NoError(t, err)

	pred, err := engine.Forecast(ctx, 7, 30, true)
	require.NoError(t, err)
	assert.Len(t, pred.Points, 30)
}

func TestForecastReusesCachedModelAfterForecastExpiry(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	engine, fitter, _ := newTestEngine(source)
	ctx := context.Background()

	_, err := engine.Forecast(ctx, 7, 30, true)
	require.NoError(t, err)
	require.Equal(t, 1, fitter.fits)

	// Drop only the forecast entry; the model for the same training window
	// survives and is reused instead of refitting.
	_, err = engine.cache.store.Delete(ctx, ForecastKey(7))
	require.NoError(t, err)

	_, err = engine.Forecast(ctx, 7, 30, true)
	require.NoError(t, err)
	assert.Equal(t, 1, fitter.fits)
}

func TestForecastInsufficientDataPropagates(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 3, 10),
	}}
	engine, _, _ := newTestEngine(source)

	_, err := engine.Forecast(context.Background(), 7, 30, true)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestForecastRejectsBadHorizon(t *testing.T) {
	engine, _, _ := newTestEngine(&fakeSales{})

	_, err := engine.Forecast(context.Background(), 7, 0, true)
	assert.Error(t, err)
}

func TestForecastInvalidationForcesRecompute(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	engine, fitter, _ := newTestEngine(source)
	ctx := context.Background()

	_, err := engine.Forecast(ctx, 7, 30, true)
	require.NoError(t, err)

	deleted, err := engine.InvalidateProducts(ctx, []int64{7})
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	_, err = engine.Forecast(ctx, 7, 30, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fitter.fits)
}

type slowFitter struct{}

func (slowFitter) Fit(Series) (Model, error) {
	time.Sleep(200 * time.Millisecond)
	return nil, errors.New("unreachable")
}

func (slowFitter) Decode([]byte) (Model, error) {
	return nil, errors.New("unreachable")
}

func TestForecastFitTimeout(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	store := cache.NewMemoryStore()
	engine := NewEngine(source, NewCache(store, testTTLs()), slowFitter{}, Config{
		HistoryDays:   90,
		MinActiveDays: 7,
		FitTimeout:    20 * time.Millisecond,
	})
	engine.now = func() time.Time { return asOf }

	_, err := engine.Forecast(context.Background(), 7, 30, true)
	assert.ErrorIs(t, err, ErrFitting)
	assert.Equal(t, 0, store.Len(), "an abandoned fit must not leave partial cache state")
}

func TestForecastCancellation(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
	}}
	store := cache.NewMemoryStore()
	engine := NewEngine(source, NewCache(store, testTTLs()), slowFitter{}, Config{
		HistoryDays:   90,
		MinActiveDays: 7,
		FitTimeout:    time.Second,
	})
	engine.now = func() time.Time { return asOf }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Forecast(ctx, 7, 30, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestBatchPartialFailure(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		1: flatHistory(asOf, 90, 10),
		2: flatHistory(asOf, 2, 10), // too thin to fit
		3: flatHistory(asOf, 90, 4),
	}}
	engine, _, _ := newTestEngine(source)

	result, err := engine.ForecastBatch(context.Background(), []Scope{1, 2, 3}, 14, 0)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)
	assert.NotEmpty(t, result.RunID)

	statuses := make(map[int64]BatchOutcome, 3)
	for _, o := range result.Outcomes {
		statuses[o.ProductID] = o
	}

	assert.Equal(t, StatusSuccess, statuses[1].Status)
	assert.NotNil(t, statuses[1].Prediction)

	assert.Equal(t, StatusError, statuses[2].Status)
	assert.Nil(t, statuses[2].Prediction)
	assert.Contains(t, statuses[2].Message, "insufficient sales data")

	assert.Equal(t, StatusSuccess, statuses[3].Status)
}

func TestBatchTopNSelectsBySalesVolume(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{
		daily: map[Scope][]Point{
			1: flatHistory(asOf, 90, 50),
			2: flatHistory(asOf, 90, 30),
			3: flatHistory(asOf, 90, 10),
		},
		top: []ProductVolume{
			{ProductID: 1, Units: 4500},
			{ProductID: 2, Units: 2700},
			{ProductID: 3, Units: 900},
		},
	}
	engine, _, _ := newTestEngine(source)

	result, err := engine.ForecastBatch(context.Background(), nil, 7, 2)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, int64(1), result.Outcomes[0].ProductID)
	assert.Equal(t, int64(2), result.Outcomes[1].ProductID)
}

func TestBatchTopNFiltersCandidates(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{
		daily: map[Scope][]Point{
			2: flatHistory(asOf, 90, 30),
			3: flatHistory(asOf, 90, 10),
		},
		top: []ProductVolume{
			{ProductID: 1, Units: 4500},
			{ProductID: 2, Units: 2700},
			{ProductID: 3, Units: 900},
		},
	}
	engine, _, _ := newTestEngine(source)

	result, err := engine.ForecastBatch(context.Background(), []Scope{2, 3}, 7, 1)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, int64(2), result.Outcomes[0].ProductID)
}

func TestBatchTopNKeepsCandidateOutsideStoreWideTop(t *testing.T) {
	asOf := day(2026, 8, 30)
	// Product 3 is a slow seller: it never makes the store-wide top list,
	// but an explicit candidate must still get an outcome.
	source := &fakeSales{
		daily: map[Scope][]Point{
			3: flatHistory(asOf, 90, 10),
		},
		top: []ProductVolume{
			{ProductID: 1, Units: 4500},
			{ProductID: 2, Units: 2700},
			{ProductID: 3, Units: 900},
		},
	}
	engine, _, _ := newTestEngine(source)

	result, err := engine.ForecastBatch(context.Background(), []Scope{3}, 7, 1)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, int64(3), result.Outcomes[0].ProductID)
	assert.Equal(t, StatusSuccess, result.Outcomes[0].Status)
	require.NotNil(t, result.Outcomes[0].Prediction)
}

func TestBatchTopNUnrankableCandidateGetsErrorOutcome(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{
		daily: map[Scope][]Point{
			1: flatHistory(asOf, 90, 50),
		},
		dailyErr: map[Scope]error{
			2: errors.New("sales query timed out"),
		},
	}
	engine, _, _ := newTestEngine(source)

	result, err := engine.ForecastBatch(context.Background(), []Scope{1, 2}, 7, 2)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)

	byProduct := make(map[int64]BatchOutcome, len(result.Outcomes))
	for _, o := range result.Outcomes {
		byProduct[o.ProductID] = o
	}
	assert.Equal(t, StatusSuccess, byProduct[1].Status)
	assert.Equal(t, StatusError, byProduct[2].Status)
	assert.Contains(t, byProduct[2].Message, "ranking")
}

func TestDoubleInvalidationReportsZero(t *testing.T) {
	asOf := day(2026, 8, 30)
	source := &fakeSales{daily: map[Scope][]Point{
		7: flatHistory(asOf, 90, 10),
		8: flatHistory(asOf, 90, 5),
	}}
	engine, _, _ := newTestEngine(source)
	ctx := context.Background()

	_, err := engine.Forecast(ctx, 7, 14, true)
	require.NoError(t, err)
	_, err = engine.Forecast(ctx, 8, 14, true)
	require.NoError(t, err)

	deleted, err := engine.InvalidateProducts(ctx, []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, 6, deleted)

	deleted, err = engine.InvalidateProducts(ctx, []int64{7, 8})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}
