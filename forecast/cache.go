package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"app/cache"
)

// CacheTTLs holds the time-to-live for each cached artifact kind.
type CacheTTLs struct {
	Model    time.Duration
	Forecast time.Duration
	Data     time.Duration
}

// cachedModel wraps the opaque model bytes with the fingerprint of the
// series it was fitted to, so reuse can be validated without decoding.
type cachedModel struct {
	Fingerprint string `json:"fingerprint"`
	Data        []byte `json:"data"`
}

// cachedForecast stores a prediction together with the horizon it was
// computed for; a cached 7-day forecast must not satisfy a 30-day request.
type cachedForecast struct {
	Horizon    int        `json:"horizon"`
	Prediction Prediction `json:"prediction"`
}

// Cache stores the model/forecast/raw-data artifact triplet per scope and
// handles invalidation. Store failures on the read and write paths are
// logged and treated as misses: the cache is a performance layer, never a
// correctness dependency, so an unreachable store must degrade to
// compute-fresh rather than fail the request.
type Cache struct {
	store cache.Store
	ttls  CacheTTLs
}

// NewCache wraps a key-value store with the forecast key scheme.
func NewCache(store cache.Store, ttls CacheTTLs) *Cache {
	return &Cache{store: store, ttls: ttls}
}

// GetModel returns the cached model bytes for a scope, but only when they
// were fitted to a series with the given fingerprint. The second return is
// false on a miss.
func (c *Cache) GetModel(ctx context.Context, scope Scope, fingerprint string) ([]byte, bool) {
	data, err := c.store.Get(ctx, ModelKey(scope))
	if err != nil {
		c.logMiss("model", scope, err)
		return nil, false
	}
	var cached cachedModel
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Printf("Discarding undecodable cached model for %s: %v", scope, err)
		return nil, false
	}
	if cached.Fingerprint != fingerprint {
		return nil, false
	}
	return cached.Data, true
}

// GetForecast returns the cached prediction for a scope when one exists for
// the requested horizon.
func (c *Cache) GetForecast(ctx context.Context, scope Scope, horizon int) (*Prediction, bool) {
	data, err := c.store.Get(ctx, ForecastKey(scope))
	if err != nil {
		c.logMiss("forecast", scope, err)
		return nil, false
	}
	var cached cachedForecast
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Printf("Discarding undecodable cached forecast for %s: %v", scope, err)
		return nil, false
	}
	if cached.Horizon != horizon {
		return nil, false
	}
	return &cached.Prediction, true
}

// GetRawData returns the cached training series for a scope.
func (c *Cache) GetRawData(ctx context.Context, scope Scope) (*Series, bool) {
	data, err := c.store.Get(ctx, DataKey(scope))
	if err != nil {
		c.logMiss("raw data", scope, err)
		return nil, false
	}
	var series Series
	if err := json.Unmarshal(data, &series); err != nil {
		log.Printf("Discarding undecodable cached series for %s: %v", scope, err)
		return nil, false
	}
	return &series, true
}

// PutAll stores the full artifact triplet for a scope. It is called only
// after fit and predict both succeeded, so a cached model can never exist
// without its forecast. Last writer wins; recomputation is idempotent so no
// locking is needed.
func (c *Cache) PutAll(ctx context.Context, scope Scope, series Series, modelData []byte, pred Prediction, horizon int) {
	forecastBytes, err := json.Marshal(cachedForecast{Horizon: horizon, Prediction: pred})
	if err == nil {
		err = c.store.Set(ctx, ForecastKey(scope), forecastBytes, c.ttls.Forecast)
	}
	if err != nil {
		log.Printf("Failed to cache forecast for %s: %v", scope, err)
		return
	}

	modelBytes, err := json.Marshal(cachedModel{Fingerprint: pred.Fingerprint, Data: modelData})
	if err == nil {
		err = c.store.Set(ctx, ModelKey(scope), modelBytes, c.ttls.Model)
	}
	if err != nil {
		log.Printf("Failed to cache model for %s: %v", scope, err)
	}

	seriesBytes, err := json.Marshal(series)
	if err == nil {
		err = c.store.Set(ctx, DataKey(scope), seriesBytes, c.ttls.Data)
	}
	if err != nil {
		log.Printf("Failed to cache series for %s: %v", scope, err)
	}
}

// InvalidateProducts deletes the artifact triplet of every given product
// scope and returns how many keys were actually removed. Deleting an absent
// key is not an error, so invalidation is idempotent.
func (c *Cache) InvalidateProducts(ctx context.Context, productIDs []int64) (int, error) {
	deleted := 0
	for _, id := range productIDs {
		n, err := c.invalidateScope(ctx, Scope(id))
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// InvalidateTotalSales deletes the aggregate scope's artifact triplet.
func (c *Cache) InvalidateTotalSales(ctx context.Context) (int, error) {
	return c.invalidateScope(ctx, TotalSales)
}

// InvalidateAll removes every forecast artifact in the store. When the store
// supports pattern deletes the three key prefixes are swept in full.
// Otherwise only the aggregate scope can be cleared; the degraded return is
// then true so callers know per-product entries may remain stale until
// their TTL expires.
func (c *Cache) InvalidateAll(ctx context.Context) (deleted int, degraded bool, err error) {
	if pd, ok := c.store.(cache.PatternDeleter); ok {
		for _, prefix := range AllKeyPrefixes() {
			n, err := pd.DeleteByPattern(ctx, prefix+"*")
			deleted += n
			if err != nil {
				return deleted, false, err
			}
		}
		return deleted, false, nil
	}

	deleted, err = c.InvalidateTotalSales(ctx)
	return deleted, true, err
}

func (c *Cache) invalidateScope(ctx context.Context, scope Scope) (int, error) {
	deleted := 0
	for _, key := range AllKeys(scope) {
		removed, err := c.store.Delete(ctx, key)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}
	return deleted, nil
}

func (c *Cache) logMiss(kind string, scope Scope, err error) {
	// A plain miss is normal operation; only store trouble is worth a line.
	if !errors.Is(err, cache.ErrNotFound) {
		log.Printf("Cache unavailable reading %s for %s, computing fresh: %v", kind, scope, err)
	}
}
