package forecast

import "fmt"

// Scope identifies what a forecast is computed for: a single product
// (positive inventory item ID) or the store-wide total, represented by
// TotalSales. All cache keys, series and predictions are parameterized by
// exactly one scope.
type Scope int64

// TotalSales is the aggregate scope covering sales across all products.
const TotalSales Scope = 0

// IsProduct reports whether the scope targets a single product.
func (s Scope) IsProduct() bool {
	return s > 0
}

// Token is the scope's cache-key component. Product scopes and the aggregate
// scope can never collide because the aggregate token contains no digits.
func (s Scope) Token() string {
	if s.IsProduct() {
		return fmt.Sprintf("product_%d", s)
	}
	return "total_sales"
}

func (s Scope) String() string {
	return s.Token()
}

// Cache key prefixes for the three artifact kinds kept per scope.
const (
	modelKeyPrefix    = "forecast:model:"
	forecastKeyPrefix = "forecast:result:"
	dataKeyPrefix     = "forecast:data:"
)

// ModelKey returns the cache key for the fitted model artifact of a scope.
func ModelKey(scope Scope) string {
	return modelKeyPrefix + scope.Token()
}

// ForecastKey returns the cache key for the prediction of a scope.
func ForecastKey(scope Scope) string {
	return forecastKeyPrefix + scope.Token()
}

// DataKey returns the cache key for the raw training series of a scope.
func DataKey(scope Scope) string {
	return dataKeyPrefix + scope.Token()
}

// AllKeys returns the model, forecast and raw-data keys of a scope together.
// This triplet is the unit of invalidation: the three entries are always
// deleted as a group so a stale series can never be paired with a fresh
// model.
func AllKeys(scope Scope) []string {
	return []string{ModelKey(scope), ForecastKey(scope), DataKey(scope)}
}

// AllKeyPrefixes returns the key prefixes for every artifact kind, used by
// pattern-based bulk invalidation.
func AllKeyPrefixes() []string {
	return []string{modelKeyPrefix, forecastKeyPrefix, dataKeyPrefix}
}
