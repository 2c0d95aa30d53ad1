package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key has no value (or it expired).
var ErrNotFound = errors.New("cache: key not found")

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("cache: store unavailable")

// Store is a minimal key-value cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a key and reports whether a value was actually removed.
	Delete(ctx context.Context, key string) (bool, error)
}

// PatternDeleter is an optional capability of a Store. Backends that can
// enumerate keys (e.g. Redis SCAN) implement it to support bulk deletes by
// glob pattern. Callers must probe for it with a type assertion rather than
// assume it is present.
type PatternDeleter interface {
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}
