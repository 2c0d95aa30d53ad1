package utils

import (
	"fmt"
	"strconv"
)

// ParsePositiveInt parses a query parameter that must be a positive integer,
// returning the fallback when the raw value is empty.
func ParsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", raw)
	}
	return value, nil
}
