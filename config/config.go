package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config struct holds application configuration
// This is a simple way to make config accessible globally.
// A more advanced approach might use dependency injection.
type Config struct {
	JWTSecret string

	// Forecasting policy. These are operator knobs, not per-call inputs.
	ForecastHistoryDays   int
	ForecastMinActiveDays int
	ForecastFitTimeout    time.Duration
	ForecastModelTTL      time.Duration
	ForecastResultTTL     time.Duration
	ForecastDataTTL       time.Duration
}

// AppConfig holds the application-wide configuration
var AppConfig Config

// Load reads the forecasting knobs from the environment, falling back to
// the defaults when a variable is unset.
func Load() {
	AppConfig.ForecastHistoryDays = envInt("FORECAST_HISTORY_DAYS", 90)
	AppConfig.ForecastMinActiveDays = envInt("FORECAST_MIN_ACTIVE_DAYS", 14)
	AppConfig.ForecastFitTimeout = envDuration("FORECAST_FIT_TIMEOUT", 30*time.Second)
	AppConfig.ForecastModelTTL = envDuration("FORECAST_MODEL_TTL", 24*time.Hour)
	AppConfig.ForecastResultTTL = envDuration("FORECAST_RESULT_TTL", 6*time.Hour)
	AppConfig.ForecastDataTTL = envDuration("FORECAST_DATA_TTL", 12*time.Hour)
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", name, raw, fallback)
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %s", name, raw, fallback)
		return fallback
	}
	return value
}
