package forecast

import (
	"context"
	"fmt"
	"time"
)

// Point is one day of sales history.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is the daily sales history for a scope: sorted ascending by date,
// one point per calendar day, no gaps and no duplicates.
type Series struct {
	Scope  Scope   `json:"scope"`
	Points []Point `json:"points"`
}

// Fingerprint derives a stable identity for the series from its date range
// and length. A cached model or prediction is only reused when its
// fingerprint matches the series a fresh build would produce.
func (s Series) Fingerprint() string {
	if len(s.Points) == 0 {
		return fmt.Sprintf("%s:empty", s.Scope.Token())
	}
	first := s.Points[0].Date
	last := s.Points[len(s.Points)-1].Date
	return fmt.Sprintf("%s:%s:%s:%d",
		s.Scope.Token(), first.Format("20060102"), last.Format("20060102"), len(s.Points))
}

// ProductVolume is a product ranked by units sold over a window.
type ProductVolume struct {
	ProductID int64   `json:"product_id"`
	Units     float64 `json:"units"`
}

// SalesSource reads the precomputed daily sales aggregates the series
// builder consumes. DailyUnits may return a sparse result, only days with
// recorded sales; gap filling is the builder's job.
type SalesSource interface {
	DailyUnits(ctx context.Context, scope Scope, from, to time.Time) ([]Point, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductVolume, error)
}

// SeriesBuilder turns raw daily aggregates into validated, gap-filled series.
// It is read-only and never touches the cache.
type SeriesBuilder struct {
	source        SalesSource
	minActiveDays int
}

// NewSeriesBuilder creates a builder that rejects series with fewer than
// minActiveDays days of non-zero sales.
func NewSeriesBuilder(source SalesSource, minActiveDays int) *SeriesBuilder {
	return &SeriesBuilder{source: source, minActiveDays: minActiveDays}
}

// Build loads historyDays of sales for the scope, ending at asOf, and
// returns a series with exactly one point per calendar day in the window.
// Days without sales carry value 0; omitting them would skew a fitted model
// toward the wrong sampling frequency.
func (b *SeriesBuilder) Build(ctx context.Context, scope Scope, historyDays int, asOf time.Time) (Series, error) {
	if historyDays <= 0 {
		return Series{}, fmt.Errorf("historyDays must be positive, got %d", historyDays)
	}

	to := truncateToDay(asOf)
	from := to.AddDate(0, 0, -(historyDays - 1))

	raw, err := b.source.DailyUnits(ctx, scope, from, to)
	if err != nil {
		return Series{}, fmt.Errorf("loading daily sales for %s: %w", scope, err)
	}

	byDay := make(map[time.Time]float64, len(raw))
	for _, p := range raw {
		day := truncateToDay(p.Date)
		byDay[day] += p.Value
	}

	points := make([]Point, 0, historyDays)
	activeDays := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		value := byDay[day]
		if value > 0 {
			activeDays++
		}
		points = append(points, Point{Date: day, Value: value})
	}

	if activeDays < b.minActiveDays {
		return Series{}, fmt.Errorf("%w: scope %s has %d active days, need at least %d",
			ErrInsufficientData, scope, activeDays, b.minActiveDays)
	}

	return Series{Scope: scope, Points: points}, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
