package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// PredictionPoint is one forecasted day with its uncertainty band.
type PredictionPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// Prediction is a contiguous multi-day forecast, one point per day starting
// the day after the training series ends.
type Prediction struct {
	Scope       Scope             `json:"scope"`
	Fingerprint string            `json:"fingerprint"`
	Points      []PredictionPoint `json:"points"`
}

// Model is a fitted forecasting model. Refitting produces a new Model; an
// existing one is never mutated.
type Model interface {
	// Predict forecasts the given number of days after the training window.
	Predict(horizon int) (Prediction, error)
	// Fingerprint identifies the training series the model was fitted to.
	Fingerprint() string
	// Encode serializes the model for cache storage.
	Encode() ([]byte, error)
}

// Fitter is the pluggable fitting capability. Any algorithm that can fit a
// daily series and round-trip its models through bytes can back the engine.
type Fitter interface {
	Fit(series Series) (Model, error)
	Decode(data []byte) (Model, error)
}

// HoltFitter fits Holt's linear exponential smoothing: a smoothed level plus
// a smoothed linear trend, with prediction intervals derived from the
// standard deviation of the one-step-ahead residuals. Deterministic for a
// given series and parameters.
type HoltFitter struct {
	Alpha float64 // level smoothing factor, 0 < Alpha < 1
	Beta  float64 // trend smoothing factor, 0 < Beta < 1
	Z     float64 // interval width in residual standard deviations
}

// NewHoltFitter returns a fitter with the default smoothing parameters.
func NewHoltFitter() *HoltFitter {
	return &HoltFitter{Alpha: 0.35, Beta: 0.1, Z: 1.96}
}

type holtModel struct {
	Level       float64   `json:"level"`
	Trend       float64   `json:"trend"`
	Sigma       float64   `json:"sigma"`
	Z           float64   `json:"z"`
	Scope       Scope     `json:"scope"`
	LastDate    time.Time `json:"last_date"`
	SeriesPrint string    `json:"series_fingerprint"`
}

// Fit smooths the series and captures the final level, trend and residual
// spread. At least two points are required to initialize the trend.
func (f *HoltFitter) Fit(series Series) (Model, error) {
	if len(series.Points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrFitting, len(series.Points))
	}
	if f.Alpha <= 0 || f.Alpha >= 1 || f.Beta <= 0 || f.Beta >= 1 {
		return nil, fmt.Errorf("%w: smoothing factors must be in (0, 1): alpha=%v beta=%v",
			ErrFitting, f.Alpha, f.Beta)
	}

	points := series.Points
	level := points[0].Value
	trend := points[1].Value - points[0].Value

	var residualSum float64
	n := 0
	for _, p := range points[1:] {
		predicted := level + trend
		residual := p.Value - predicted
		residualSum += residual * residual
		n++

		prevLevel := level
		level = f.Alpha*p.Value + (1-f.Alpha)*(level+trend)
		trend = f.Beta*(level-prevLevel) + (1-f.Beta)*trend
	}

	sigma := math.Sqrt(residualSum / float64(n))

	return &holtModel{
		Level:       level,
		Trend:       trend,
		Sigma:       sigma,
		Z:           f.Z,
		Scope:       series.Scope,
		LastDate:    points[len(points)-1].Date,
		SeriesPrint: series.Fingerprint(),
	}, nil
}

// Decode restores a model previously serialized with Encode.
func (f *HoltFitter) Decode(data []byte) (Model, error) {
	var m holtModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding smoothing model: %w", err)
	}
	return &m, nil
}

func (m *holtModel) Predict(horizon int) (Prediction, error) {
	if horizon <= 0 {
		return Prediction{}, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	points := make([]PredictionPoint, 0, horizon)
	for h := 1; h <= horizon; h++ {
		value := m.Level + float64(h)*m.Trend
		if value < 0 {
			value = 0
		}
		// The interval widens with the step count; the sqrt growth matches
		// the variance accumulation of a random walk around the trend.
		spread := m.Z * m.Sigma * math.Sqrt(float64(h))
		lower := value - spread
		if lower < 0 {
			lower = 0
		}
		points = append(points, PredictionPoint{
			Date:  m.LastDate.AddDate(0, 0, h),
			Value: value,
			Lower: lower,
			Upper: value + spread,
		})
	}

	return Prediction{
		Scope:       m.Scope,
		Fingerprint: m.SeriesPrint,
		Points:      points,
	}, nil
}

func (m *holtModel) Fingerprint() string {
	return m.SeriesPrint
}

func (m *holtModel) Encode() ([]byte, error) {
	return json.Marshal(m)
}
