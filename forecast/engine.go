package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Config carries the forecasting policy knobs.
type Config struct {
	// HistoryDays is the training window length in days.
	HistoryDays int
	// MinActiveDays is the minimum number of non-zero sales days a series
	// needs before a model is fitted to it.
	MinActiveDays int
	// FitTimeout bounds the CPU-bound fitting step. Exceeding it is
	// reported as a fitting failure, not a hang.
	FitTimeout time.Duration
}

// Engine orchestrates series building, model fitting and caching for single
// and batch forecast requests. All collaborators are injected, so tests run
// against an in-memory store and a fake sales source.
type Engine struct {
	source  SalesSource
	builder *SeriesBuilder
	cache   *Cache
	fitter  Fitter
	cfg     Config
	now     func() time.Time
}

// NewEngine wires a forecasting engine from its collaborators.
func NewEngine(source SalesSource, fcache *Cache, fitter Fitter, cfg Config) *Engine {
	return &Engine{
		source:  source,
		builder: NewSeriesBuilder(source, cfg.MinActiveDays),
		cache:   fcache,
		fitter:  fitter,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Forecast predicts horizon days of sales for a scope.
//
// With useCache set, a cached prediction for the same horizon is returned
// without refitting, provided its training-window fingerprint still matches
// the cached raw series. On a miss the series is rebuilt, a model is fitted
// (or a cached model with a matching fingerprint reused), and the full
// model/forecast/series triplet is stored before the prediction is returned.
//
// Returns ErrInsufficientData when the history is too thin and ErrFitting
// when the model step fails or exceeds its time budget.
func (e *Engine) Forecast(ctx context.Context, scope Scope, horizon int, useCache bool) (*Prediction, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	if useCache {
		if pred, ok := e.cachedPrediction(ctx, scope, horizon); ok {
			return pred, nil
		}
	}

	series, err := e.builder.Build(ctx, scope, e.cfg.HistoryDays, e.now())
	if err != nil {
		return nil, err
	}

	model, err := e.obtainModel(ctx, scope, series, useCache)
	if err != nil {
		return nil, err
	}

	pred, err := model.Predict(horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFitting, err)
	}

	if useCache {
		modelData, err := model.Encode()
		if err != nil {
			log.Printf("Skipping cache write for %s, model not encodable: %v", scope, err)
		} else {
			e.cache.PutAll(ctx, scope, series, modelData, pred, horizon)
		}
	}

	return &pred, nil
}

// cachedPrediction returns a cached forecast only when its fingerprint is
// consistent with the cached raw series. A missing raw series is accepted:
// the forecast TTL alone then bounds staleness.
func (e *Engine) cachedPrediction(ctx context.Context, scope Scope, horizon int) (*Prediction, bool) {
	pred, ok := e.cache.GetForecast(ctx, scope, horizon)
	if !ok {
		return nil, false
	}
	if raw, ok := e.cache.GetRawData(ctx, scope); ok && raw.Fingerprint() != pred.Fingerprint {
		return nil, false
	}
	return pred, true
}

// obtainModel reuses a cached model fitted to an identical series when
// possible, otherwise fits a fresh one under the configured timeout.
func (e *Engine) obtainModel(ctx context.Context, scope Scope, series Series, useCache bool) (Model, error) {
	if useCache {
		if data, ok := e.cache.GetModel(ctx, scope, series.Fingerprint()); ok {
			model, err := e.fitter.Decode(data)
			if err == nil {
				return model, nil
			}
			log.Printf("Refitting %s, cached model not decodable: %v", scope, err)
		}
	}
	return e.fitWithTimeout(ctx, series)
}

type fitResult struct {
	model Model
	err   error
}

// fitWithTimeout runs the fitting step in its own goroutine so a
// long-running fit can be abandoned at the configured deadline or on
// caller cancellation. Nothing has been written to the cache at this point,
// so abandoning a fit never leaves partial state behind.
func (e *Engine) fitWithTimeout(ctx context.Context, series Series) (Model, error) {
	if e.cfg.FitTimeout <= 0 {
		model, err := e.fitter.Fit(series)
		if err != nil {
			return nil, wrapFitting(err)
		}
		return model, nil
	}

	fitCtx, cancel := context.WithTimeout(ctx, e.cfg.FitTimeout)
	defer cancel()

	done := make(chan fitResult, 1)
	go func() {
		model, err := e.fitter.Fit(series)
		done <- fitResult{model: model, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, wrapFitting(res.err)
		}
		return res.model, nil
	case <-fitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: fit exceeded %s budget for %s", ErrFitting, e.cfg.FitTimeout, series.Scope)
	}
}

func wrapFitting(err error) error {
	if errors.Is(err, ErrFitting) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrFitting, err)
}

// Outcome statuses for batch forecasting.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BatchOutcome is the per-scope result of a batch run.
type BatchOutcome struct {
	ProductID  int64       `json:"product_id"`
	Scope      string      `json:"scope"`
	Status     string      `json:"status"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// BatchResult is the complete outcome list of one batch forecast run.
type BatchResult struct {
	RunID    string         `json:"run_id"`
	Horizon  int            `json:"horizon_days"`
	Outcomes []BatchOutcome `json:"outcomes"`
}

// ForecastBatch forecasts each scope independently and never aborts
// wholesale: a failing scope is reported as an error outcome while the rest
// proceed. When topN is positive the candidate products are ranked by their
// own units sold over the training window and only the top topN are
// forecast; with no explicit scopes the store-wide best sellers are
// selected instead. Every explicit candidate yields an outcome: either a
// forecast, an error, or exclusion by the topN cutoff itself.
func (e *Engine) ForecastBatch(ctx context.Context, scopes []Scope, horizon, topN int) (*BatchResult, error) {
	var unrankable []BatchOutcome
	if topN > 0 {
		ranked, failed, err := e.rankScopes(ctx, scopes, topN)
		if err != nil {
			return nil, fmt.Errorf("ranking products for batch: %w", err)
		}
		scopes = ranked
		unrankable = failed
	}

	result := &BatchResult{
		RunID:    uuid.NewString(),
		Horizon:  horizon,
		Outcomes: make([]BatchOutcome, 0, len(scopes)+len(unrankable)),
	}
	result.Outcomes = append(result.Outcomes, unrankable...)

	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := BatchOutcome{ProductID: int64(scope), Scope: scope.Token()}
		pred, err := e.Forecast(ctx, scope, horizon, true)
		if err != nil {
			outcome.Status = StatusError
			outcome.Message = err.Error()
			log.Printf("Batch %s: forecast failed for %s: %v", result.RunID, scope, err)
		} else {
			outcome.Status = StatusSuccess
			outcome.Prediction = pred
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

// rankScopes orders candidate product scopes by historical volume and keeps
// the top n. An empty candidate list means "pick the top sellers
// store-wide". Explicit candidates are ranked by their own volumes, never
// intersected with the store-wide top list, so a slow seller the caller
// asked for is still ranked. Candidates whose volume cannot be read come
// back as error outcomes instead of disappearing.
func (e *Engine) rankScopes(ctx context.Context, candidates []Scope, topN int) ([]Scope, []BatchOutcome, error) {
	to := e.now()
	from := to.AddDate(0, 0, -(e.cfg.HistoryDays - 1))

	if len(candidates) == 0 {
		volumes, err := e.source.TopProducts(ctx, from, to, topN)
		if err != nil {
			return nil, nil, err
		}
		scopes := make([]Scope, 0, len(volumes))
		for _, v := range volumes {
			scopes = append(scopes, Scope(v.ProductID))
		}
		return scopes, nil, nil
	}

	type candidateVolume struct {
		scope Scope
		units float64
	}
	ranked := make([]candidateVolume, 0, len(candidates))
	var failed []BatchOutcome
	for _, scope := range candidates {
		points, err := e.source.DailyUnits(ctx, scope, from, to)
		if err != nil {
			failed = append(failed, BatchOutcome{
				ProductID: int64(scope),
				Scope:     scope.Token(),
				Status:    StatusError,
				Message:   fmt.Sprintf("ranking by sales volume failed: %v", err),
			})
			continue
		}
		var units float64
		for _, p := range points {
			units += p.Value
		}
		ranked = append(ranked, candidateVolume{scope: scope, units: units})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].units > ranked[j].units })
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	scopes := make([]Scope, 0, len(ranked))
	for _, c := range ranked {
		scopes = append(scopes, c.scope)
	}
	return scopes, failed, nil
}

// InvalidateProducts removes cached artifacts for the given products,
// typically after a sales backfill or correction touched them.
func (e *Engine) InvalidateProducts(ctx context.Context, productIDs []int64) (int, error) {
	return e.cache.InvalidateProducts(ctx, productIDs)
}

// InvalidateTotalSales removes the aggregate scope's cached artifacts.
func (e *Engine) InvalidateTotalSales(ctx context.Context) (int, error) {
	return e.cache.InvalidateTotalSales(ctx)
}

// InvalidateAll removes all cached forecast artifacts, best effort. The
// degraded return is true when the store cannot enumerate keys and only the
// aggregate scope could be cleared.
func (e *Engine) InvalidateAll(ctx context.Context) (deleted int, degraded bool, err error) {
	return e.cache.InvalidateAll(ctx)
}

// TopProducts exposes the volume ranking the batch path uses, for the
// analytics API.
func (e *Engine) TopProducts(ctx context.Context, limit int) ([]ProductVolume, error) {
	to := e.now()
	from := to.AddDate(0, 0, -(e.cfg.HistoryDays - 1))
	return e.source.TopProducts(ctx, from, to, limit)
}
