package forecast

import "errors"

// ErrInsufficientData means the sales history for a scope has too few active
// days for a model to fit meaningfully. Callers can skip the scope and retry
// later with more history.
var ErrInsufficientData = errors.New("insufficient sales data to fit a forecast")

// ErrFitting means the model-fitting step failed or exceeded its time budget.
var ErrFitting = errors.New("model fitting failed")
