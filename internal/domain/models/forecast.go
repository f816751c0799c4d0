package models

import "time"

// Observation is a single (timestamp, value) pair of a rate series.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimeSeries is an ordered sequence of observations with strictly increasing
// timestamps. Gaps are tolerated: missing dates are skipped, never
// interpolated. The engine treats a TimeSeries as read-only input.
type TimeSeries struct {
	Symbol       string        `json:"symbol"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations.
func (ts TimeSeries) Len() int { return len(ts.Observations) }

// Values returns the observation values in order.
func (ts TimeSeries) Values() []float64 {
	out := make([]float64, len(ts.Observations))
	for i, o := range ts.Observations {
		out[i] = o.Value
	}
	return out
}

// LastDate returns the timestamp of the final observation, or the zero time
// for an empty series.
func (ts TimeSeries) LastDate() time.Time {
	if len(ts.Observations) == 0 {
		return time.Time{}
	}
	return ts.Observations[len(ts.Observations)-1].Date
}

// Tail returns a sub-series holding the last n observations (or the whole
// series when it is shorter than n).
func (ts TimeSeries) Tail(n int) TimeSeries {
	if n >= len(ts.Observations) {
		return ts
	}
	return TimeSeries{Symbol: ts.Symbol, Observations: ts.Observations[len(ts.Observations)-n:]}
}

// Frequency identifies the spacing of forecast steps.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ForecastPoint is one step of a forecast with simulated interval bounds.
// Invariant: CI95Low <= CI80Low <= Mean <= CI80High <= CI95High and
// StdDev >= 0.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"std_dev"`
	CI80Low  float64   `json:"ci80_low"`
	CI80High float64   `json:"ci80_high"`
	CI95Low  float64   `json:"ci95_low"`
	CI95High float64   `json:"ci95_high"`
}

// ErrorMetrics summarizes backtest accuracy of the blended forecast.
type ErrorMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
}

// ForecastPackage is the finished product of one forecast cycle. It is
// assembled once and never mutated afterwards; weights sum to 1 within 1e-6
// and every weight is non-negative.
type ForecastPackage struct {
	Symbol       string             `json:"symbol"`
	HorizonSteps int                `json:"horizon_steps"`
	Frequency    Frequency          `json:"frequency"`
	Series       []ForecastPoint    `json:"series"`
	Methodology  string             `json:"methodology"`
	ErrorMetrics ErrorMetrics       `json:"error_metrics"`
	Weights      map[string]float64 `json:"weights"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// ModelArtifact is the raw output of a single model adapter, consumed only
// by the ensemble combiner and never persisted.
type ModelArtifact struct {
	ModelName     string
	PointForecast []float64
	ResidualStd   []float64
	BacktestRMSE  float64
}
