package models

import "time"

// Regime classifies current market conditions.
type Regime string

const (
	RegimeNormal         Regime = "NORMAL"
	RegimeHighVol        Regime = "HIGH_VOL"
	RegimeCommodityShock Regime = "COMMODITY_SHOCK"
	RegimePolicyEvent    Regime = "POLICY_EVENT"
	RegimeUnknown        Regime = "UNKNOWN"
)

// RegimeSignals carries the raw inputs behind a regime classification.
type RegimeSignals struct {
	VolZScore                float64 `json:"vol_z_score"`
	VolPercentile            float64 `json:"vol_percentile"`
	CommodityChangePct       float64 `json:"commodity_change_pct"`
	FXChangePct              float64 `json:"fx_change_pct"`
	CorrelationBreak         bool    `json:"correlation_break"`
	PolicyEventProximityDays int     `json:"policy_event_proximity_days"`
}

// RegimeReport is the regime detector's verdict for one cycle. The
// VolatilityMultiplier feeds straight into the ensemble's interval width and
// is always within [1.0, 2.5].
type RegimeReport struct {
	Symbol               string        `json:"symbol"`
	Regime               Regime        `json:"regime"`
	Confidence           float64       `json:"confidence"` // 0..100
	Signals              RegimeSignals `json:"signals"`
	VolatilityMultiplier float64       `json:"volatility_multiplier"`
	GeneratedAt          time.Time     `json:"generated_at"`
}

// PolicyEvent is a scheduled policy decision date supplied by the caller.
type PolicyEvent struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// DriftSeverity grades how strongly the input distribution has shifted.
type DriftSeverity string

const (
	DriftNone   DriftSeverity = "NONE"
	DriftLow    DriftSeverity = "LOW"
	DriftMedium DriftSeverity = "MEDIUM"
	DriftHigh   DriftSeverity = "HIGH"
)

// WindowStats summarizes one comparison window.
type WindowStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

// TestResult is the outcome of one statistical drift test. Inconclusive
// marks a test that could not be evaluated (e.g., zero-variance input); it
// never counts as a failure.
type TestResult struct {
	Statistic    float64 `json:"statistic"`
	PValue       float64 `json:"p_value"`
	Failed       bool    `json:"failed"`
	Inconclusive bool    `json:"inconclusive,omitempty"`
}

// DriftReport compares a recent window to a baseline window of the same
// series. It is a pure value object; repeated calls on identical input
// produce identical reports.
type DriftReport struct {
	Symbol         string                `json:"symbol"`
	DriftDetected  bool                  `json:"drift_detected"`
	Severity       DriftSeverity         `json:"severity"`
	BaselineStats  WindowStats           `json:"baseline_stats"`
	RecentStats    WindowStats           `json:"recent_stats"`
	TestResults    map[string]TestResult `json:"test_results"`
	Recommendation string                `json:"recommendation"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// LiveMetrics is the current accuracy of a model measured against realized
// outcomes, compared to a stored baseline by the performance monitor.
type LiveMetrics struct {
	RMSE                float64 `json:"rmse"`
	MAE                 float64 `json:"mae"`
	MAPE                float64 `json:"mape"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
}

// BaselineMetrics is the stored performance reference for one model. It is
// produced by external training infrastructure and read-only here.
type BaselineMetrics struct {
	RMSE                float64   `json:"rmse"`
	MAE                 float64   `json:"mae"`
	MAPE                float64   `json:"mape"`
	DirectionalAccuracy float64   `json:"directional_accuracy"`
	CapturedAt          time.Time `json:"captured_at"`
	SampleSize          int       `json:"sample_size"`
}

// AlertSeverity grades a performance alert.
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "WARNING"
	AlertCritical AlertSeverity = "CRITICAL"
)

// PerformanceAlert flags one degraded metric. Alerts are emitted, not
// stored; at most one fires per metric per check.
type PerformanceAlert struct {
	Severity      AlertSeverity `json:"severity"`
	ModelName     string        `json:"model_name"`
	MetricName    string        `json:"metric_name"`
	CurrentValue  float64       `json:"current_value"`
	BaselineValue float64       `json:"baseline_value"`
	PctChange     float64       `json:"pct_change"`
	Message       string        `json:"message"`
}

// MonitoringBundle groups the per-cycle monitoring verdicts handed to the
// reporting collaborators, plus the combined retraining recommendation.
type MonitoringBundle struct {
	Symbol             string             `json:"symbol"`
	Drift              *DriftReport       `json:"drift,omitempty"`
	Regime             *RegimeReport      `json:"regime,omitempty"`
	Alerts             []PerformanceAlert `json:"alerts,omitempty"`
	RetrainRecommended bool               `json:"retrain_recommended"`
	GeneratedAt        time.Time          `json:"generated_at"`
}
