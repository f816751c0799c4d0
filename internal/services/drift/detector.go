package drift

import (
	"context"
	"math"
	"time"

	"RateCast/internal/domain/models"
	"RateCast/internal/services/features"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

const (
	testKS       = "kolmogorov_smirnov"
	testWelch    = "welch_t"
	testVariance = "variance_f"
	testAutocorr = "autocorr_diff"
	testVolRatio = "volatility_ratio"
)

// Volatility-ratio band; outside it the heuristic flags a regime-style
// shift independent of the formal tests.
const (
	volRatioLow  = 0.67
	volRatioHigh = 1.5
)

// Detector compares a recent window of the input series against a trailing
// baseline window using several statistical tests. The computation is
// stateless and fully deterministic.
type Detector struct {
	cfg config.EngineConfig
	log *xlogger.Logger
}

func NewDetector(cfg config.EngineConfig, log *xlogger.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigurationError{Field: "engine", Reason: err.Error()}
	}
	return &Detector{cfg: cfg, log: log}, nil
}

func (d *Detector) GenerateDriftReport(ctx context.Context, series models.TimeSeries) (models.DriftReport, error) {
	if err := ctx.Err(); err != nil {
		return models.DriftReport{}, err
	}

	report := models.DriftReport{
		Symbol:      series.Symbol,
		Severity:    models.DriftNone,
		TestResults: map[string]models.TestResult{},
		GeneratedAt: time.Now().UTC(),
	}

	values := series.Values()
	need := d.cfg.BaselineWindow + d.cfg.TestWindow
	if len(values) < need {
		report.Recommendation = recommendationFor(models.DriftNone)
		return report, nil
	}

	baseline := values[len(values)-need : len(values)-d.cfg.TestWindow]
	recent := values[len(values)-d.cfg.TestWindow:]

	baseStd := features.StdDev(baseline)
	recentStd := features.StdDev(recent)
	report.BaselineStats = models.WindowStats{Mean: features.Mean(baseline), Std: baseStd, N: len(baseline)}
	report.RecentStats = models.WindowStats{Mean: features.Mean(recent), Std: recentStd, N: len(recent)}

	run := func(name string, fn func() (float64, float64, error)) {
		statistic, p, err := fn()
		if err != nil {
			// A test that cannot evaluate is inconclusive, never a failure.
			report.TestResults[name] = models.TestResult{Inconclusive: true}
			return
		}
		report.TestResults[name] = models.TestResult{
			Statistic: statistic,
			PValue:    p,
			Failed:    p < d.cfg.DriftAlpha,
		}
	}

	run(testKS, func() (float64, float64, error) { return ksTest(baseline, recent) })
	run(testWelch, func() (float64, float64, error) { return welchTTest(baseline, recent) })
	run(testVariance, func() (float64, float64, error) { return varianceFTest(baseline, recent) })
	run(testAutocorr, func() (float64, float64, error) {
		return autocorrDiffTest(features.Diff(baseline), features.Diff(recent))
	})

	// Volatility-ratio heuristic carries no p-value.
	if baseStd > 0 {
		ratio := recentStd / baseStd
		report.TestResults[testVolRatio] = models.TestResult{
			Statistic: ratio,
			Failed:    ratio < volRatioLow || ratio > volRatioHigh,
		}
	} else {
		report.TestResults[testVolRatio] = models.TestResult{Inconclusive: true}
	}

	report.Severity = d.grade(report)
	report.DriftDetected = report.Severity != models.DriftNone
	report.Recommendation = recommendationFor(report.Severity)

	if d.log != nil && report.DriftDetected {
		d.log.Warn("data drift detected",
			xlogger.String("symbol", series.Symbol),
			xlogger.String("severity", string(report.Severity)))
	}
	return report, nil
}

// grade maps test outcomes to a severity. The volatility-ratio heuristic
// counts toward the failure tally but never drives the p-value escalations.
func (d *Detector) grade(report models.DriftReport) models.DriftSeverity {
	failing := 0
	minP := 1.0
	for name, tr := range report.TestResults {
		if tr.Inconclusive {
			continue
		}
		if tr.Failed {
			failing++
		}
		if name != testVolRatio && tr.PValue < minP {
			minP = tr.PValue
		}
	}

	effect := cohensD(report.BaselineStats, report.RecentStats)

	switch {
	case failing == 0:
		return models.DriftNone
	case failing >= 3 || minP < 0.001:
		return models.DriftHigh
	case failing >= 2 || (minP < 0.01 && effect >= 0.8):
		return models.DriftMedium
	default:
		return models.DriftLow
	}
}

// cohensD returns the absolute standardized mean difference.
func cohensD(a, b models.WindowStats) float64 {
	if a.N < 2 || b.N < 2 {
		return 0
	}
	pooled := math.Sqrt((float64(a.N-1)*a.Std*a.Std + float64(b.N-1)*b.Std*b.Std) / float64(a.N+b.N-2))
	if pooled == 0 {
		return 0
	}
	return math.Abs(b.Mean-a.Mean) / pooled
}

func recommendationFor(severity models.DriftSeverity) string {
	switch severity {
	case models.DriftLow:
		return "Minor drift detected; keep monitoring over the next cycles."
	case models.DriftMedium:
		return "Moderate drift detected; schedule model retraining."
	case models.DriftHigh:
		return "Severe drift detected; retrain models before the next forecast cycle."
	default:
		return "No drift detected; continue normal operation."
	}
}
