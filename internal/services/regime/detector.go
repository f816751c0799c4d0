package regime

import (
	"context"
	"math"
	"time"

	"RateCast/internal/domain/models"
	"RateCast/internal/services/features"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

// volWindow is the trailing window used for the current volatility reading.
const volWindow = 20

// Detector classifies the current market regime from the target series, an
// optional commodity covariate, and an optional policy calendar. The
// priority order is fixed: policy events outrank commodity shocks, which
// outrank plain high volatility.
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

func (d *Detector) Detect(ctx context.Context, series models.TimeSeries, commodity *models.TimeSeries, calendar []models.PolicyEvent) (models.RegimeReport, error) {
	if err := ctx.Err(); err != nil {
		return models.RegimeReport{}, err
	}

	report := models.RegimeReport{
		Symbol:               series.Symbol,
		Regime:               models.RegimeUnknown,
		VolatilityMultiplier: 1.0,
		GeneratedAt:          time.Now().UTC(),
	}
	report.Signals.PolicyEventProximityDays = -1

	returns := features.LogReturns(series)
	minObs := d.cfg.RegimeLookbackDays + volWindow
	if len(returns) < minObs {
		return report, nil
	}

	values := series.Values()
	report.Signals.FXChangePct = features.PctChange(values, 5)

	// Current volatility versus the trailing baseline distribution.
	vols := features.RollingStd(returns, volWindow)
	vols = vols[volWindow-1:]
	recentVol := vols[len(vols)-1]
	baseStart := len(vols) - d.cfg.RegimeLookbackDays
	if baseStart < 0 {
		baseStart = 0
	}
	baseline := vols[baseStart : len(vols)-1]
	baseMean := features.Mean(baseline)
	baseStd := features.StdDev(baseline)

	z := 0.0
	if baseStd > 0 {
		z = (recentVol - baseMean) / baseStd
	}
	report.Signals.VolZScore = z
	report.Signals.VolPercentile = percentileRank(baseline, recentVol)

	// Commodity shock inputs.
	corrBreak := false
	if commodity != nil && commodity.Len() > volWindow {
		covValues := commodity.Values()
		report.Signals.CommodityChangePct = features.PctChange(covValues, 5)
		corrBreak = d.correlationBreak(series, *commodity)
		report.Signals.CorrelationBreak = corrBreak
	}

	// Policy calendar proximity relative to the last observation.
	if days, ok := nearestEventDays(series.LastDate(), calendar); ok {
		report.Signals.PolicyEventProximityDays = days
	}

	d.classify(&report)

	if d.log != nil {
		d.log.Debug("regime classified",
			xlogger.String("symbol", series.Symbol),
			xlogger.String("regime", string(report.Regime)),
			xlogger.Any("vol_z", z),
			xlogger.Any("multiplier", report.VolatilityMultiplier))
	}
	return report, nil
}

// classify applies the priority-ordered state machine and fills in the
// multiplier and confidence.
func (d *Detector) classify(report *models.RegimeReport) {
	sig := report.Signals
	z := sig.VolZScore

	policyNear := sig.PolicyEventProximityDays >= 0 && sig.PolicyEventProximityDays <= d.cfg.PolicyProximityDays
	commodityShock := math.Abs(sig.CommodityChangePct) > d.cfg.CommodityShockPct && sig.CorrelationBreak
	highVol := z > d.cfg.VolThresholdHigh

	switch {
	case policyNear && z > 1.5:
		report.Regime = models.RegimePolicyEvent
		report.VolatilityMultiplier = 2.0
		report.Confidence = 60 + (z-1.5)*10
	case commodityShock:
		report.Regime = models.RegimeCommodityShock
		report.VolatilityMultiplier = 1.5
		report.Confidence = 55 + (math.Abs(sig.CommodityChangePct)-d.cfg.CommodityShockPct)*2
	case highVol:
		report.Regime = models.RegimeHighVol
		report.VolatilityMultiplier = clamp(1.2+d.cfg.HighVolSlope*(z-d.cfg.VolThresholdHigh), 1.2, 1.9)
		report.Confidence = 50 + (z-d.cfg.VolThresholdHigh)*15
	default:
		report.Regime = models.RegimeNormal
		report.VolatilityMultiplier = 1.0
		report.Confidence = clamp(90-math.Abs(z)*20, 20, 90)
	}

	// Independent agreeing signals raise confidence.
	agreeing := 0
	if z > 1.0 {
		agreeing++
	}
	if math.Abs(sig.CommodityChangePct) > d.cfg.CommodityShockPct/2 {
		agreeing++
	}
	if sig.CorrelationBreak {
		agreeing++
	}
	if policyNear {
		agreeing++
	}
	if report.Regime != models.RegimeNormal && agreeing > 1 {
		report.Confidence += float64(agreeing-1) * 8
	}

	// Hard cap: additive scoring must never leave [0, 100].
	report.Confidence = clamp(report.Confidence, 0, 100)
}

// correlationBreak compares long-window and recent-window correlation of
// log returns between the target and the commodity.
func (d *Detector) correlationBreak(series, commodity models.TimeSeries) bool {
	target, cov := alignValues(series, commodity)
	if len(target) < d.cfg.RegimeLookbackDays {
		return false
	}
	r1 := features.LogReturnsOf(target)
	r2 := features.LogReturnsOf(cov)
	n := len(r1)
	if len(r2) < n {
		n = len(r2)
	}
	// The aligned overlap can be shorter than the lookback when the
	// commodity series is sparse; the recent window needs volWindow returns.
	if n < volWindow+1 {
		return false
	}
	r1 = r1[len(r1)-n:]
	r2 = r2[len(r2)-n:]

	longStart := n - d.cfg.RegimeLookbackDays
	if longStart < 0 {
		longStart = 0
	}
	longCorr := features.Correlation(r1[longStart:], r2[longStart:])
	recentCorr := features.Correlation(r1[n-volWindow:], r2[n-volWindow:])

	// A break needs a correlation that existed historically and then moved.
	if math.Abs(longCorr) < 0.3 {
		return false
	}
	return math.Abs(longCorr-recentCorr) >= d.cfg.CorrelationBreakDelta
}

func alignValues(a, b models.TimeSeries) ([]float64, []float64) {
	byDate := make(map[time.Time]float64, b.Len())
	for _, o := range b.Observations {
		byDate[o.Date] = o.Value
	}
	var va, vb []float64
	for _, o := range a.Observations {
		if v, ok := byDate[o.Date]; ok {
			va = append(va, o.Value)
			vb = append(vb, v)
		}
	}
	return va, vb
}

// nearestEventDays returns the distance in days to the closest calendar
// event, looking both forward and back from the reference date.
func nearestEventDays(ref time.Time, calendar []models.PolicyEvent) (int, bool) {
	if ref.IsZero() || len(calendar) == 0 {
		return 0, false
	}
	best := math.MaxInt32
	for _, ev := range calendar {
		days := int(math.Abs(ev.Date.Sub(ref).Hours()) / 24)
		if days < best {
			best = days
		}
	}
	if best == math.MaxInt32 {
		return 0, false
	}
	return best, true
}

// percentileRank returns the share of baseline values at or below v, 0-100.
func percentileRank(baseline []float64, v float64) float64 {
	if len(baseline) == 0 {
		return 0
	}
	count := 0
	for _, b := range baseline {
		if b <= v {
			count++
		}
	}
	return float64(count) / float64(len(baseline)) * 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
