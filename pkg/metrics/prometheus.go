package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycleDuration   *prometheus.HistogramVec
	adapterFailures *prometheus.CounterVec
	alertsTotal     *prometheus.CounterVec
	forecastMean    *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratecast_cycle_duration_seconds",
				Help:    "Duration of full forecast cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		adapterFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratecast_adapter_failures_total",
				Help: "Adapters dropped from a cycle after a failed fit",
			},
			[]string{"model"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratecast_performance_alerts_total",
				Help: "Performance degradation alerts by severity",
			},
			[]string{"severity"},
		),
		forecastMean: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ratecast_forecast_mean",
				Help: "Final-step mean of the latest forecast for a symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratecast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordCycle records the wall time of one forecast cycle.
func (r *Recorder) RecordCycle(symbol string, seconds float64) {
	r.cycleDuration.WithLabelValues(symbol).Observe(seconds)
}

// RecordAdapterFailure counts an adapter dropped from a cycle.
func (r *Recorder) RecordAdapterFailure(model string) {
	r.adapterFailures.WithLabelValues(model).Inc()
}

// RecordAlert counts a performance alert by severity.
func (r *Recorder) RecordAlert(severity string) {
	r.alertsTotal.WithLabelValues(severity).Inc()
}

// RecordForecastMean exposes the latest horizon-end mean for a symbol.
func (r *Recorder) RecordForecastMean(symbol string, value float64) {
	r.forecastMean.WithLabelValues(symbol).Set(value)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
