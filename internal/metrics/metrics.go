// Package metrics records scan outcomes as Prometheus metrics. Runs are
// batch jobs, so the registry is exported to a node_exporter textfile rather
// than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rewired-gh/tetrascan/internal/models"
)

const (
	metricPrefix = "tetrascan_"

	resultSuccess = "success"
	resultError   = "error"
)

// Recorder owns a private registry so that parallel runs and tests never share state.
type Recorder struct {
	registry *prometheus.Registry

	scansTotal   *prometheus.CounterVec
	daysRead     *prometheus.CounterVec
	eventsTotal  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	lastRun      prometheus.Gauge
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scans_total",
				Help: "Total station scans by result",
			},
			[]string{"station", "result"},
		),
		daysRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "days_read_total",
				Help: "Station-days whose coarse histogram was loaded",
			},
			[]string{"station"},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_total",
				Help: "Candidate events extracted",
			},
			[]string{"station"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "recoverable_errors_total",
				Help: "Per-day and per-event failures recorded in scan results",
			},
			[]string{"station"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "scan_duration_seconds",
				Help:    "Wall time of one station scan",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"result"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
	r.registry.MustRegister(r.scansTotal, r.daysRead, r.eventsTotal, r.errorsTotal, r.scanDuration, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveScan records a completed scan.
func (r *Recorder) ObserveScan(result *models.ScanResult, elapsed time.Duration) {
	station := result.StationID
	r.scansTotal.WithLabelValues(station, resultSuccess).Inc()
	r.daysRead.WithLabelValues(station).Add(float64(result.DaysRead))
	r.eventsTotal.WithLabelValues(station).Add(float64(result.Len()))
	r.errorsTotal.WithLabelValues(station).Add(float64(len(result.Errors)))
	r.scanDuration.WithLabelValues(resultSuccess).Observe(elapsed.Seconds())
}

// ObserveFailure records a scan rejected or aborted before producing a result.
func (r *Recorder) ObserveFailure(stationID string, elapsed time.Duration) {
	r.scansTotal.WithLabelValues(stationID, resultError).Inc()
	r.scanDuration.WithLabelValues(resultError).Observe(elapsed.Seconds())
}

// MarkRun sets the last-run gauge.
func (r *Recorder) MarkRun(t time.Time) {
	r.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile atomically writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
