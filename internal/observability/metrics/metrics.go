// Package metrics registers the engine's Prometheus instruments. All
// helpers are safe to call before Init; they simply no-op until the
// registry is wired.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "lookout_"

const (
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

var (
	registerOnce sync.Once

	ticksTotal   prometheus.Counter
	tickDuration prometheus.Histogram

	samplesTotal *prometheus.CounterVec

	scanEventsTotal  *prometheus.CounterVec
	alarmEventsTotal *prometheus.CounterVec

	sensorSuspended prometheus.Gauge
	rulesActive     prometheus.Gauge

	sinkFailuresTotal prometheus.Counter
	reloadsTotal      *prometheus.CounterVec
	rulesRejected     prometheus.Counter
)

// Init registers all engine metrics with the default registry. Safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "ticks_total",
			Help: "Total engine poll ticks",
		})
		tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "tick_duration_seconds",
			Help:    "Engine tick duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		})
		samplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "samples_total",
			Help: "Orientation samples by result",
		}, []string{"result"})
		scanEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "scan_events_total",
			Help: "Scan tracker events by type",
		}, []string{"type"})
		alarmEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "alarm_events_total",
			Help: "Alarm state machine events by type",
		}, []string{"type"})
		sensorSuspended = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "sensor_suspended",
			Help: "1 while alarm evaluation is suspended on sensor loss",
		})
		rulesActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "rules_active",
			Help: "Number of loaded alarm rules",
		})
		sinkFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sink_failures_total",
			Help: "Audio sink call failures",
		})
		reloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "reloads_total",
			Help: "Settings reloads by result",
		}, []string{"result"})
		rulesRejected = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "rules_rejected_total",
			Help: "Alarm rules rejected on reload",
		})

		prometheus.MustRegister(
			ticksTotal, tickDuration, samplesTotal,
			scanEventsTotal, alarmEventsTotal,
			sensorSuspended, rulesActive,
			sinkFailuresTotal, reloadsTotal, rulesRejected,
		)
	})
}

// IncTick counts one engine tick.
func IncTick() {
	if ticksTotal != nil {
		ticksTotal.Inc()
	}
}

// ObserveTick records one tick's duration in seconds.
func ObserveTick(seconds float64) {
	if tickDuration != nil {
		tickDuration.Observe(seconds)
	}
}

// IncSample counts one sampler call by result.
func IncSample(result string) {
	if samplesTotal != nil {
		samplesTotal.WithLabelValues(result).Inc()
	}
}

// IncScanEvent counts a scan tracker event.
func IncScanEvent(eventType string) {
	if scanEventsTotal != nil {
		scanEventsTotal.WithLabelValues(eventType).Inc()
	}
}

// IncAlarmEvent counts an alarm machine event.
func IncAlarmEvent(eventType string) {
	if alarmEventsTotal != nil {
		alarmEventsTotal.WithLabelValues(eventType).Inc()
	}
}

// SetSuspended flags whether evaluation is suspended.
func SetSuspended(suspended bool) {
	if sensorSuspended == nil {
		return
	}
	if suspended {
		sensorSuspended.Set(1)
	} else {
		sensorSuspended.Set(0)
	}
}

// SetRulesActive records the loaded rule count.
func SetRulesActive(n int) {
	if rulesActive != nil {
		rulesActive.Set(float64(n))
	}
}

// IncSinkFailure counts one audio sink failure.
func IncSinkFailure() {
	if sinkFailuresTotal != nil {
		sinkFailuresTotal.Inc()
	}
}

// IncReload counts one settings reload by result.
func IncReload(result string) {
	if reloadsTotal != nil {
		reloadsTotal.WithLabelValues(result).Inc()
	}
}

// AddRulesRejected counts rules rejected during a reload.
func AddRulesRejected(n int) {
	if rulesRejected != nil && n > 0 {
		rulesRejected.Add(float64(n))
	}
}
