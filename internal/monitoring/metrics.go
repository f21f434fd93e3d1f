package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	SettingsSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_saves_total",
			Help: "Total number of settings save attempts by category and outcome",
		},
		[]string{"category", "status"},
	)
	SaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settings_save_duration_seconds",
			Help:    "Duration of the settings save workflow in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settings_cache_hits_total",
			Help: "Total number of settings cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settings_cache_misses_total",
			Help: "Total number of settings cache misses (including cache errors)",
		},
	)
	AuditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settings_audit_write_failures_total",
			Help: "Total number of audit entries that could not be persisted",
		},
	)
	BroadcastEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_broadcast_events_total",
			Help: "Total number of live-update events published by scope",
		},
		[]string{"scope"},
	)
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "settings_active_streams",
			Help: "Number of live-update subscribers currently connected",
		},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func InitMetrics() {
	collectors := []prometheus.Collector{
		SettingsSaves,
		SaveDuration,
		CacheHits,
		CacheMisses,
		AuditWriteFailures,
		BroadcastEvents,
		ActiveStreams,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msg("Failed to register metric")
		}
	}
}
