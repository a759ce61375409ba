package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GPS acquisition metrics
	FixesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boatapp_gps_fixes_total",
			Help: "Total number of GPS fixes received",
		},
		[]string{"provider", "tier"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boatapp_gps_errors_total",
			Help: "Total number of GPS errors by taxonomy code",
		},
		[]string{"provider", "code"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boatapp_gps_fetch_duration_seconds",
			Help:    "Duration of single-shot position fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boatapp_gps_sessions_active",
			Help: "Number of tracking sessions currently in the active state",
		},
	)

	WatchRestartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boatapp_gps_watch_restarts_total",
			Help: "Total number of watch subscriptions restarted by the fix watchdog",
		},
	)

	// Trip metrics
	TripDistanceMeters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boatapp_trip_distance_meters_total",
			Help: "Total distance accumulated across all trips",
		},
	)
)
