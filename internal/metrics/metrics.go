package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SyncPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "leaderboard_sync_passes_total", Help: "Total spreadsheet sync passes"},
		[]string{"domain", "op", "result"},
	)
	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaderboard_sync_duration_seconds",
			Help:    "Duration of spreadsheet sync passes",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"domain", "op"},
	)
	PointRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "point_requests_total", Help: "Point requests by outcome"},
		[]string{"outcome"},
	)
	TaskToggles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "task_toggles_total", Help: "Total task completion updates"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by method and status"},
		[]string{"method", "status"},
	)
	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "leaderboard_live_subscribers", Help: "Open live leaderboard connections"},
	)
)

// Register adds every collector to reg
func Register(reg prometheus.Registerer) {
	reg.MustRegister(SyncPasses, SyncDuration, PointRequests, TaskToggles, HTTPRequests, LiveSubscribers)
}

// ObserveSync records the outcome and duration of one sync pass
func ObserveSync(domain, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SyncPasses.WithLabelValues(domain, op, result).Inc()
	SyncDuration.WithLabelValues(domain, op).Observe(time.Since(start).Seconds())
}
