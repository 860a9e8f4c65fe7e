package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	viewportLabel = "viewport"

	viewportOverview = "overview"
	viewportChase    = "chase"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacetravel_ticks_total",
		Help: "The number of simulation steps taken.",
	})

	movesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacetravel_moves_rejected_total",
		Help: "The number of proposed moves rejected by collision detection.",
	})

	cullingTogglesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacetravel_culling_toggles_total",
		Help: "The number of times frustum culling was switched.",
	})

	visibleObstacles = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spacetravel_visible_obstacles",
		Help:    "The number of obstacles submitted for drawing per viewport and frame.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{viewportLabel})

	frameLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "spacetravel_frame_seconds",
		Help: "The time to step and render one frame.",
	})

	indexBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "spacetravel_index_build_seconds",
		Help: "The time to build the obstacle quadtree.",
	})

	simulationsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spacetravel_simulations_running",
		Help: "The number of frame loops currently running.",
	})
)

func instrumentVisible(viewport string, n int) {
	visibleObstacles.With(prometheus.Labels{
		viewportLabel: viewport,
	}).Observe(float64(n))
}

func instrumentFrame(start time.Time) {
	frameLatency.Observe(time.Since(start).Seconds())
}

func instrumentIndexBuild(d time.Duration) {
	indexBuildLatency.Observe(d.Seconds())
}
