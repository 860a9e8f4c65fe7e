package network

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	reasonLabel = "reason"

	reasonFull        = "full"
	reasonNoPty       = "no_pty"
	reasonSmallWindow = "small_window"
	reasonRateLimited = "rate_limited"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spacetravel_sessions_active",
		Help: "The number of connected SSH sessions.",
	})

	sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacetravel_sessions_total",
		Help: "The number of SSH sessions started.",
	})

	sessionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacetravel_sessions_rejected_total",
		Help: "The number of SSH sessions turned away.",
	}, []string{reasonLabel})
)

func instrumentSessionStart() {
	sessionsTotal.Inc()
	sessionsActive.Inc()
}

func instrumentSessionEnd() {
	sessionsActive.Dec()
}

func instrumentRejected(reason string) {
	sessionsRejected.With(prometheus.Labels{
		reasonLabel: reason,
	}).Inc()
}
