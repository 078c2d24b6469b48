package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(aiCallsLatencyMs)
}

var aiCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ai_calls_latency_ms",
		Help:    "Gateway call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
	},
	[]string{"call", "success"}, // call: 'primary', 'suggestions'
)

func ObserveAICall(call string, d time.Duration, success bool) {
	aiCallsLatencyMs.WithLabelValues(call, strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}
