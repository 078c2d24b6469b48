package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector files enqueue their metrics from init(); the main package calls
// MustRegister once after wiring is done. Keeping registration out of init()
// itself lets tests import this package without touching the default
// registry twice.
var (
	pending      []prometheus.Collector
	registerOnce sync.Once
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister registers every enqueued collector with the default registry.
// Safe to call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pending...)
	})
}
