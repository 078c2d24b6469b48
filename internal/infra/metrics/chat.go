package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chatSendsTotal,
		rateLimitBlocksTotal,
		suggestionsTotal,
		persistFailuresTotal,
	)
}

var chatSendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_sends_total",
		Help: "Total send attempts that mutated a session, labeled by outcome.",
	},
	[]string{"outcome"}, // 'ok', 'error', 'cancelled'
)

var rateLimitBlocksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chat_rate_limit_blocks_total",
		Help: "Total sends rejected by the sliding-window rate limiter.",
	},
)

var suggestionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_suggestions_total",
		Help: "Follow-up suggestion fetches, labeled by outcome.",
	},
	[]string{"outcome"}, // 'attached', 'empty', 'stale'
)

var persistFailuresTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chat_persist_failures_total",
		Help: "Durable writes that failed; the in-memory flow continues regardless.",
	},
)

func IncSend(outcome string)       { chatSendsTotal.WithLabelValues(outcome).Inc() }
func IncRateLimitBlock()           { rateLimitBlocksTotal.Inc() }
func IncSuggestion(outcome string) { suggestionsTotal.WithLabelValues(outcome).Inc() }
func IncPersistFailure()           { persistFailuresTotal.Inc() }
