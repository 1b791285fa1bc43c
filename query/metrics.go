package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a Cache. A nil *Metrics records
// nothing.
type Metrics struct {
	// Fetch metrics
	FetchesTotal     *prometheus.CounterVec
	ResolutionsTotal *prometheus.CounterVec
	SuppressedTotal  *prometheus.CounterVec

	// Poll metrics
	PollTicksTotal *prometheus.CounterVec

	// Subscription metrics
	Subscribers *prometheus.GaugeVec
}

// NewMetrics creates collectors under namespace and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total number of fetches started per query",
		}, []string{"key"}),
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of fetch results published to subscribers",
		}, []string{"key", "outcome"}),
		SuppressedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_resolutions_total",
			Help:      "Total number of fetch results dropped because a newer fetch was in flight",
		}, []string{"key"}),
		PollTicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Total number of poll timer ticks",
		}, []string{"key", "result"}),
		Subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Current number of subscribers per query",
		}, []string{"key"}),
	}
}

func (m *Metrics) fetchStarted(key string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) resolved(key string, failed bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.ResolutionsTotal.WithLabelValues(key, outcome).Inc()
}

func (m *Metrics) suppressed(key string) {
	if m == nil {
		return
	}
	m.SuppressedTotal.WithLabelValues(key).Inc()
}

func (m *Metrics) pollTick(key string, skipped bool) {
	if m == nil {
		return
	}
	result := "fired"
	if skipped {
		result = "skipped"
	}
	m.PollTicksTotal.WithLabelValues(key, result).Inc()
}

func (m *Metrics) setSubscribers(key string, n int) {
	if m == nil {
		return
	}
	m.Subscribers.WithLabelValues(key).Set(float64(n))
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.Subscribers.Reset()
}
