package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the public scheduling
// endpoints.
type SchedulingMetrics struct {
	slotListings     *prometheus.CounterVec
	bookingMutations *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	resolverLatency  prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		slotListings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "slot_listings_total",
			Help:      "Total slot listing requests",
		}, []string{"status"}),
		bookingMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "mutations_total",
			Help:      "Total booking mutations by operation and outcome",
		}, []string{"operation", "status"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "admission",
			Name:      "rejections_total",
			Help:      "Requests rejected by the admission controller",
		}, []string{"endpoint"}),
		resolverLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "resolver_latency_seconds",
			Help:      "Latency of slot resolution",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotListings, m.bookingMutations, m.rateLimited, m.resolverLatency)
	return m
}

func (m *SchedulingMetrics) ObserveListing(status string, seconds float64) {
	if m == nil {
		return
	}
	m.slotListings.WithLabelValues(status).Inc()
	m.resolverLatency.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveMutation(operation, status string) {
	if m == nil {
		return
	}
	m.bookingMutations.WithLabelValues(operation, status).Inc()
}

func (m *SchedulingMetrics) ObserveRateLimited(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(endpoint).Inc()
}
