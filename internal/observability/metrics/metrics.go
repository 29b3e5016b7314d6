package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for availability fetches,
// booking submissions and flow transitions.
type BookingMetrics struct {
	fetchTotal        *prometheus.CounterVec
	fetchLatency      *prometheus.HistogramVec
	submissionTotal   *prometheus.CounterVec
	submissionLatency *prometheus.HistogramVec
	transitionsTotal  *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingwidget",
			Subsystem: "availability",
			Name:      "fetch_total",
			Help:      "Total availability fetches by outcome",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookingwidget",
			Subsystem: "availability",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of availability fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		submissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingwidget",
			Subsystem: "booking",
			Name:      "submission_total",
			Help:      "Total booking attempts per endpoint and outcome",
		}, []string{"api", "outcome"}),
		submissionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookingwidget",
			Subsystem: "booking",
			Name:      "submission_latency_seconds",
			Help:      "Latency of booking calls per endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingwidget",
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Booking flow state transitions",
		}, []string{"from", "to"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookingwidget",
			Subsystem: "widget",
			Name:      "active_sessions",
			Help:      "Widget sessions currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.fetchLatency, m.submissionTotal, m.submissionLatency, m.transitionsTotal, m.activeSessions)
	return m
}

func (m *BookingMetrics) ObserveFetch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *BookingMetrics) ObserveSubmission(api, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionTotal.WithLabelValues(api, outcome).Inc()
	m.submissionLatency.WithLabelValues(api).Observe(seconds)
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

// SetActiveSessions reports the live session count.
func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
