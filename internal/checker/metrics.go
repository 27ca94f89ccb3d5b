package checker

import (
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = &Metrics{}

// Metrics counts check loops, polls and actuations.
type Metrics struct {
	runs       *prometheus.CounterVec
	polls      prometheus.Counter
	actuations *prometheus.CounterVec
	distance   prometheus.Gauge
}

func NewMetrics(namespace, subsystem string, constLabels prometheus.Labels) *Metrics {
	return &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "runs_total",
			Help:        "Number of completed check loops, by final state",
			ConstLabels: constLabels,
		}, []string{"state"}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "polls_total",
			Help:        "Number of location requests",
			ConstLabels: constLabels,
		}),
		actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "actuations_total",
			Help:        "Number of switch commands, by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "distance_km",
			Help:        "Last measured distance to the target area",
			ConstLabels: constLabels,
		}),
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.runs.Describe(ch)
	m.polls.Describe(ch)
	m.actuations.Describe(ch)
	m.distance.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.runs.Collect(ch)
	m.polls.Collect(ch)
	m.actuations.Collect(ch)
	m.distance.Collect(ch)
}

func (m *Metrics) run(state State) {
	if m != nil {
		m.runs.WithLabelValues(state.String()).Inc()
	}
}

func (m *Metrics) poll() {
	if m != nil {
		m.polls.Inc()
	}
}

func (m *Metrics) actuation(err error) {
	if m == nil {
		return
	}
	result := "accepted"
	if err != nil {
		result = "failed"
	}
	m.actuations.WithLabelValues(result).Inc()
}

func (m *Metrics) observeDistance(km float64) {
	if m != nil {
		m.distance.Set(km)
	}
}
