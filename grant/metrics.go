package grant

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"

// Metrics records dispatcher outcomes per grant type.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grant_requests_total",
			Help: "Token requests processed by grant type and outcome",
		}, []string{"grant_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grant_request_duration_seconds",
			Help:    "Time spent validating token requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"grant_type"}),
	}
	requests, err := register(reg, m.requests)
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, m.duration)
	if err != nil {
		return nil, err
	}
	m.requests, m.duration = requests, duration
	return m, nil
}

// register adds c to reg, or returns the collector registered before under the same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if !errors.As(err, &are) {
			return c, errors.Wrap(err, "[NewMetrics] register")
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, errors.Errorf("[NewMetrics] collector %T already registered", are.ExistingCollector)
		}
		return existing, nil
	}
	return c, nil
}

func (m *Metrics) observe(grantType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(grantType, outcome).Inc()
	m.duration.WithLabelValues(grantType).Observe(elapsed.Seconds())
}
