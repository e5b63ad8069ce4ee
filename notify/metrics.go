package notify

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// Metrics holds the delivery instrumentation for one Dispatcher.
type Metrics struct {
	DeliveryAttemptsTotal *prometheus.CounterVec
	DeliveryDuration      *prometheus.HistogramVec
}

func NewMetrics(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		DeliveryAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alerting",
			Name:      "delivery_attempts_total",
			Help:      "Delivery attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		DeliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alerting",
			Name:      "delivery_duration_seconds",
			Help:      "Time spent on one delivery attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if r != nil {
		r.MustRegister(m.DeliveryAttemptsTotal, m.DeliveryDuration)
	}
	return m
}
