package amqp

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the narrow instrumentation seam the publisher and
// delivery dispatcher increment. Like Logger, this is not a feature
// the design spec asks the engine to build (Non-goals exclude an
// observability product) — it's the ambient counters the rest of the
// corpus's RabbitMQ wrappers all expose next to their client.
type Metrics interface {
	IncPublished()
	IncDelivered()
	IncConfirmed(ack bool)
	IncReturned()
	IncChannelRecycle()
}

// NoopMetrics discards every increment; it is the default when no
// Metrics implementation is supplied.
type NoopMetrics struct{}

func (NoopMetrics) IncPublished()       {}
func (NoopMetrics) IncDelivered()       {}
func (NoopMetrics) IncConfirmed(bool)   {}
func (NoopMetrics) IncReturned()        {}
func (NoopMetrics) IncChannelRecycle()  {}

// PrometheusMetrics is a ready-made Metrics implementation backed by
// a prometheus.CounterVec registered under the "amqp_client" namespace.
type PrometheusMetrics struct {
	published      prometheus.Counter
	delivered      prometheus.Counter
	confirmed      *prometheus.CounterVec
	returned       prometheus.Counter
	channelRecycle prometheus.Counter
}

// NewPrometheusMetrics builds and registers the counters against reg.
// Pass prometheus.DefaultRegisterer to use the global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amqp_client", Name: "messages_published_total",
			Help: "Messages handed to the transport via Basic.Publish.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amqp_client", Name: "messages_delivered_total",
			Help: "Messages dispatched to a consumer callback.",
		}),
		confirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amqp_client", Name: "publisher_confirms_total",
			Help: "Publisher confirms received, labeled by outcome.",
		}, []string{"result"}),
		returned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amqp_client", Name: "messages_returned_total",
			Help: "Basic.Return frames received.",
		}),
		channelRecycle: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amqp_client", Name: "channel_recycles_total",
			Help: "Times the single application channel was recycled after a soft error.",
		}),
	}
	reg.MustRegister(m.published, m.delivered, m.confirmed, m.returned, m.channelRecycle)
	return m
}

func (m *PrometheusMetrics) IncPublished() { m.published.Inc() }
func (m *PrometheusMetrics) IncDelivered() { m.delivered.Inc() }
func (m *PrometheusMetrics) IncConfirmed(ack bool) {
	if ack {
		m.confirmed.WithLabelValues("ack").Inc()
	} else {
		m.confirmed.WithLabelValues("nack").Inc()
	}
}
func (m *PrometheusMetrics) IncReturned()       { m.returned.Inc() }
func (m *PrometheusMetrics) IncChannelRecycle() { m.channelRecycle.Inc() }
