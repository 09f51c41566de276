package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - счетчики конвейера инцидентов
type Metrics struct {
	IncidentsIngested prometheus.Counter
	IncidentsRejected prometheus.Counter
	AlertsPublished   prometheus.Counter
	AlertsDelivered   prometheus.Counter
	AlertsFailed      prometheus.Counter

	registry *prometheus.Registry
}

// New создает экземпляр Metrics с зарегистрированными коллекторами Prometheus
func New() *Metrics {
	m := &Metrics{
		IncidentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyeonstreet_incidents_ingested_total",
			Help: "Total incidents persisted from detection events",
		}),
		IncidentsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyeonstreet_incidents_rejected_total",
			Help: "Total detection events rejected by validation or image decoding",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyeonstreet_alerts_published_total",
			Help: "Total alert events enqueued for delivery",
		}),
		AlertsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyeonstreet_alerts_delivered_total",
			Help: "Total WhatsApp alerts accepted by the gateway",
		}),
		AlertsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eyeonstreet_alerts_failed_total",
			Help: "Total alert deliveries that exhausted their attempts",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.IncidentsIngested,
		m.IncidentsRejected,
		m.AlertsPublished,
		m.AlertsDelivered,
		m.AlertsFailed,
	)

	return m
}

// Handler возвращает HTTP-обработчик, отдающий метрики Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
