package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/support-engine/internal/events"
)

// Metrics exposes Prometheus collectors for the engine.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpErrors    *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	ticketsOpened *prometheus.CounterVec
	ticketsRouted *prometheus.CounterVec
	escalations   prometheus.Counter
	slaBreaches   prometheus.Counter
	verdicts      *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	notifications *prometheus.CounterVec
	notifyDrops   prometheus.Counter
}

// NewMetrics initializes and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP error responses by path, method and error code.",
		}, []string{"path", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		ticketsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickets_created_total",
			Help: "Tickets created by priority.",
		}, []string{"priority"}),
		ticketsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickets_routed_total",
			Help: "Routing outcomes by method.",
		}, []string{"method"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_escalations_total",
			Help: "Ticket escalations from any trigger.",
		}),
		slaBreaches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_breaches_total",
			Help: "First-response SLA breaches detected by the monitor.",
		}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentiment_verdicts_total",
			Help: "Sentiment verdicts by label.",
		}, []string{"label"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Duration of SLA monitor sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Notification intents delivered by sink and outcome.",
		}, []string{"sink", "outcome"}),
		notifyDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Notification intents dropped after exhausting retries or on a full queue.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpErrors,
		m.httpDuration,
		m.ticketsOpened,
		m.ticketsRouted,
		m.escalations,
		m.slaBreaches,
		m.verdicts,
		m.sweepDuration,
		m.notifications,
		m.notifyDrops,
	)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments request metrics.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error metrics.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// RecordDelivery counts one sink delivery attempt.
func (m *Metrics) RecordDelivery(sink string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.notifications.WithLabelValues(sink, outcome).Inc()
}

// RecordNotificationDrop counts one intent lost for good.
func (m *Metrics) RecordNotificationDrop() {
	if m == nil {
		return
	}
	m.notifyDrops.Inc()
}

// RecordSweep observes one SLA monitor sweep.
func (m *Metrics) RecordSweep(breached int, duration time.Duration) {
	if m == nil {
		return
	}
	m.slaBreaches.Add(float64(breached))
	m.sweepDuration.Observe(duration.Seconds())
}

// RegisterEventHandlers derives domain counters from the event stream so
// services stay free of metrics plumbing.
func (m *Metrics) RegisterEventHandlers(dispatcher events.Dispatcher) {
	if m == nil || dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
			m.ticketsOpened.WithLabelValues(string(payload.Priority)).Inc()
			m.ticketsRouted.WithLabelValues(string(payload.RoutingMethod)).Inc()
		}
		return nil
	})
	dispatcher.Subscribe(events.EventTicketEscalated, func(_ context.Context, _ events.Event) error {
		m.escalations.Inc()
		return nil
	})
	dispatcher.Subscribe(events.EventSlaBreached, func(_ context.Context, _ events.Event) error {
		m.escalations.Inc()
		return nil
	})
	dispatcher.Subscribe(events.EventSentimentRecorded, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.SentimentRecordedPayload); ok {
			m.verdicts.WithLabelValues(string(payload.Label)).Inc()
		}
		return nil
	})
}
