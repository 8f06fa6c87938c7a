// Package observability provides prometheus metrics for the dispatch
// service.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Dispatch *DispatchMetrics
}

// NewMetrics creates the metric registry and all collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dispatchMetrics, err := NewDispatchMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Dispatch: dispatchMetrics,
	}, nil
}

// Handler returns an http.Handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DispatchMetrics collects metrics for order broadcasts and proximity
// alerts.
type DispatchMetrics struct {
	BroadcastsTotal     prometheus.Counter
	BroadcastDuration   prometheus.Histogram
	CarriersMatched     prometheus.Counter
	CarriersSkipped     prometheus.Counter
	DeliveredTotal      *prometheus.CounterVec
	FailuresTotal       *prometheus.CounterVec
	ProximityAlertTotal *prometheus.CounterVec
}

// NewDispatchMetrics creates and registers the dispatch collectors.
func NewDispatchMetrics(registry *prometheus.Registry) (*DispatchMetrics, error) {
	m := &DispatchMetrics{
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vantazh_broadcasts_total",
			Help: "Number of order broadcast fan-outs performed",
		}),
		BroadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vantazh_broadcast_duration_seconds",
			Help:    "Wall time of one order broadcast fan-out",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		CarriersMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vantazh_carriers_matched_total",
			Help: "Carriers whose preference profile matched a broadcast order",
		}),
		CarriersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vantazh_carriers_skipped_total",
			Help: "Carriers filtered out by their preference profile",
		}),
		DeliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vantazh_notifications_delivered_total",
			Help: "Successful notification deliveries by channel",
		}, []string{"channel"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vantazh_notification_failures_total",
			Help: "Failed notification deliveries by channel",
		}, []string{"channel"}),
		ProximityAlertTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vantazh_proximity_alerts_total",
			Help: "Proximity alerts triggered by tier",
		}, []string{"tier"}),
	}

	for _, c := range []prometheus.Collector{
		m.BroadcastsTotal,
		m.BroadcastDuration,
		m.CarriersMatched,
		m.CarriersSkipped,
		m.DeliveredTotal,
		m.FailuresTotal,
		m.ProximityAlertTotal,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering dispatch collector: %w", err)
		}
	}

	return m, nil
}

// RecordDelivery counts one delivery outcome for a channel.
func (m *DispatchMetrics) RecordDelivery(channel string, success bool) {
	if m == nil {
		return
	}
	if success {
		m.DeliveredTotal.WithLabelValues(channel).Inc()
	} else {
		m.FailuresTotal.WithLabelValues(channel).Inc()
	}
}
