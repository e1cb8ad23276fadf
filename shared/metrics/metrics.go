package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the counters both services record. Each Collector owns its
// registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	cacheLookups    *prometheus.CounterVec
	remoteLookups   *prometheus.CounterVec
	eventsConsumed  *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	movements       *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "client_cache_lookups_total",
			Help: "Client cache lookups by result (hit, miss)",
		}, []string{"result"}),
		remoteLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "client_remote_lookups_total",
			Help: "Synchronous client-service lookups by outcome",
		}, []string{"outcome"}),
		eventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "client_events_consumed_total",
			Help: "Client events consumed by kind and outcome",
		}, []string{"kind", "outcome"}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "client_events_published_total",
			Help: "Client events published by kind and outcome",
		}, []string{"kind", "outcome"}),
		movements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_movements_total",
			Help: "Movement writes by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
}

func (c *Collector) CacheHit()  { c.cacheLookups.WithLabelValues("hit").Inc() }
func (c *Collector) CacheMiss() { c.cacheLookups.WithLabelValues("miss").Inc() }

func (c *Collector) RemoteLookup(outcome string) {
	c.remoteLookups.WithLabelValues(outcome).Inc()
}

func (c *Collector) EventConsumed(kind, outcome string) {
	c.eventsConsumed.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) EventPublished(kind, outcome string) {
	c.eventsPublished.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) Movement(operation, outcome string) {
	c.movements.WithLabelValues(operation, outcome).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
