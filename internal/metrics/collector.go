package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/reachd/pkg/reachability"
)

const namespace = "reachd"

// Collector turns reachability events into Prometheus series.
type Collector struct {
	registry *reachability.Registry
	topic    string
	reg      *prometheus.Registry

	status      *prometheus.GaugeVec
	transitions *prometheus.CounterVec

	mu     sync.Mutex
	sub    *reachability.Subscription
	closed bool
}

func NewCollector(registry *reachability.Registry, topic string) *Collector {
	c := &Collector{
		registry: registry,
		topic:    topic,
		reg:      prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reachability_status",
			Help:      "Current reachability status (0 not reachable, 1 cellular, 2 local network).",
		}, []string{"host"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reachability_transitions_total",
			Help:      "Reachability transitions by resulting status.",
		}, []string{"host", "status"}),
	}
	c.reg.MustRegister(
		c.status,
		c.transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.sub = registry.Subscribe(topic)
	return c
}

// Seed sets the gauge for host without counting a transition.
func (c *Collector) Seed(host string, s reachability.Status) {
	c.status.WithLabelValues(hostLabel(host)).Set(float64(s))
}

// Observe records one transition.
func (c *Collector) Observe(ev reachability.Event) {
	host := hostLabel(ev.Host)
	c.status.WithLabelValues(host).Set(float64(ev.Status))
	c.transitions.WithLabelValues(host, ev.Status.String()).Inc()
}

// Start consumes events until ctx is done or the collector is closed.
func (c *Collector) Start(ctx context.Context) error {
	log.WithField("topic", c.topic).Info("Starting metrics collector")
	defer log.Info("Stopping metrics collector")

	ch := c.sub.C()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			c.Observe(ev)
		}
	}
}

func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.registry.Unsubscribe(c.sub)
	return nil
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.reg
}

func hostLabel(host string) string {
	if host == "" {
		return "default"
	}
	return host
}
