package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skobkin/presencego/internal/bus"
	"github.com/skobkin/presencego/internal/connectors"
)

const DefaultNamespace = "presencego"

var connectionStates = []connectors.ConnectionState{
	connectors.ConnectionStateDisconnected,
	connectors.ConnectionStateConnecting,
	connectors.ConnectionStateConnected,
	connectors.ConnectionStateReconnecting,
}

// Collector turns bus events into Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	connectionState *prometheus.GaugeVec
	connects        prometheus.Counter
	disconnects     prometheus.Counter
	events          *prometheus.CounterVec
	peerErrors      *prometheus.CounterVec
	presenceSent    *prometheus.CounterVec

	mu        sync.Mutex
	lastState connectors.ConnectionState
}

func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		connectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state; the active state is 1",
		}, []string{"state"}),

		connects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Sessions that reached the ready state",
		}),

		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Ready sessions that were lost",
		}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Bus events by topic",
		}, []string{"topic"}),

		peerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_errors_total",
			Help:      "ERROR events received from the peer by code",
		}, []string{"code"}),

		presenceSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_updates_total",
			Help:      "Activity updates written to the peer",
		}, []string{"kind"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Start consumes every bus topic until ctx is done.
func (c *Collector) Start(ctx context.Context, b bus.MessageBus) {
	topics := connectors.AllTopics()
	sub := b.Subscribe(topics...)
	go func() {
		defer bus.Release(b, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub:
				if !ok {
					return
				}
				c.Observe(msg)
			}
		}
	}()
}

// Observe records one bus message.
func (c *Collector) Observe(msg any) {
	switch m := msg.(type) {
	case connectors.ConnectionStatus:
		c.events.WithLabelValues(connectors.TopicConnStatus).Inc()
		c.observeState(m.State)
	case connectors.ReadyEvent:
		c.events.WithLabelValues(connectors.TopicReady).Inc()
	case connectors.PeerError:
		c.events.WithLabelValues(connectors.TopicPeerError).Inc()
		c.peerErrors.WithLabelValues(strconv.Itoa(m.Code)).Inc()
	case connectors.ActivityJoin:
		c.events.WithLabelValues(connectors.TopicActivityJoin).Inc()
	case connectors.ActivitySpectate:
		c.events.WithLabelValues(connectors.TopicActivitySpectate).Inc()
	case connectors.JoinRequest:
		c.events.WithLabelValues(connectors.TopicJoinRequest).Inc()
	case connectors.PresenceSent:
		c.events.WithLabelValues(connectors.TopicPresenceSent).Inc()
		kind := "set"
		if m.Activity == nil {
			kind = "clear"
		}
		c.presenceSent.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) observeState(state connectors.ConnectionState) {
	c.mu.Lock()
	previous := c.lastState
	c.lastState = state
	c.mu.Unlock()

	for _, s := range connectionStates {
		value := 0.0
		if s == state {
			value = 1
		}
		c.connectionState.WithLabelValues(string(s)).Set(value)
	}
	if state == connectors.ConnectionStateConnected && previous != connectors.ConnectionStateConnected {
		c.connects.Inc()
	}
	if previous == connectors.ConnectionStateConnected && state == connectors.ConnectionStateReconnecting {
		c.disconnects.Inc()
	}
}
