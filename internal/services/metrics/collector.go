// Package metrics exposes Prometheus metrics for conversations, retrieval
// and model calls.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/llm"
)

const namespace = "quarry"

// Collector owns a registry and the metrics recorded from lifecycle events
type Collector struct {
	registry *prometheus.Registry

	conversations    *prometheus.CounterVec
	active           prometheus.Gauge
	duration         *prometheus.HistogramVec
	retrievals       prometheus.Counter
	hits             *prometheus.CounterVec
	figures          prometheus.Counter
	turns            *prometheus.CounterVec
	modelCalls       *prometheus.CounterVec
	modelDuration    *prometheus.HistogramVec
	fragmentsPerCall prometheus.Histogram
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		conversations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_total",
			Help:      "Finished conversations by mode and stop reason",
		}, []string{"mode", "stop_reason"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations_active",
			Help:      "Conversations currently running",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_duration_seconds",
			Help:      "Wall time of finished conversations",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 300},
		}, []string{"mode"}),
		retrievals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_calls_total",
			Help:      "Retrieval tool executions",
		}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_hits_total",
			Help:      "Search hits by outcome",
		}, []string{"outcome"}),
		figures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "figures_cached_total",
			Help:      "Figures added to session caches",
		}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participant_turns_total",
			Help:      "Completed participant turns",
		}, []string{"participant"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model completion calls by client and status",
		}, []string{"client", "status"}),
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Duration of model completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"client"}),
		fragmentsPerCall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_stream_fragments",
			Help:      "Streamed fragments per model call",
			Buckets:   []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		}),
	}

	c.registry.MustRegister(
		c.conversations, c.active, c.duration,
		c.retrievals, c.hits, c.figures, c.turns,
		c.modelCalls, c.modelDuration, c.fragmentsPerCall,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Subscribe records lifecycle events from the bus
func (c *Collector) Subscribe(events interfaces.EventService) error {
	return errors.Join(
		events.Subscribe(interfaces.EventConversationStarted, c.handle),
		events.Subscribe(interfaces.EventRetrievalCompleted, c.handle),
		events.Subscribe(interfaces.EventTurnCompleted, c.handle),
		events.Subscribe(interfaces.EventConversationTerminated, c.handle),
	)
}

func (c *Collector) handle(ctx context.Context, event interfaces.Event) error {
	switch payload := event.Payload.(type) {
	case *models.ConversationRecord:
		switch event.Type {
		case interfaces.EventConversationStarted:
			c.active.Inc()
		case interfaces.EventConversationTerminated:
			c.active.Dec()
			c.conversations.WithLabelValues(string(payload.Mode), payload.StopReason).Inc()
			c.duration.WithLabelValues(string(payload.Mode)).Observe(payload.Duration.Seconds())
		}
	case *interfaces.RetrievalStats:
		c.retrievals.Inc()
		c.hits.WithLabelValues("accepted").Add(float64(payload.Accepted))
		c.hits.WithLabelValues("rejected").Add(float64(payload.Rejected))
		c.hits.WithLabelValues("duplicate").Add(float64(payload.Hits - payload.Accepted - payload.Rejected))
		c.figures.Add(float64(payload.Figures))
	case *interfaces.TurnStats:
		c.turns.WithLabelValues(payload.Participant).Inc()
	}
	return nil
}

// ObserveCall records one model call; it satisfies llm.CallObserver
func (c *Collector) ObserveCall(record llm.CallRecord) {
	status := "ok"
	switch {
	case record.Err == nil:
	case errors.Is(record.Err, context.Canceled):
		status = "cancelled"
	default:
		var timeout *models.BackendTimeoutError
		if errors.As(record.Err, &timeout) {
			status = "timeout"
		} else {
			status = "error"
		}
	}
	c.modelCalls.WithLabelValues(record.Client, status).Inc()
	c.modelDuration.WithLabelValues(record.Client).Observe(record.Duration.Seconds())
	if record.Fragments > 0 {
		c.fragmentsPerCall.Observe(float64(record.Fragments))
	}
}
