package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guidebook"

// Metrics records engine activity as prometheus collectors.
type Metrics struct {
	LeavesRun     *prometheus.CounterVec
	LeafDuration  *prometheus.HistogramVec
	LeavesRunning prometheus.Gauge
	Validations   *prometheus.CounterVec
	Expansions    *prometheus.CounterVec
	Decisions     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses a fresh registry, which keeps tests and multiple engines apart.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		LeavesRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaves_run_total",
			Help:      "Leaves executed, by language and final status.",
		}, []string{"lang", "status"}),
		LeafDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaf_duration_seconds",
			Help:      "Duration of synchronous leaf executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"lang"}),
		LeavesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leaves_running",
			Help:      "Leaves currently executing.",
		}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Validation commands resolved, by status and cache hit.",
		}, []string{"status", "cached"}),
		Expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansions_total",
			Help:      "Dynamic option expansions, by outcome.",
		}, []string{"outcome"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Choices answered.",
		}, []string{"context"}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		m.LeavesRun, m.LeafDuration, m.LeavesRunning, m.Validations, m.Expansions, m.Decisions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnLeafStart: func(_ context.Context, e *domain.LeafEvent) {
			if !e.Async {
				m.LeavesRunning.Inc()
			}
		},
		OnLeafFinish: func(_ context.Context, e *domain.LeafEvent) {
			lang := e.Lang
			if lang == "" {
				lang = "sh"
			}
			m.LeavesRun.WithLabelValues(lang, string(e.Status)).Inc()
			if !e.Async {
				m.LeavesRunning.Dec()
				m.LeafDuration.WithLabelValues(lang).Observe(e.Duration.Seconds())
			}
		},
		OnValidate: func(_ context.Context, e *domain.ValidateEvent) {
			cached := "false"
			if e.Cached {
				cached = "true"
			}
			m.Validations.WithLabelValues(string(e.Status), cached).Inc()
		},
		OnExpand: func(_ context.Context, e *domain.ExpandEvent) {
			outcome := "ok"
			if e.Failed {
				outcome = "failed"
			}
			m.Expansions.WithLabelValues(outcome).Inc()
		},
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			m.Decisions.WithLabelValues(e.Context).Inc()
		},
	}
}

// Handler serves the collected metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
