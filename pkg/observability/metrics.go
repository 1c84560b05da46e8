package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/switchboard/pkg/domain"
)

const namespace = "switchboard"

// Metrics holds the engine counters.
type Metrics struct {
	Navigations    *prometheus.CounterVec
	HistoryTrimmed prometheus.Counter
	Unresolved     *prometheus.CounterVec
	Recursions     prometheus.Counter
	Recomputes     *prometheus.CounterVec
	Recomputed     prometheus.Counter
	Invalidations  *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_total",
			Help:      "Navigation requests by direction and outcome.",
		}, []string{"direction", "outcome"}),
		HistoryTrimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_trimmed_entries_total",
			Help:      "History entries dropped to honour the per-surface limit.",
		}),
		Unresolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_references_total",
			Help:      "Variable-driven fields that did not resolve, by field kind.",
		}, []string{"kind"}),
		Recursions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recursion_detected_total",
			Help:      "Display texts that referenced their own variable.",
		}),
		Recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_recomputes_total",
			Help:      "Recompute requests sent to the feedback engine, by mode.",
		}, []string{"mode"}),
		Recomputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedbacks_recomputed_total",
			Help:      "Feedback ids named in recompute requests.",
		}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bank_invalidations_total",
			Help:      "Bank invalidations by resulting signal.",
		}, []string{"signal"}),
	}

	reg.MustRegister(
		m.Navigations,
		m.HistoryTrimmed,
		m.Unresolved,
		m.Recursions,
		m.Recomputes,
		m.Recomputed,
		m.Invalidations,
	)
	return m
}

// Hooks returns lifecycle hooks that update the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNavigate: func(_ context.Context, e *domain.NavigationEvent) {
			direction := "explicit"
			if e.Target.IsDirective() {
				direction = string(e.Target)
			}
			outcome := "assigned"
			if e.Assigned == "" {
				outcome = "boundary"
			}
			m.Navigations.WithLabelValues(direction, outcome).Inc()
			m.HistoryTrimmed.Add(float64(e.Trimmed))
		},
		OnUnresolved: func(_ context.Context, e *domain.ResolutionEvent) {
			m.Unresolved.WithLabelValues(string(e.Kind)).Inc()
		},
		OnRecursion: func(_ context.Context, _ *domain.RecursionEvent) {
			m.Recursions.Inc()
		},
		OnRecompute: func(_ context.Context, e *domain.RecomputeEvent) {
			if len(e.IDs) > 0 {
				m.Recomputes.WithLabelValues("ids").Inc()
				m.Recomputed.Add(float64(len(e.IDs)))
			}
			if len(e.Types) > 0 {
				m.Recomputes.WithLabelValues("types").Inc()
			}
		},
		OnInvalidated: func(_ context.Context, e *domain.InvalidationEvent) {
			if e.StyleChanged {
				m.Invalidations.WithLabelValues("style").Inc()
			}
			if e.TextChanged {
				m.Invalidations.WithLabelValues("text").Inc()
			}
			if !e.StyleChanged && !e.TextChanged {
				m.Invalidations.WithLabelValues("none").Inc()
			}
		},
	}
}

// ChainHooks returns hooks that call every non-nil hook of each set in order.
func ChainHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		out.OnNavigate = chain(out.OnNavigate, s.OnNavigate)
		out.OnUnresolved = chain(out.OnUnresolved, s.OnUnresolved)
		out.OnRecursion = chain(out.OnRecursion, s.OnRecursion)
		out.OnRecompute = chain(out.OnRecompute, s.OnRecompute)
		out.OnInvalidated = chain(out.OnInvalidated, s.OnInvalidated)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
