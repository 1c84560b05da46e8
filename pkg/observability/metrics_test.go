package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNavigate(ctx, &domain.NavigationEvent{Surface: "S", Target: "5", Assigned: "5", Trimmed: 2})
	hooks.OnNavigate(ctx, &domain.NavigationEvent{Surface: "S", Target: domain.PageBack})
	hooks.OnUnresolved(ctx, &domain.ResolutionEvent{Kind: domain.FieldBank, Value: "77"})
	hooks.OnRecursion(ctx, &domain.RecursionEvent{Variable: "b_text_1_1"})
	hooks.OnRecompute(ctx, &domain.RecomputeEvent{IDs: []string{"a", "b"}})
	hooks.OnRecompute(ctx, &domain.RecomputeEvent{Types: []domain.FeedbackType{domain.FeedbackBankStyle}})
	hooks.OnInvalidated(ctx, &domain.InvalidationEvent{StyleChanged: true, TextChanged: true})
	hooks.OnInvalidated(ctx, &domain.InvalidationEvent{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Navigations.WithLabelValues("explicit", "assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Navigations.WithLabelValues("back", "boundary")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HistoryTrimmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Unresolved.WithLabelValues("bank")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recursions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recomputes.WithLabelValues("ids")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recomputes.WithLabelValues("types")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Recomputed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invalidations.WithLabelValues("style")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invalidations.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invalidations.WithLabelValues("none")))
}

func TestChainHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnNavigate: func(ctx context.Context, e *domain.NavigationEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnNavigate:  func(ctx context.Context, e *domain.NavigationEvent) { calls = append(calls, "b") },
		OnRecursion: func(ctx context.Context, e *domain.RecursionEvent) { calls = append(calls, "rec") },
	}

	hooks := observability.ChainHooks(a, domain.LifecycleHooks{}, b)
	hooks.OnNavigate(context.Background(), &domain.NavigationEvent{})
	hooks.OnRecursion(context.Background(), &domain.RecursionEvent{})

	assert.Equal(t, []string{"a", "b", "rec"}, calls)
	assert.Nil(t, hooks.OnUnresolved)
}
