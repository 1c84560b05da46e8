package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
)

func TestEvaluate_VariableValue(t *testing.T) {
	tests := []struct {
		op    string
		value string
		want  bool
	}{
		{"eq", "10", true},
		{"", "10", true},
		{"eq", "11", false},
		{"ne", "11", true},
		{"gt", "9.5", true},
		{"gt", "10", false},
		{"lt", "11", true},
		{"lt", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.op+"_"+tt.value, func(t *testing.T) {
			f := newFixture(t)
			f.host.Set(ref("internal", "custom_level"), "10")

			got, err := f.engine.Evaluate(context.Background(), domain.Feedback{
				ID:   "fb",
				Type: domain.FeedbackVariableValue,
				Options: map[string]any{
					"variable": "internal:custom_level",
					"op":       tt.op,
					"value":    tt.value,
				},
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_VariableVariable(t *testing.T) {
	f := newFixture(t)
	f.host.Set(ref("a", "x"), "3")
	f.host.Set(ref("b", "y"), "3")

	fb := domain.Feedback{
		ID:      "fb",
		Type:    domain.FeedbackVariableVariable,
		Options: map[string]any{"variable": "a:x", "variable2": "b:y", "op": "eq"},
	}
	got, err := f.engine.Evaluate(context.Background(), fb, nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	f.host.Set(ref("b", "y"), "4")
	got, err = f.engine.Evaluate(context.Background(), fb, nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestEvaluate_BankStyleUsesContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := domain.BankKey{Page: "2", Bank: "7"}
	f.host.SetBase(key, domain.Style{"style": "png", "text": "Go"})
	_, err := f.engine.Invalidate(ctx, key)
	require.NoError(t, err)

	got, err := f.engine.Evaluate(ctx, domain.Feedback{
		ID:      "fb",
		Type:    domain.FeedbackBankStyle,
		Options: map[string]any{"page": 0, "bank": 0},
	}, &domain.ContextExtras{Page: "2", Bank: "7"})
	require.NoError(t, err)
	assert.Equal(t, domain.Style{"style": "png", "text": "Go"}, got)

	got, err = f.engine.Evaluate(ctx, domain.Feedback{
		ID:      "fb",
		Type:    domain.FeedbackBankStyle,
		Options: map[string]any{"page": "9", "bank": "9"},
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEvaluate_BankPushed(t *testing.T) {
	f := newFixture(t)
	f.host.SetPushed(domain.BankKey{Page: "1", Bank: "3"}, true)

	got, err := f.engine.Evaluate(context.Background(), domain.Feedback{
		ID:      "fb",
		Type:    domain.FeedbackBankPushed,
		Options: map[string]any{"page": "1", "bank": 3},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestEvaluate_SurfaceOnPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.host.AddSurface("U", "4")

	eval := func(controller, page string, info *domain.ContextExtras) any {
		t.Helper()
		got, err := f.engine.Evaluate(ctx, domain.Feedback{
			ID:      "fb",
			Type:    domain.FeedbackSurfaceOnPage,
			Options: map[string]any{"controller": controller, "page": page},
		}, info)
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, true, eval("U", "4", nil))
	assert.Equal(t, false, eval("S", "4", nil))
	assert.Equal(t, true, eval("any", "4", nil))
	assert.Equal(t, false, eval("any", "5", nil))
	assert.Equal(t, true, eval("self", "0", &domain.ContextExtras{Page: "4", DeviceID: "U"}))

	_, err := f.engine.Evaluate(ctx, domain.Feedback{
		ID:      "fb",
		Type:    domain.FeedbackSurfaceOnPage,
		Options: map[string]any{"controller": "self", "page": "1"},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrSurfaceUnresolved)
}

func TestEvaluate_UnknownType(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Evaluate(context.Background(), domain.Feedback{ID: "fb", Type: "instance_status"}, nil)
	assert.ErrorIs(t, err, domain.ErrUnknownFeedback)
}

func TestSubscribeFeedback(t *testing.T) {
	f := newFixture(t)

	ok, err := f.engine.SubscribeFeedback(domain.Feedback{
		ID:      "v1",
		Type:    domain.FeedbackVariableValue,
		Options: map[string]any{"variable": "internal:custom_level"},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.SubscribeFeedback(domain.Feedback{
		ID:      "v2",
		Type:    domain.FeedbackVariableVariable,
		Options: map[string]any{"variable": "a:x", "variable2": "b:y"},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.SubscribeFeedback(domain.Feedback{ID: "s1", Type: domain.FeedbackBankStyle})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"v1"}, f.engine.Subscriptions().Affected([]domain.VariableRef{ref("internal", "custom_level")}, nil))
	assert.Equal(t, []string{"v2"}, f.engine.Subscriptions().Affected([]domain.VariableRef{ref("b", "y")}, nil))

	ok, err = f.engine.SubscribeFeedback(domain.Feedback{ID: "v1", Type: domain.FeedbackVariableValue})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.engine.Subscriptions().Affected([]domain.VariableRef{ref("internal", "custom_level")}, nil))

	f.engine.UnsubscribeFeedback("v2")
	assert.Zero(t, f.engine.Subscriptions().Len())

	_, err = f.engine.SubscribeFeedback(domain.Feedback{ID: "x", Type: "nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownFeedback)
}

func TestHostEvents_RecomputeByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.OnBankPressed(ctx))
	require.NoError(t, f.engine.OnIndicatePush(ctx))

	effects := f.host.EffectsOf(memory.OpRecomputeTypes)
	require.Len(t, effects, 2)
	assert.Equal(t, []any{[]domain.FeedbackType{domain.FeedbackSurfaceOnPage}}, effects[0].Args)
	assert.Equal(t, []any{[]domain.FeedbackType{domain.FeedbackBankPushed}}, effects[1].Args)
}
