package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
)

func TestPublishClock_ZeroPadded(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, time.March, 7, 9, 5, 3, 0, time.Local)

	changed, err := f.engine.PublishClock(context.Background(), now)
	require.NoError(t, err)
	assert.Len(t, changed, 8)

	for name, want := range map[string]string{
		"date_y":   "2026",
		"date_m":   "03",
		"date_d":   "07",
		"time_hms": "09:05:03",
		"time_hm":  "09:05",
		"time_h":   "09",
		"time_m":   "05",
		"time_s":   "03",
	} {
		got, ok := f.host.Lookup(ref(domain.InternalNamespace, name))
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestPublishClock_OnlyChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.SubscribeFeedback(domain.Feedback{
		ID:      "minute",
		Type:    domain.FeedbackVariableValue,
		Options: map[string]any{"variable": "internal:time_m", "value": "06"},
	})
	require.NoError(t, err)
	now := time.Date(2026, time.March, 7, 9, 5, 58, 0, time.Local)

	_, err = f.engine.PublishClock(ctx, now)
	require.NoError(t, err)
	f.host.ResetEffects()

	changed, err := f.engine.PublishClock(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []domain.VariableRef{ref("internal", "time_hms"), ref("internal", "time_s")}, changed)
	assert.Empty(t, f.host.EffectsOf(memory.OpRecompute))

	changed, err = f.engine.PublishClock(ctx, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Len(t, changed, 4, "time_hms, time_hm, time_m and time_s")
	recompute := f.host.EffectsOf(memory.OpRecompute)
	require.Len(t, recompute, 1)
	assert.Equal(t, []any{[]string{"minute"}}, recompute[0].Args)

	changed, err = f.engine.PublishClock(ctx, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestRunClock_StopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.engine.RunClock(ctx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		_, ok := f.host.Lookup(ref("internal", "time_hms"))
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clock did not stop")
	}
}
