package switchboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/adapters/redis"
	"github.com/aretw0/switchboard/pkg/domain"
)

func newHost() *memory.Host {
	return memory.NewHost(memory.HostConfig{
		Pages:    99,
		Banks:    32,
		Surfaces: []domain.SurfaceID{"S"},
	})
}

func TestFacade_NavigateBackAndForward(t *testing.T) {
	host := newHost()
	eng := switchboard.New(switchboard.WithHost(host))
	ctx := context.Background()

	for _, page := range []domain.PageRef{"5", "9", domain.PageBack} {
		_, err := eng.Navigate(ctx, "S", page)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, eng.Pending())
	require.NoError(t, eng.Drain(ctx))

	page, err := host.Page(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, domain.PageRef("5"), page)

	h, err := eng.History(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, []domain.PageRef{"1", "5", "9"}, h.Entries)
	assert.Equal(t, 1, h.Index)

	h, err = eng.Navigate(ctx, "S", domain.PageForward)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Index)
}

func TestFacade_HistoryLimit(t *testing.T) {
	eng := switchboard.New(switchboard.WithHost(newHost()), switchboard.WithHistoryLimit(3))
	ctx := context.Background()

	for _, page := range []domain.PageRef{"2", "3", "4", "5"} {
		_, err := eng.Navigate(ctx, "S", page)
		require.NoError(t, err)
	}
	h, err := eng.History(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, []domain.PageRef{"3", "4", "5"}, h.Entries)
	assert.Equal(t, 2, h.Index)
}

func TestFacade_DefaultsWithoutHost(t *testing.T) {
	eng := switchboard.New()
	require.NotNil(t, eng.Host())

	_, err := eng.History(context.Background(), "S")
	assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
}

func TestFacade_Hooks(t *testing.T) {
	var events []*domain.NavigationEvent
	eng := switchboard.New(
		switchboard.WithHost(newHost()),
		switchboard.WithLifecycleHooks(domain.LifecycleHooks{
			OnNavigate: func(_ context.Context, e *domain.NavigationEvent) { events = append(events, e) },
		}),
	)

	_, err := eng.Navigate(context.Background(), "S", "7")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.PageRef("7"), events[0].Assigned)
}

func TestFacade_VariablesChanged(t *testing.T) {
	host := newHost()
	eng := switchboard.New(switchboard.WithHost(host))
	ctx := context.Background()

	_, err := eng.SubscribeFeedback(domain.Feedback{
		ID:      "fb1",
		Type:    domain.FeedbackVariableValue,
		Options: map[string]any{"variable": "atem:pgm", "op": "eq", "value": "1"},
	})
	require.NoError(t, err)

	ids, err := eng.VariablesChanged(ctx, []domain.VariableRef{{Namespace: "atem", Name: "pgm"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"fb1"}, ids)

	eng.UnsubscribeFeedback("fb1")
	ids, err = eng.VariablesChanged(ctx, []domain.VariableRef{{Namespace: "atem", Name: "pgm"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Len(t, host.EffectsOf(memory.OpRecompute), 1)
}

func TestFacade_InvalidateAndSnapshot(t *testing.T) {
	host := newHost()
	eng := switchboard.New(switchboard.WithHost(host))
	ctx := context.Background()
	key := domain.BankKey{Page: "1", Bank: "1"}
	host.SetBase(key, domain.Style{"style": "png", "text": "Cam $(atem:pgm)"})
	host.Set(domain.VariableRef{Namespace: "atem", Name: "pgm"}, "2")

	res, err := eng.Invalidate(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.TextChanged)

	snap, ok := eng.Snapshot(key)
	require.True(t, ok)
	assert.Equal(t, "Cam 2", snap.Text)
}

func TestFacade_SharedRedisHistory(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := redis.NewFromClient(client)
	locker := redis.NewLocker(client, redis.DefaultPrefix)
	ctx := context.Background()

	a := switchboard.New(switchboard.WithHost(newHost()), switchboard.WithHistoryStore(store), switchboard.WithLocker(locker, time.Second))
	b := switchboard.New(switchboard.WithHost(newHost()), switchboard.WithHistoryStore(store), switchboard.WithLocker(locker, time.Second))

	_, err := a.Navigate(ctx, "S", "4")
	require.NoError(t, err)
	h, err := b.Navigate(ctx, "S", domain.PageBack)
	require.NoError(t, err)

	assert.Equal(t, []domain.PageRef{"1", "4"}, h.Entries)
	assert.Equal(t, 0, h.Index)
}
