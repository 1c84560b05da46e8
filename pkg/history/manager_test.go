package history_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/history"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_UpdateSerializesPerSurface(t *testing.T) {
	mgr := history.NewManager(memory.NewHistoryStore())
	ctx := context.Background()
	surface := domain.SurfaceID("SN-1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := mgr.Update(ctx, surface, func(h *domain.History) (*domain.History, error) {
				if h == nil {
					h = domain.NewHistory("1")
				}
				time.Sleep(time.Millisecond) // widen the read-modify-write window
				h.Push(domain.PageRef(fmt.Sprint(n+10)), domain.DefaultHistoryLimit)
				return h, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	h, err := mgr.Load(ctx, surface)
	require.NoError(t, err)
	assert.Len(t, h.Entries, 21, "no update may be lost")
	assert.Equal(t, 20, h.Index)
}

func TestManager_UpdateNilKeepsStore(t *testing.T) {
	store := memory.NewHistoryStore()
	mgr := history.NewManager(store)
	ctx := context.Background()

	got, err := mgr.Update(ctx, "SN-2", func(h *domain.History) (*domain.History, error) {
		assert.Nil(t, h)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.Load(ctx, "SN-2")
	assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
}

func TestManager_UpdateErrorSkipsSave(t *testing.T) {
	store := memory.NewHistoryStore()
	mgr := history.NewManager(store)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := mgr.Update(ctx, "SN-3", func(h *domain.History) (*domain.History, error) {
		return domain.NewHistory("1"), boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Load(ctx, "SN-3")
	assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
}

type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	failWith error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.locks++
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	mgr := history.NewManager(memory.NewHistoryStore(), history.WithLocker(locker), history.WithLockTTL(time.Second))
	ctx := context.Background()

	_, err := mgr.Update(ctx, "SN-4", func(h *domain.History) (*domain.History, error) {
		return domain.NewHistory("1"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)

	locker.failWith = errors.New("redis down")
	_, err = mgr.Load(ctx, "SN-4")
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
