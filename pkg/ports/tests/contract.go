package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHistoryStoreContract runs a suite of tests to verify that a HistoryStore
// implementation adheres to the defined interface contract.
func RunHistoryStoreContract(t *testing.T, store ports.HistoryStore) {
	t.Helper()

	ctx := context.Background()
	surface := domain.SurfaceID("contract-surface-" + time.Now().Format("20060102150405"))

	t.Run("Save and Load", func(t *testing.T) {
		history := domain.NewHistory("1")
		history.Push("5", domain.DefaultHistoryLimit)

		err := store.Save(ctx, surface, history)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, surface)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, []domain.PageRef{"1", "5"}, loaded.Entries)
		assert.Equal(t, 1, loaded.Index)
	})

	t.Run("Load Returns Independent Copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, surface, domain.NewHistory("1")))

		loaded, err := store.Load(ctx, surface)
		require.NoError(t, err)
		loaded.Push("9", domain.DefaultHistoryLimit)

		again, err := store.Load(ctx, surface)
		require.NoError(t, err)
		assert.Equal(t, []domain.PageRef{"1"}, again.Entries, "mutating a loaded history must not affect the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+surface)
		assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, surface, domain.NewHistory("1")))

		err := store.Delete(ctx, surface)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, surface)
		assert.ErrorIs(t, err, domain.ErrHistoryNotFound, "Load after Delete should return ErrHistoryNotFound")
	})

	t.Run("List", func(t *testing.T) {
		s1 := surface + "-1"
		s2 := surface + "-2"
		_ = store.Save(ctx, s1, domain.NewHistory("1"))
		_ = store.Save(ctx, s2, domain.NewHistory("2"))

		defer func() {
			_ = store.Delete(ctx, s1)
			_ = store.Delete(ctx, s2)
		}()

		surfaces, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, surfaces, s1)
		assert.Contains(t, surfaces, s2)
	})
}
