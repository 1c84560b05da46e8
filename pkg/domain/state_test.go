package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_Push(t *testing.T) {
	h := NewHistory("1")
	trimmed := h.Push("5", DefaultHistoryLimit)

	assert.Equal(t, 0, trimmed)
	assert.Equal(t, []PageRef{"1", "5"}, h.Entries)
	assert.Equal(t, 1, h.Index)
	assert.Equal(t, PageRef("5"), h.Current())
}

func TestHistory_PushDiscardsForward(t *testing.T) {
	h := NewHistory("1")
	h.Push("2", DefaultHistoryLimit)
	h.Push("3", DefaultHistoryLimit)

	_, ok := h.Step(PageBack)
	require.True(t, ok)
	_, ok = h.Step(PageBack)
	require.True(t, ok)

	h.Push("9", DefaultHistoryLimit)
	assert.Equal(t, []PageRef{"1", "9"}, h.Entries)
	assert.Equal(t, 1, h.Index)
}

func TestHistory_PushDoesNotAliasClone(t *testing.T) {
	h := NewHistory("1")
	h.Push("2", DefaultHistoryLimit)
	h.Push("3", DefaultHistoryLimit)
	h.Step(PageBack)

	clone := h.Clone()
	h.Push("7", DefaultHistoryLimit)

	assert.Equal(t, []PageRef{"1", "2", "3"}, clone.Entries, "clone must not see later pushes")
	assert.Equal(t, []PageRef{"1", "2", "7"}, h.Entries)
}

func TestHistory_Limit(t *testing.T) {
	h := NewHistory("0")
	for i := 1; i <= 250; i++ {
		h.Push(PageRef(fmt.Sprint(i)), DefaultHistoryLimit)
		if len(h.Entries) > DefaultHistoryLimit {
			t.Fatalf("history grew to %d entries", len(h.Entries))
		}
		if h.Index != len(h.Entries)-1 {
			t.Fatalf("index %d does not point at the last entry (%d)", h.Index, len(h.Entries)-1)
		}
	}

	assert.Equal(t, PageRef("151"), h.Entries[0], "oldest entries dropped first")
	assert.Equal(t, PageRef("250"), h.Current())
}

func TestHistory_LimitKeepsLogicalCursor(t *testing.T) {
	h := NewHistory("a")
	h.Push("b", 3)
	h.Push("c", 3)
	trimmed := h.Push("d", 3)

	assert.Equal(t, 1, trimmed)
	assert.Equal(t, []PageRef{"b", "c", "d"}, h.Entries)
	assert.Equal(t, PageRef("d"), h.Current())
}

func TestHistory_StepBoundaries(t *testing.T) {
	h := NewHistory("1")

	_, ok := h.Step(PageBack)
	assert.False(t, ok, "back on a single entry is a no-op")
	_, ok = h.Step(PageForward)
	assert.False(t, ok, "forward on a single entry is a no-op")
	assert.Equal(t, 0, h.Index)

	h.Push("2", DefaultHistoryLimit)
	page, ok := h.Step(PageBack)
	assert.True(t, ok)
	assert.Equal(t, PageRef("1"), page)

	page, ok = h.Step(PageForward)
	assert.True(t, ok)
	assert.Equal(t, PageRef("2"), page)
}

func TestHistory_StepSkipsUnknownSeed(t *testing.T) {
	h := NewHistory("")
	h.Push("4", DefaultHistoryLimit)

	_, ok := h.Step(PageBack)
	assert.False(t, ok, "an unknown starting page is not a navigation target")
	assert.Equal(t, 1, h.Index)
}

func TestPageRef_IsDirective(t *testing.T) {
	assert.True(t, PageBack.IsDirective())
	assert.True(t, PageForward.IsDirective())
	assert.False(t, PageRef("back2").IsDirective())
}
