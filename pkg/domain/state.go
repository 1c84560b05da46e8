package domain

// History is the back/forward page stack of one surface.
// After every successful mutation 0 <= Index < len(Entries).
type History struct {
	Entries []PageRef `json:"entries"`
	Index   int       `json:"index"`
}

// NewHistory seeds a history with the page the surface is currently on.
func NewHistory(from PageRef) *History {
	return &History{
		Entries: []PageRef{from},
		Index:   0,
	}
}

// Current returns the entry under the cursor.
func (h *History) Current() PageRef {
	if !h.Valid() {
		return ""
	}
	return h.Entries[h.Index]
}

// Valid reports whether the cursor points at an existing entry.
func (h *History) Valid() bool {
	return h != nil && h.Index >= 0 && h.Index < len(h.Entries)
}

// Step moves the cursor one entry back or forward.
// It returns the page now under the cursor and true, or false without any
// mutation when no entry exists in that direction.
func (h *History) Step(directive PageRef) (PageRef, bool) {
	delta := 1
	if directive == PageBack {
		delta = -1
	}

	next := h.Index + delta
	if next < 0 || next >= len(h.Entries) || h.Entries[next] == "" {
		return "", false
	}

	h.Index = next
	return h.Entries[next], true
}

// Push discards every entry after the cursor, appends target and moves the
// cursor onto it. When the result exceeds limit the oldest entries are
// dropped and the cursor shifted by the same amount. It returns the number
// of entries dropped.
func (h *History) Push(target PageRef, limit int) int {
	h.Entries = append(h.Entries[:h.Index+1:h.Index+1], target)
	h.Index++

	if limit <= 0 || len(h.Entries) <= limit {
		return 0
	}

	trim := len(h.Entries) - limit
	h.Entries = append([]PageRef(nil), h.Entries[trim:]...)
	h.Index -= trim
	return trim
}

// Clone returns an independent copy.
func (h *History) Clone() *History {
	if h == nil {
		return nil
	}
	return &History{
		Entries: append([]PageRef(nil), h.Entries...),
		Index:   h.Index,
	}
}
