package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/mohae/deepcopy"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Snapshot is the cached computed state of one button.
// Style is an owned copy of base ⊕ override whose "text" entry holds the
// resolved display text. Text is that same resolved text; HasText is false
// when the button has none.
type Snapshot struct {
	Style   domain.Style `json:"style"`
	Text    string       `json:"text"`
	HasText bool         `json:"has_text"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	s.Style = copyStyle(s.Style)
	return s
}

// InvalidationResult tells which signals an invalidation produced.
type InvalidationResult struct {
	StyleChanged bool `json:"style_changed"`
	TextChanged  bool `json:"text_changed"`
}

type snapshotCache struct {
	mu      sync.Mutex
	entries map[domain.BankKey]Snapshot
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{entries: make(map[domain.BankKey]Snapshot)}
}

func (c *snapshotCache) get(key domain.BankKey) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[key]
	return s, ok
}

// swap stores next and returns what it replaced.
func (c *snapshotCache) swap(key domain.BankKey, next Snapshot) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.entries[key]
	c.entries[key] = next
	return prev, ok
}

func copyStyle(s domain.Style) domain.Style {
	if s == nil {
		return domain.Style{}
	}
	if out, ok := deepcopy.Copy(s).(domain.Style); ok {
		return out
	}
	return domain.Style{}
}

// seed is the snapshot of a button that was never invalidated: its base
// record with the raw text.
func seed(base domain.Style) Snapshot {
	text := base.Text()
	return Snapshot{Style: copyStyle(base), Text: text, HasText: text != ""}
}

// Snapshot returns a copy of the cached snapshot of a button.
func (e *Engine) Snapshot(key domain.BankKey) (Snapshot, bool) {
	s, ok := e.snapshots.get(key)
	if !ok {
		return Snapshot{}, false
	}
	return s.Clone(), true
}

// Invalidate recomputes the snapshot of a button after the host reported a
// change to its base record, its feedback override or a variable its text
// reads. A changed snapshot recomputes every bank_style feedback; a changed
// display text is published as internal:b_text_<page>_<bank>.
// Buttons without a base record are ignored.
func (e *Engine) Invalidate(ctx context.Context, key domain.BankKey) (InvalidationResult, error) {
	var res InvalidationResult

	baseStyle, ok, err := e.host.Base(ctx, key)
	if err != nil {
		return res, fmt.Errorf("failed to load bank %s: %w", key, err)
	}
	if !ok {
		return res, nil
	}

	override, err := e.host.Override(ctx, key)
	if err != nil {
		return res, fmt.Errorf("failed to load style override for %s: %w", key, err)
	}

	merged := copyStyle(baseStyle)
	for k, v := range override {
		merged[k] = deepcopy.Copy(v)
	}

	variableID := key.DisplayVariable()
	text, hasText, err := e.Check(ctx, variableID, merged.Text())
	if err != nil {
		return res, err
	}
	if hasText {
		merged[domain.StyleKeyText] = text
	}
	next := Snapshot{Style: merged, Text: text, HasText: hasText}

	// Swapped only after every collaborator call so a reentrant
	// invalidation of the same key is compared against, not overwritten.
	prev, existed := e.snapshots.swap(key, next)
	if !existed {
		prev = seed(baseStyle)
	}

	res.StyleChanged = !cmp.Equal(prev.Style, next.Style)
	res.TextChanged = prev.Text != next.Text || prev.HasText != next.HasText

	if res.StyleChanged {
		if err := e.recomputeTypes(ctx, domain.FeedbackBankStyle); err != nil {
			return res, err
		}
	}
	if res.TextChanged {
		values := map[string]*string{variableID: nil}
		if hasText {
			values[variableID] = &text
		}
		if err := e.host.SetValues(ctx, values); err != nil {
			return res, fmt.Errorf("failed to publish %s: %w", variableID, err)
		}
	}

	e.logger.Debug("Bank invalidated",
		"bank", key.String(),
		"style_changed", res.StyleChanged,
		"text_changed", res.TextChanged,
	)
	e.emitInvalidated(ctx, key, res)
	return res, nil
}

// LoadAll seeds the cache from every base record and publishes the display
// text of every button in a single call. Buttons whose style is not "png"
// are not cached and have their display variable unset.
func (e *Engine) LoadAll(ctx context.Context) error {
	banks, err := e.host.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load banks: %w", err)
	}

	values := make(map[string]*string, len(banks))
	for key, style := range banks {
		variableID := key.DisplayVariable()
		if style.Kind() != domain.StyleKindPNG {
			values[variableID] = nil
			continue
		}

		s := seed(style)
		text, hasText, err := e.Check(ctx, variableID, s.Text)
		if err != nil {
			return err
		}
		s.Text, s.HasText = text, hasText
		if hasText {
			s.Style[domain.StyleKeyText] = text
			values[variableID] = &text
		} else {
			values[variableID] = nil
		}
		e.snapshots.swap(key, s)
	}

	if len(values) == 0 {
		return nil
	}
	if err := e.host.SetValues(ctx, values); err != nil {
		return fmt.Errorf("failed to publish display texts: %w", err)
	}
	e.logger.Debug("Banks loaded", "count", len(values))
	return nil
}

func (e *Engine) recomputeTypes(ctx context.Context, types ...domain.FeedbackType) error {
	if err := e.host.RecomputeTypes(ctx, types...); err != nil {
		return fmt.Errorf("failed to recompute %v: %w", types, err)
	}
	e.emitRecompute(ctx, nil, types)
	return nil
}
