package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Subscriptions maps feedback ids to the variables they read.
type Subscriptions struct {
	mu      sync.RWMutex
	entries map[string]map[domain.VariableRef]struct{}
}

// NewSubscriptions creates an empty index.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{entries: make(map[string]map[domain.VariableRef]struct{})}
}

// Subscribe replaces the variables id depends on. Duplicates collapse.
func (s *Subscriptions) Subscribe(id string, refs ...domain.VariableRef) {
	set := make(map[domain.VariableRef]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = set
}

// Unsubscribe forgets id.
func (s *Subscriptions) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Variables returns the variables id depends on, sorted.
func (s *Subscriptions) Variables(id string) ([]domain.VariableRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	out := make([]domain.VariableRef, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, true
}

// Len returns the number of subscribed ids.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Affected returns, sorted, the ids that read at least one of the changed
// or removed variables.
func (s *Subscriptions) Affected(changed, removed []domain.VariableRef) []string {
	all := make(map[domain.VariableRef]struct{}, len(changed)+len(removed))
	for _, r := range changed {
		all[r] = struct{}{}
	}
	for _, r := range removed {
		all[r] = struct{}{}
	}
	if len(all) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, refs := range s.entries {
		for r := range refs {
			if _, hit := all[r]; hit {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// OnVariablesChanged recomputes the feedbacks that read a changed or removed
// variable and returns their ids. Nothing is recomputed when no feedback
// depends on them.
func (e *Engine) OnVariablesChanged(ctx context.Context, changed, removed []domain.VariableRef) ([]string, error) {
	ids := e.subscriptions.Affected(changed, removed)
	if len(ids) == 0 {
		return nil, nil
	}

	if err := e.host.Recompute(ctx, ids); err != nil {
		return ids, fmt.Errorf("failed to recompute feedbacks: %w", err)
	}
	e.logger.Debug("Feedbacks recomputed", "count", len(ids))
	e.emitRecompute(ctx, ids, nil)
	return ids, nil
}
