package memory

import (
	"context"
	"regexp"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
)

// templateRef matches "$(namespace:name)" references inside free text.
var templateRef = regexp.MustCompile(`\$\(([^:$()\s]+):([^$()\s]+)\)`)

// Variables is an in-memory variable store and template parser.
// Unset variables read as "" and expand to "".
type Variables struct {
	mu     sync.RWMutex
	values map[domain.VariableRef]string
}

// NewVariables creates an empty variable store.
func NewVariables() *Variables {
	return &Variables{
		values: make(map[domain.VariableRef]string),
	}
}

// Set assigns a variable.
func (v *Variables) Set(ref domain.VariableRef, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[ref] = value
}

// Unset removes a variable.
func (v *Variables) Unset(ref domain.VariableRef) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.values, ref)
}

// Get implements ports.VariableStore.
func (v *Variables) Get(ctx context.Context, ref domain.VariableRef) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[ref], nil
}

// Lookup returns a variable and whether it is set.
func (v *Variables) Lookup(ref domain.VariableRef) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	value, ok := v.values[ref]
	return value, ok
}

// ParseTemplate implements ports.VariableStore.
// Expansion is a single pass: values are not themselves expanded.
func (v *Variables) ParseTemplate(ctx context.Context, text string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return templateRef.ReplaceAllStringFunc(text, func(match string) string {
		parts := templateRef.FindStringSubmatch(match)
		return v.values[domain.VariableRef{Namespace: parts[1], Name: parts[2]}]
	}), nil
}

// SetValues implements ports.VariableSink for the internal namespace.
func (v *Variables) SetValues(ctx context.Context, values map[string]*string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for name, value := range values {
		ref := domain.VariableRef{Namespace: domain.InternalNamespace, Name: name}
		if value == nil {
			delete(v.values, ref)
			continue
		}
		v.values[ref] = *value
	}
	return nil
}
