package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// VariableStore reads external named values.
type VariableStore interface {
	// Get returns the current value of a variable, or "" when it is unset.
	Get(ctx context.Context, ref domain.VariableRef) (string, error)

	// ParseTemplate expands every variable reference embedded in text.
	ParseTemplate(ctx context.Context, text string) (string, error)
}

// VariableSink publishes values owned by this engine (display texts).
// A nil value unsets the variable.
type VariableSink interface {
	SetValues(ctx context.Context, values map[string]*string) error
}

// CustomVariables mutates user-defined variables.
type CustomVariables interface {
	SetValue(ctx context.Context, name, value string) error
	SetExpression(ctx context.Context, name, expression string) error
}
