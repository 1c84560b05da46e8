package runtime

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Resolve turns one raw field into a concrete value.
//
// The "current context" placeholder is substituted from extras before any
// variable is read, for the fields the command category allows. A field
// marked UseVariable is read from the variable store (or expanded from its
// template), stripped of whitespace and checked against the choice set of
// its kind. A controller equal to "self" is replaced by the originating
// surface when extras is present and left untouched otherwise.
//
// A value outside the choice set yields an *domain.UnresolvedReferenceError
// and exactly one warning.
func (e *Engine) Resolve(ctx context.Context, category domain.Category, field domain.FieldReference, extras *domain.ContextExtras) (string, error) {
	if extras != nil && field.Raw == domain.CurrentContext {
		switch {
		case field.Kind == domain.FieldPage && category != domain.CategoryNone:
			return extras.Page, nil
		case field.Kind == domain.FieldBank && category == domain.CategoryButton:
			return extras.Bank, nil
		}
	}

	value := field.Raw
	if field.UsesVariable() {
		var err error
		value, err = e.resolveVariable(ctx, field)
		if err != nil {
			return "", err
		}
	}

	if field.Kind == domain.FieldController && value == string(domain.SelfSurface) && extras != nil {
		value = string(extras.DeviceID)
	}
	return value, nil
}

func (e *Engine) resolveVariable(ctx context.Context, field domain.FieldReference) (string, error) {
	var (
		raw string
		err error
	)
	switch {
	case !field.Variable.IsZero():
		raw, err = e.host.Get(ctx, field.Variable)
	case field.Template != "":
		raw, err = e.host.ParseTemplate(ctx, field.Template)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s variable: %w", field.Kind, err)
	}

	value := stripSpace(raw)

	choices, err := e.choices(ctx, field.Kind)
	if err != nil {
		return "", fmt.Errorf("failed to list %s choices: %w", field.Kind, err)
	}
	if value == "" || !slices.Contains(choices, value) {
		return "", e.unresolved(ctx, field.Kind, value)
	}
	return value, nil
}

func (e *Engine) choices(ctx context.Context, kind domain.FieldKind) ([]string, error) {
	switch kind {
	case domain.FieldPage:
		return e.host.Pages(ctx)
	case domain.FieldBank:
		return e.host.Banks(ctx)
	default:
		return e.host.Controllers(ctx)
	}
}

// unresolved logs the single warning for a failed resolution and returns
// the matching error.
func (e *Engine) unresolved(ctx context.Context, kind domain.FieldKind, value string) error {
	err := &domain.UnresolvedReferenceError{Kind: kind, Value: value}
	e.logger.Warn("Cannot complete action because "+err.Error(), "kind", kind, "value", value)
	e.emitUnresolved(ctx, kind, value)
	return err
}

// stripSpace removes every whitespace rune; autocompleted values often
// carry a trailing space.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
