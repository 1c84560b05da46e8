package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Check expands the display text of a button through the variable parser.
//
// It returns false when text is empty, meaning the button has no display
// text. A text that contains variableID, the name of the variable the
// result is published under, is never expanded: domain.RecursionMarker is
// returned instead.
func (e *Engine) Check(ctx context.Context, variableID, text string) (string, bool, error) {
	if text == "" {
		return "", false, nil
	}

	if strings.Contains(text, variableID) {
		e.logger.Debug("Display text references its own variable", "variable", variableID)
		e.emitRecursion(ctx, variableID)
		return domain.RecursionMarker, true, nil
	}

	expanded, err := e.host.ParseTemplate(ctx, text)
	if err != nil {
		return "", false, fmt.Errorf("failed to expand %s: %w", variableID, err)
	}
	return expanded, true, nil
}
