package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// FeedbackEngine recomputes computed outputs.
type FeedbackEngine interface {
	// Recompute re-evaluates the outputs with the given ids.
	Recompute(ctx context.Context, ids []string) error

	// RecomputeTypes re-evaluates every output of the given types.
	RecomputeTypes(ctx context.Context, types ...domain.FeedbackType) error
}
