package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// HistoryStore persists the navigation history of each surface.
type HistoryStore interface {
	// Save persists the history for a surface.
	Save(ctx context.Context, surface domain.SurfaceID, history *domain.History) error

	// Load retrieves the history for a surface.
	// Returns domain.ErrHistoryNotFound if the surface has never navigated.
	Load(ctx context.Context, surface domain.SurfaceID) (*domain.History, error)

	// Delete removes the history for a surface.
	Delete(ctx context.Context, surface domain.SurfaceID) error

	// List returns every surface with a stored history.
	List(ctx context.Context) ([]domain.SurfaceID, error)
}
