package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// PageAssignment queries and changes the page shown on a surface.
type PageAssignment interface {
	Page(ctx context.Context, surface domain.SurfaceID) (domain.PageRef, error)
	SetPage(ctx context.Context, surface domain.SurfaceID, page domain.PageRef) error
}

// SurfaceControl drives surface-level side effects.
type SurfaceControl interface {
	// List returns the connected surfaces in their stable index order.
	List(ctx context.Context) ([]domain.SurfaceID, error)

	SetBrightness(ctx context.Context, surface domain.SurfaceID, brightness int) error
	Lockout(ctx context.Context, surface domain.SurfaceID, page string) error
	Unlock(ctx context.Context, surface domain.SurfaceID, page string) error
	LockoutAll(ctx context.Context) error
	UnlockAll(ctx context.Context) error
	Rescan(ctx context.Context) error
}

// UserConfig exposes the user settings the dispatcher consults.
type UserConfig interface {
	PinEnabled(ctx context.Context) bool
	LinkLockouts(ctx context.Context) bool
}

// ChoiceSets enumerates the identifiers a variable-indirected field may take.
type ChoiceSets interface {
	Pages(ctx context.Context) ([]string, error)
	Banks(ctx context.Context) ([]string, error)
	Controllers(ctx context.Context) ([]string, error)
}
