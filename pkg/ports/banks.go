package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// BankStore exposes the host's base button records.
// Returned records belong to the host and must not be mutated.
type BankStore interface {
	// Base returns the record for one button and false if there is none.
	Base(ctx context.Context, key domain.BankKey) (domain.Style, bool, error)

	// All returns every known button record.
	All(ctx context.Context) (map[domain.BankKey]domain.Style, error)
}

// StyleOverrides returns the partial style feedbacks currently apply to a button.
type StyleOverrides interface {
	Override(ctx context.Context, key domain.BankKey) (domain.Style, error)
}

// ButtonControl drives button-level side effects.
type ButtonControl interface {
	Press(ctx context.Context, key domain.BankKey, pressed bool, surface domain.SurfaceID) error
	ChangeField(ctx context.Context, key domain.BankKey, field string, value any) error
	AbortBank(ctx context.Context, key domain.BankKey, unlatch bool) error
	AbortAll(ctx context.Context) error
	IsPushed(ctx context.Context, key domain.BankKey) (bool, error)
}
