package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Navigate moves a surface to target and returns its history afterwards.
//
// The first navigation of a surface seeds its history with knownFrom, or
// with the page the host reports when knownFrom is empty. back and forward
// move the cursor when an entry exists in that direction and do nothing
// otherwise. Any other target drops the entries after the cursor, is
// appended and becomes current; the oldest entries are dropped beyond the
// history limit.
//
// The page assignment itself is deferred until the next Drain.
func (e *Engine) Navigate(ctx context.Context, surface domain.SurfaceID, target, knownFrom domain.PageRef) (*domain.History, error) {
	if surface == "" || surface == domain.SelfSurface {
		return nil, domain.ErrSurfaceUnresolved
	}
	if target == "" {
		return nil, fmt.Errorf("navigate %s: empty target page", surface)
	}

	from := knownFrom
	if from == "" {
		// Only an uninitialised history needs the current page.
		if _, err := e.histories.Load(ctx, surface); err != nil {
			if !errors.Is(err, domain.ErrHistoryNotFound) {
				return nil, fmt.Errorf("failed to load history of %s: %w", surface, err)
			}
			if from, err = e.host.Page(ctx, surface); err != nil {
				return nil, fmt.Errorf("failed to query page of %s: %w", surface, err)
			}
		}
	}

	var (
		assigned domain.PageRef
		trimmed  int
	)
	h, err := e.histories.Update(ctx, surface, func(current *domain.History) (*domain.History, error) {
		h := current
		if h == nil {
			if from == "" {
				// Deleted after the lookup above.
				return nil, fmt.Errorf("%w: removed while navigating", domain.ErrHistoryNotFound)
			}
			h = domain.NewHistory(from)
		}

		if target.IsDirective() {
			page, ok := h.Step(target)
			if !ok {
				if current == nil {
					return h, nil
				}
				return nil, nil
			}
			assigned = page
			return h, nil
		}

		trimmed = h.Push(target, e.historyLimit)
		assigned = target
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", surface, err)
	}

	if assigned == "" {
		e.logger.Debug("Navigation at history boundary", "surface", surface, "target", target)
	} else {
		page := assigned
		e.deferred.Schedule("set_page", func(ctx context.Context) error {
			return e.host.SetPage(ctx, surface, page)
		})
		e.logger.Debug("Navigation scheduled",
			"surface", surface,
			"target", target,
			"page", page,
			"index", h.Index,
			"length", len(h.Entries),
		)
	}

	e.emitNavigate(ctx, &domain.NavigationEvent{
		Surface:  surface,
		Target:   target,
		Assigned: assigned,
		Trimmed:  trimmed,
	})
	return h, nil
}

// History returns a copy of the navigation history of a surface.
func (e *Engine) History(ctx context.Context, surface domain.SurfaceID) (*domain.History, error) {
	return e.histories.Load(ctx, surface)
}
