package runtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
)

// DefaultClockInterval is how often RunClock publishes the clock variables.
const DefaultClockInterval = time.Second

// clockValues formats now into the date_* and time_* variables.
func clockValues(now time.Time) map[string]string {
	return map[string]string{
		"date_y":   now.Format("2006"),
		"date_m":   now.Format("01"),
		"date_d":   now.Format("02"),
		"time_hms": now.Format("15:04:05"),
		"time_hm":  now.Format("15:04"),
		"time_h":   now.Format("15"),
		"time_m":   now.Format("04"),
		"time_s":   now.Format("05"),
	}
}

// PublishClock publishes the clock variables that differ from the last
// published ones and recomputes the feedbacks reading them. It returns the
// changed variables in name order.
func (e *Engine) PublishClock(ctx context.Context, now time.Time) ([]domain.VariableRef, error) {
	next := clockValues(now)

	e.clockMu.Lock()
	values := make(map[string]*string)
	for name, v := range next {
		if e.clock[name] != v {
			values[name] = &v
		}
	}
	e.clockMu.Unlock()

	if len(values) == 0 {
		return nil, nil
	}
	if err := e.host.SetValues(ctx, values); err != nil {
		return nil, fmt.Errorf("failed to publish clock: %w", err)
	}

	refs := make([]domain.VariableRef, 0, len(values))
	e.clockMu.Lock()
	for name, v := range values {
		e.clock[name] = *v
		refs = append(refs, domain.VariableRef{Namespace: domain.InternalNamespace, Name: name})
	}
	e.clockMu.Unlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	if _, err := e.OnVariablesChanged(ctx, refs, nil); err != nil {
		return refs, err
	}
	return refs, nil
}

// RunClock publishes the clock every interval until ctx is done.
// interval <= 0 uses DefaultClockInterval.
func (e *Engine) RunClock(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultClockInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publish := func(now time.Time) {
		if _, err := e.PublishClock(ctx, now); err != nil {
			e.logger.Warn("Failed to publish clock", "error", err)
		}
	}
	publish(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			publish(now)
		}
	}
}
