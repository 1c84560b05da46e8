package runtime

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Instance count variables, published in the internal namespace.
const (
	VarInstanceErrors = "instance_errors"
	VarInstanceWarns  = "instance_warns"
	VarInstanceOKs    = "instance_oks"
)

// OnInstanceStatus records the health report of the connection instances,
// publishes the instance_* count variables and recomputes every
// instance_status feedback.
func (e *Engine) OnInstanceStatus(ctx context.Context, status domain.InstanceStatus) error {
	status.Instances = maps.Clone(status.Instances)
	e.statusMu.Lock()
	e.status = status
	e.statusMu.Unlock()

	counts := map[string]int{
		VarInstanceErrors: status.Errors,
		VarInstanceWarns:  status.Warnings,
		VarInstanceOKs:    status.OK,
	}
	values := make(map[string]*string, len(counts))
	refs := make([]domain.VariableRef, 0, len(counts))
	for name, n := range counts {
		v := strconv.Itoa(n)
		values[name] = &v
		refs = append(refs, domain.VariableRef{Namespace: domain.InternalNamespace, Name: name})
	}
	if err := e.host.SetValues(ctx, values); err != nil {
		return fmt.Errorf("failed to publish instance counts: %w", err)
	}
	if _, err := e.OnVariablesChanged(ctx, refs, nil); err != nil {
		return err
	}
	return e.recomputeTypes(ctx, domain.FeedbackInstanceStatus)
}

// InstanceStatus returns a copy of the last reported instance health.
func (e *Engine) InstanceStatus() domain.InstanceStatus {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	s := e.status
	s.Instances = maps.Clone(s.Instances)
	return s
}

// evalInstanceStatus returns the color and bgcolor matching the health of
// one instance, or of all of them. Instances without a status entry are
// disabled, except this module's own, which gets nil.
func evalInstanceStatus(_ context.Context, e *Engine, opts domain.FeedbackOptions, _ *domain.ContextExtras) (any, error) {
	e.statusMu.RLock()
	status := e.status
	state, ok := status.Instances[opts.InstanceID]
	e.statusMu.RUnlock()

	switch {
	case opts.InstanceID == domain.AllInstances:
		return opts.StatusColors(status.Aggregate()), nil
	case ok:
		return opts.StatusColors(state), nil
	case opts.InstanceID == e.instanceID:
		return nil, nil
	default:
		return opts.StatusColors(domain.InstanceDisabled), nil
	}
}
