package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/switchboard/pkg/domain"
)

type evaluator func(ctx context.Context, e *Engine, opts domain.FeedbackOptions, info *domain.ContextExtras) (any, error)

var evaluators = map[domain.FeedbackType]evaluator{
	domain.FeedbackBankStyle:        evalBankStyle,
	domain.FeedbackBankPushed:       evalBankPushed,
	domain.FeedbackVariableValue:    evalVariableValue,
	domain.FeedbackVariableVariable: evalVariableVariable,
	domain.FeedbackSurfaceOnPage:    evalSurfaceOnPage,
	domain.FeedbackInstanceStatus:   evalInstanceStatus,
}

// Evaluate computes one feedback placed on the button described by info
// (nil when it is evaluated out of context).
//
// bank_style returns the cached domain.Style of the referenced button, or
// nil when it has none. instance_status returns a color/bgcolor
// domain.Style or nil. Every other type returns a bool.
func (e *Engine) Evaluate(ctx context.Context, fb domain.Feedback, info *domain.ContextExtras) (any, error) {
	eval, ok := evaluators[fb.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFeedback, fb.Type)
	}

	opts := domain.DefaultFeedbackOptions(fb.Type)
	if err := decodeOptions(fb.Options, &opts); err != nil {
		return nil, fmt.Errorf("feedback %s: %w", fb.ID, err)
	}
	return eval(ctx, e, opts, info)
}

// SubscribeFeedback registers the variables a feedback reads so that
// OnVariablesChanged recomputes it. It reports whether anything was
// subscribed; feedbacks that read no variable are left unsubscribed.
func (e *Engine) SubscribeFeedback(fb domain.Feedback) (bool, error) {
	if _, ok := evaluators[fb.Type]; !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownFeedback, fb.Type)
	}

	var opts domain.FeedbackOptions
	if err := decodeOptions(fb.Options, &opts); err != nil {
		return false, fmt.Errorf("feedback %s: %w", fb.ID, err)
	}

	var names []string
	switch fb.Type {
	case domain.FeedbackVariableValue:
		names = []string{opts.Variable}
	case domain.FeedbackVariableVariable:
		names = []string{opts.Variable, opts.Variable2}
	}

	var refs []domain.VariableRef
	for _, name := range names {
		if name == "" {
			continue
		}
		ref, err := domain.ParseVariableRef(name)
		if err != nil {
			return false, fmt.Errorf("feedback %s: %w", fb.ID, err)
		}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		e.subscriptions.Unsubscribe(fb.ID)
		return false, nil
	}
	e.subscriptions.Subscribe(fb.ID, refs...)
	e.logger.Debug("Feedback subscribed", "feedback", fb.ID, "variables", len(refs))
	return true, nil
}

// UnsubscribeFeedback forgets the variables of a feedback.
func (e *Engine) UnsubscribeFeedback(id string) {
	e.subscriptions.Unsubscribe(id)
}

// OnBankPressed recomputes the feedbacks that follow the page of a surface.
func (e *Engine) OnBankPressed(ctx context.Context) error {
	return e.recomputeTypes(ctx, domain.FeedbackSurfaceOnPage)
}

// OnIndicatePush recomputes the feedbacks that follow the pushed state of
// a button.
func (e *Engine) OnIndicatePush(ctx context.Context) error {
	return e.recomputeTypes(ctx, domain.FeedbackBankPushed)
}

func (e *Engine) resolveButton(ctx context.Context, opts domain.FeedbackOptions, info *domain.ContextExtras) (domain.BankKey, error) {
	page, err := e.Resolve(ctx, domain.CategoryButton, opts.Field(domain.FieldPage), info)
	if err != nil {
		return domain.BankKey{}, err
	}
	bank, err := e.Resolve(ctx, domain.CategoryButton, opts.Field(domain.FieldBank), info)
	if err != nil {
		return domain.BankKey{}, err
	}
	return domain.BankKey{Page: page, Bank: bank}, nil
}

func evalBankStyle(ctx context.Context, e *Engine, opts domain.FeedbackOptions, info *domain.ContextExtras) (any, error) {
	key, err := e.resolveButton(ctx, opts, info)
	if err != nil {
		return nil, err
	}
	s, ok := e.Snapshot(key)
	if !ok {
		return nil, nil
	}
	return s.Style, nil
}

func evalBankPushed(ctx context.Context, e *Engine, opts domain.FeedbackOptions, info *domain.ContextExtras) (any, error) {
	key, err := e.resolveButton(ctx, opts, info)
	if err != nil {
		return false, err
	}
	return e.host.IsPushed(ctx, key)
}

func (e *Engine) readVariable(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	ref, err := domain.ParseVariableRef(name)
	if err != nil {
		return "", err
	}
	return e.host.Get(ctx, ref)
}

func evalVariableValue(ctx context.Context, e *Engine, opts domain.FeedbackOptions, _ *domain.ContextExtras) (any, error) {
	value, err := e.readVariable(ctx, opts.Variable)
	if err != nil {
		return false, err
	}
	return compareValues(opts.Op, value, opts.Value), nil
}

func evalVariableVariable(ctx context.Context, e *Engine, opts domain.FeedbackOptions, _ *domain.ContextExtras) (any, error) {
	value, err := e.readVariable(ctx, opts.Variable)
	if err != nil {
		return false, err
	}
	other, err := e.readVariable(ctx, opts.Variable2)
	if err != nil {
		return false, err
	}
	return compareValues(opts.Op, value, other), nil
}

func evalSurfaceOnPage(ctx context.Context, e *Engine, opts domain.FeedbackOptions, info *domain.ContextExtras) (any, error) {
	controller, err := e.Resolve(ctx, domain.CategoryButton, opts.Field(domain.FieldController), info)
	if err != nil {
		return false, err
	}
	if controller == "" || controller == string(domain.SelfSurface) {
		return false, domain.ErrSurfaceUnresolved
	}
	page, err := e.Resolve(ctx, domain.CategoryButton, opts.Field(domain.FieldPage), info)
	if err != nil {
		return false, err
	}

	if controller != string(domain.AnySurface) {
		current, err := e.host.Page(ctx, domain.SurfaceID(controller))
		if err != nil {
			return false, err
		}
		return string(current) == page, nil
	}

	surfaces, err := e.host.List(ctx)
	if err != nil {
		return false, err
	}
	active := make([]string, 0, len(surfaces))
	for _, s := range surfaces {
		current, err := e.host.Page(ctx, s)
		if err != nil {
			return false, err
		}
		active = append(active, string(current))
	}
	return slices.Contains(active, page), nil
}
