package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
)

// Outcome is the result of one replayed step.
type Outcome struct {
	Index    int
	Action   string
	Name     string
	Failures []string
}

// Passed reports whether every check of the step held.
func (o Outcome) Passed() bool {
	return len(o.Failures) == 0
}

// Result summarises a replay.
type Result struct {
	Scenario string
	Outcomes []Outcome
}

// Failed returns the number of failed steps.
func (r Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Passed() {
			n++
		}
	}
	return n
}

// Replayer runs scenarios against an engine built over an in-memory host.
type Replayer struct {
	engine  *switchboard.Engine
	host    *memory.Host
	out     io.Writer
	profile termenv.Profile
}

// NewReplayer creates a replayer that prints one line per step to out.
func NewReplayer(engine *switchboard.Engine, host *memory.Host, out io.Writer, profile termenv.Profile) *Replayer {
	return &Replayer{engine: engine, host: host, out: out, profile: profile}
}

// Run replays every step in order. Failed steps do not stop the replay.
func (r *Replayer) Run(ctx context.Context, sc *Scenario) Result {
	res := Result{Scenario: sc.Name}
	for i, step := range sc.Steps {
		if ctx.Err() != nil {
			break
		}
		o := Outcome{Index: i + 1, Action: step.Action(), Name: step.Name}

		err := r.apply(ctx, step)
		if err == nil {
			err = r.engine.Drain(ctx)
		}
		switch {
		case step.Error != "" && err == nil:
			o.Failures = append(o.Failures, fmt.Sprintf("expected error containing %q", step.Error))
		case step.Error != "" && !strings.Contains(err.Error(), step.Error):
			o.Failures = append(o.Failures, fmt.Sprintf("expected error containing %q, got %v", step.Error, err))
		case step.Error == "" && err != nil:
			o.Failures = append(o.Failures, err.Error())
		}

		if step.Expect != nil {
			o.Failures = append(o.Failures, r.check(ctx, *step.Expect)...)
		}

		r.print(o)
		res.Outcomes = append(res.Outcomes, o)
	}
	return res
}

func (r *Replayer) apply(ctx context.Context, step Step) error {
	switch {
	case step.Command != nil:
		return r.engine.Dispatch(ctx, *step.Command)
	case step.Navigate != nil:
		_, err := r.engine.Navigate(ctx, step.Navigate.Surface, step.Navigate.Page)
		return err
	case len(step.Set) > 0:
		return r.setVariables(ctx, step.Set)
	case step.Subscribe != nil:
		_, err := r.engine.SubscribeFeedback(*step.Subscribe)
		return err
	case step.Invalidate != nil:
		_, err := r.engine.Invalidate(ctx, *step.Invalidate)
		return err
	}
	return nil
}

// setVariables updates the host and reports every changed variable,
// including custom expressions that read them.
func (r *Replayer) setVariables(ctx context.Context, values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	changed := make([]domain.VariableRef, 0, len(names))
	for _, name := range names {
		ref, err := domain.ParseVariableRef(name)
		if err != nil {
			return err
		}
		r.host.Set(ref, values[name])
		changed = append(changed, ref)
	}

	refreshed, err := r.host.Refresh(ctx)
	if err != nil {
		return err
	}
	changed = append(changed, refreshed...)

	_, err = r.engine.VariablesChanged(ctx, changed, nil)
	return err
}

func (r *Replayer) check(ctx context.Context, want Expectation) []string {
	var failures []string

	if want.Page != "" {
		page, err := r.host.Page(ctx, want.Surface)
		switch {
		case err != nil:
			failures = append(failures, err.Error())
		case page != want.Page:
			failures = append(failures, fmt.Sprintf("%s is on page %s, want %s", want.Surface, page, want.Page))
		}
	}

	if want.Entries != nil || want.Index != nil {
		h, err := r.engine.History(ctx, want.Surface)
		if err != nil {
			failures = append(failures, fmt.Sprintf("history of %s: %v", want.Surface, err))
		} else {
			if want.Entries != nil && !slices.Equal(h.Entries, want.Entries) {
				failures = append(failures, fmt.Sprintf("history of %s is %v, want %v", want.Surface, h.Entries, want.Entries))
			}
			if want.Index != nil && h.Index != *want.Index {
				failures = append(failures, fmt.Sprintf("history index of %s is %d, want %d", want.Surface, h.Index, *want.Index))
			}
		}
	}

	names := make([]string, 0, len(want.Variables))
	for name := range want.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref, err := domain.ParseVariableRef(name)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		got, _ := r.host.Lookup(ref)
		if got != want.Variables[name] {
			failures = append(failures, fmt.Sprintf("%s is %q, want %q", name, got, want.Variables[name]))
		}
	}
	return failures
}

func (r *Replayer) print(o Outcome) {
	label := o.Action
	if o.Name != "" {
		label = o.Name + " (" + o.Action + ")"
	}

	if o.Passed() {
		mark := termenv.String("ok  ").Foreground(r.profile.Color("#22c55e"))
		fmt.Fprintf(r.out, "%s %2d %s\n", mark, o.Index, label)
		return
	}

	mark := termenv.String("FAIL").Foreground(r.profile.Color("#ef4444"))
	fmt.Fprintf(r.out, "%s %2d %s\n", mark, o.Index, label)
	for _, f := range o.Failures {
		fmt.Fprintf(r.out, "        %s\n", termenv.String(f).Foreground(r.profile.Color("#fb7185")))
	}
}
