package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Scenario is a scripted sequence of host events replayed against a
// fresh engine.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one host event, optionally followed by checks.
// At most one action field may be set; a step with none only checks.
type Step struct {
	Name string `yaml:"name,omitempty"`

	Command    *domain.Command   `yaml:"command,omitempty"`
	Navigate   *NavigateStep     `yaml:"navigate,omitempty"`
	Set        map[string]string `yaml:"set,omitempty"`
	Subscribe  *domain.Feedback  `yaml:"subscribe,omitempty"`
	Invalidate *domain.BankKey   `yaml:"invalidate,omitempty"`

	// Error, when set, must be contained in the error the action returns.
	Error  string       `yaml:"error,omitempty"`
	Expect *Expectation `yaml:"expect,omitempty"`
}

// NavigateStep moves a surface directly, bypassing command dispatch.
type NavigateStep struct {
	Surface domain.SurfaceID `yaml:"surface"`
	Page    domain.PageRef   `yaml:"page"`
}

// Expectation is checked after the step's deferred work has run.
type Expectation struct {
	Surface   domain.SurfaceID  `yaml:"surface,omitempty"`
	Page      domain.PageRef    `yaml:"page,omitempty"`
	Entries   []domain.PageRef  `yaml:"entries,omitempty"`
	Index     *int              `yaml:"index,omitempty"`
	Variables map[string]string `yaml:"variables,omitempty"`
}

// Action names the event a step performs.
func (s Step) Action() string {
	switch {
	case s.Command != nil:
		return string(s.Command.Kind)
	case s.Navigate != nil:
		return "navigate " + string(s.Navigate.Surface) + " " + string(s.Navigate.Page)
	case len(s.Set) > 0:
		return "set variables"
	case s.Subscribe != nil:
		return "subscribe " + s.Subscribe.ID
	case s.Invalidate != nil:
		return "invalidate " + s.Invalidate.String()
	default:
		return "expect"
	}
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Command != nil, s.Navigate != nil, len(s.Set) > 0, s.Subscribe != nil, s.Invalidate != nil} {
		if set {
			n++
		}
	}
	return n
}

// Validate reports malformed steps.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	var errs []error
	for i, s := range sc.Steps {
		if s.actions() > 1 {
			errs = append(errs, fmt.Errorf("step %d: more than one action", i+1))
		}
		if s.actions() == 0 && s.Expect == nil {
			errs = append(errs, fmt.Errorf("step %d: no action and no expectation", i+1))
		}
		if s.Expect != nil && s.Expect.Surface == "" && (s.Expect.Page != "" || s.Expect.Entries != nil || s.Expect.Index != nil) {
			errs = append(errs, fmt.Errorf("step %d: page expectations need a surface", i+1))
		}
		for name := range s.Set {
			if _, err := domain.ParseVariableRef(name); err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}
