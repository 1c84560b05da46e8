package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/internal/logging"
)

const navigationScenario = `
name: navigation
steps:
  - name: press on T jumps to page 5
    command:
      kind: set_page
      options: {controller: self, page: 5}
      extras: {page: "1", bank: "2", device_id: T}
    expect:
      surface: T
      page: "5"
      entries: ["1", "5"]
  - navigate: {surface: T, page: "9"}
  - command:
      kind: set_page
      options: {controller: T, page: back}
    expect: {surface: T, page: "5", index: 1}
  - name: variable out of range
    set: {"internal:custom_page": "250"}
  - command:
      kind: set_page
      options: {controller: T, page: variable, pageVariable: "internal:custom_page"}
    error: "250 is not a valid page"
    expect: {surface: T, page: "5"}
`

func newTestStack(t *testing.T) *Stack {
	t.Helper()
	cfg := config.Default()
	cfg.Host.Surfaces = []string{"S", "T"}
	cfg.Host.Buttons = []config.ButtonSeed{
		{Page: "1", Bank: "1", Style: map[string]any{"style": "png", "text": "Scene $(internal:custom_scene)"}},
	}

	stack, err := NewStack(context.Background(), cfg, logging.NewNop(), false)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Close() })
	return stack
}

func TestReplay_Navigation(t *testing.T) {
	stack := newTestStack(t)
	sc, err := ParseScenario([]byte(navigationScenario))
	require.NoError(t, err)

	var out bytes.Buffer
	res := NewReplayer(stack.Engine, stack.Host, &out, termenv.Ascii).Run(context.Background(), sc)

	require.Len(t, res.Outcomes, 5)
	for _, o := range res.Outcomes {
		assert.True(t, o.Passed(), "step %d: %v", o.Index, o.Failures)
	}
	assert.Zero(t, res.Failed())
	assert.Contains(t, out.String(), "ok    1 press on T jumps to page 5 (set_page)")
	assert.NotContains(t, out.String(), "FAIL")
}

func TestReplay_ReportsFailures(t *testing.T) {
	stack := newTestStack(t)
	sc, err := ParseScenario([]byte(`
name: broken
steps:
  - navigate: {surface: S, page: "4"}
    expect: {surface: S, page: "7", entries: ["1"]}
  - command: {kind: teleport}
  - command:
      kind: set_page
      options: {controller: S, page: "2"}
    error: "not a valid"
`))
	require.NoError(t, err)

	var out bytes.Buffer
	res := NewReplayer(stack.Engine, stack.Host, &out, termenv.Ascii).Run(context.Background(), sc)

	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, 3, res.Failed())
	assert.Len(t, res.Outcomes[0].Failures, 2)
	assert.Contains(t, res.Outcomes[1].Failures[0], "unknown command")
	assert.Contains(t, res.Outcomes[2].Failures[0], `expected error containing "not a valid"`)
	assert.Contains(t, out.String(), "FAIL  1 navigate S 4")
}

func TestReplay_DisplayText(t *testing.T) {
	stack := newTestStack(t)
	sc, err := ParseScenario([]byte(`
steps:
  - set: {"internal:custom_scene": "3"}
  - invalidate: {page: "1", bank: "1"}
    expect:
      variables: {"internal:b_text_1_1": "Scene 3"}
`))
	require.NoError(t, err)

	res := NewReplayer(stack.Engine, stack.Host, &bytes.Buffer{}, termenv.Ascii).Run(context.Background(), sc)
	assert.Zero(t, res.Failed(), "%+v", res.Outcomes)
}

func TestResult_Markdown(t *testing.T) {
	res := Result{
		Scenario: "demo",
		Outcomes: []Outcome{
			{Index: 1, Action: "set_page"},
			{Index: 2, Action: "navigate S back", Name: "go back", Failures: []string{"a|b"}},
		},
	}

	md := res.Markdown()
	assert.Contains(t, md, "# Replay: demo")
	assert.Contains(t, md, "| 1 | set_page | ok |")
	assert.Contains(t, md, `| 2 | go back | **failed**: a\|b |`)
	assert.Contains(t, md, "2 steps, 1 failed.")

	plain, err := renderMarkdown(md, false)
	require.NoError(t, err)
	assert.Equal(t, md, plain)
}

func TestReplay_Command(t *testing.T) {
	dir := t.TempDir()
	scenario := filepath.Join(dir, "scenario.yaml")
	cfgPath := filepath.Join(dir, "switchboard.yaml")
	require.NoError(t, os.WriteFile(scenario, []byte(navigationScenario), 0644))
	require.NoError(t, os.WriteFile(cfgPath, []byte("host:\n  surfaces: [S, T]\n"), 0644))

	var out bytes.Buffer
	err := Replay(ReplayOptions{ConfigPath: cfgPath, ScenarioPath: scenario, Out: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ok    1 press on T jumps to page 5")
	assert.Contains(t, out.String(), ">>> navigation: 5 steps passed.")

	out.Reset()
	err = Replay(ReplayOptions{ConfigPath: cfgPath, ScenarioPath: scenario, Quiet: true, Out: &out})
	require.NoError(t, err)
	assert.Empty(t, out.String(), "quiet replays print nothing")

	require.NoError(t, os.WriteFile(scenario, []byte("steps:\n  - command: {kind: teleport}\n"), 0644))
	err = Replay(ReplayOptions{ConfigPath: cfgPath, ScenarioPath: scenario, Quiet: true, Out: &out})
	assert.ErrorIs(t, err, ErrReplayFailed)
	assert.Empty(t, out.String())
}

func TestReplay_Examples(t *testing.T) {
	scenarios, err := filepath.Glob(filepath.Join("..", "..", "examples", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, path := range scenarios {
		t.Run(filepath.Base(path), func(t *testing.T) {
			err := Replay(ReplayOptions{
				ConfigPath:   filepath.Join("..", "..", "examples", "switchboard.yaml"),
				ScenarioPath: path,
				Quiet:        true,
			})
			assert.NoError(t, err)
		})
	}
}
