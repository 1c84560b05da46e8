package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
)

type fakeExecutor struct {
	mu       sync.Mutex
	requests []domain.ExecRequest
	err      error
}

func (x *fakeExecutor) Exec(ctx context.Context, req domain.ExecRequest) (domain.ExecResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.requests = append(x.requests, req)
	if x.err != nil {
		return domain.ExecResult{Stderr: "boom", ExitCode: 1}, x.err
	}
	return domain.ExecResult{Stdout: "ok"}, nil
}

func TestDispatch_ExecExpandsPath(t *testing.T) {
	exec := &fakeExecutor{}
	f := newFixture(t, runtime.WithExecutor(exec))
	f.host.Set(ref("internal", "custom_scene"), "intro")
	ctx := context.Background()

	require.NoError(t, f.engine.Dispatch(ctx, domain.Command{
		Kind:    domain.CommandExec,
		Options: map[string]any{"path": "obs $(internal:custom_scene)"},
	}))
	require.NoError(t, f.engine.Dispatch(ctx, domain.Command{
		Kind:    domain.CommandExec,
		Options: map[string]any{"path": "true", "timeout": "250"},
	}))
	f.engine.Wait()

	exec.mu.Lock()
	defer exec.mu.Unlock()
	require.Len(t, exec.requests, 2)
	assert.ElementsMatch(t, []domain.ExecRequest{
		{Command: "obs intro", Timeout: domain.DefaultExecTimeout},
		{Command: "true", Timeout: 250 * time.Millisecond},
	}, exec.requests)
	assert.Empty(t, f.messages(t, "ERROR"))
}

func TestDispatch_ExecFailureIsLogged(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1")}
	f := newFixture(t, runtime.WithExecutor(exec))

	err := f.engine.Dispatch(context.Background(), domain.Command{
		Kind:    domain.CommandExec,
		Options: map[string]any{"path": "false"},
	})
	require.NoError(t, err, "a failing command does not fail the dispatch")
	f.engine.Wait()

	assert.Equal(t, []string{"Shell command failed"}, f.messages(t, "ERROR"))
}

func TestDispatch_ExecRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.Dispatch(ctx, domain.Command{Kind: domain.CommandExec, Options: map[string]any{"path": "ls"}})
	assert.ErrorIs(t, err, domain.ErrUnsupported)

	f = newFixture(t, runtime.WithExecutor(&fakeExecutor{}))
	err = f.engine.Dispatch(ctx, domain.Command{Kind: domain.CommandExec})
	assert.ErrorIs(t, err, domain.ErrMissingOption)
}

func TestDispatch_InstanceControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Dispatch(ctx, domain.Command{
		Kind:    domain.CommandInstanceControl,
		Options: map[string]any{"instance_id": "atem", "enable": "false"},
	}))
	assert.False(t, f.host.InstanceEnabled("atem"))

	require.NoError(t, f.engine.Dispatch(ctx, domain.Command{
		Kind:    domain.CommandInstanceControl,
		Options: map[string]any{"instance_id": "atem", "enable": "true"},
	}))
	assert.True(t, f.host.InstanceEnabled("atem"))

	effects := f.host.EffectsOf(memory.OpInstanceEnable)
	require.Len(t, effects, 2)
	assert.Equal(t, []any{"atem", false}, effects[0].Args)
	assert.Equal(t, []any{"atem", true}, effects[1].Args)

	err := f.engine.Dispatch(ctx, domain.Command{Kind: domain.CommandInstanceControl})
	assert.ErrorIs(t, err, domain.ErrMissingOption)
}

func TestDispatch_AppExitRestart(t *testing.T) {
	var exits, restarts int
	f := newFixtureWith(t, memory.HostConfig{
		OnExit:    func() { exits++ },
		OnRestart: func() { restarts++ },
	})
	ctx := context.Background()

	require.NoError(t, f.engine.Dispatch(ctx, domain.Command{Kind: domain.CommandAppExit}))
	require.NoError(t, f.engine.Dispatch(ctx, domain.Command{Kind: domain.CommandAppRestart}))
	assert.Equal(t, 1, exits)
	assert.Equal(t, 1, restarts)

	f = newFixture(t)
	err := f.engine.Dispatch(ctx, domain.Command{Kind: domain.CommandAppRestart})
	assert.ErrorIs(t, err, domain.ErrUnsupported)
	assert.Empty(t, f.host.EffectsOf(memory.OpAppRestart))
}
