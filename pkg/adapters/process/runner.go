package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
)

// ErrNotAllowed is returned for a command that is neither registered nor
// allowed inline.
var ErrNotAllowed = errors.New("command not allowed")

// waitDelay bounds how long Exec waits for output after the process is
// killed.
const waitDelay = 500 * time.Millisecond

// Runner implements ports.Executor with local processes.
// Only registered tools run unless inline execution is enabled.
type Runner struct {
	registry    map[string]RegisteredProcess
	allowInline bool
	baseDir     string
	shell       []string
}

// RegisteredProcess is an allowed command with its leading arguments.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from loaded tools.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			r.registry[name] = RegisteredProcess{
				Command: tool.Command,
				Args:    tool.Args,
				Env:     tool.Environment,
			}
		}
	}
}

// WithInlineExecution lets unregistered commands run through the shell.
func WithInlineExecution(allow bool) RunnerOption {
	return func(r *Runner) {
		r.allowInline = allow
	}
}

// WithBaseDir sets the working directory of every process.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithShell overrides the shell inline commands run through
// (default "sh -c").
func WithShell(shell ...string) RunnerOption {
	return func(r *Runner) {
		if len(shell) > 0 {
			r.shell = shell
		}
	}
}

// NewRunner creates a process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]RegisteredProcess),
		shell:    []string{"sh", "-c"},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Tools returns the registered names in order.
func (r *Runner) Tools() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve maps a command line onto a process. The first word selects a
// registered tool and the remaining words are appended to its arguments.
func (r *Runner) resolve(line string) (RegisteredProcess, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return RegisteredProcess{}, fmt.Errorf("%w: empty command", ErrNotAllowed)
	}
	if proc, ok := r.registry[fields[0]]; ok {
		proc.Args = append(append([]string(nil), proc.Args...), fields[1:]...)
		return proc, nil
	}
	if !r.allowInline {
		return RegisteredProcess{}, fmt.Errorf("%w: %s is not registered and inline execution is disabled", ErrNotAllowed, fields[0])
	}
	args := append(append([]string(nil), r.shell[1:]...), line)
	return RegisteredProcess{Command: r.shell[0], Args: args}, nil
}

// Exec implements ports.Executor. The process is killed once the request
// timeout expires.
func (r *Runner) Exec(ctx context.Context, req domain.ExecRequest) (domain.ExecResult, error) {
	proc, err := r.resolve(req.Command)
	if err != nil {
		return domain.ExecResult{ExitCode: -1}, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	// Children of a killed shell may keep the output pipes open.
	cmd.WaitDelay = waitDelay
	env := cmd.Environ()
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result := domain.ExecResult{
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("execution of %q timed out after %s: %w", req.Command, req.Timeout, ctx.Err())
		}
		return result, fmt.Errorf("execution of %q failed: %w", req.Command, err)
	}
	return result, nil
}
