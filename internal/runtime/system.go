package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
)

// execCommand expands the path through the variable parser and runs it in
// the background. A failing command is logged, never returned.
func execCommand(ctx context.Context, e *Engine, _ domain.Command, opts domain.CommandOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("%w: path", domain.ErrMissingOption)
	}
	if e.executor == nil {
		return fmt.Errorf("%w: no executor configured", domain.ErrUnsupported)
	}

	path, err := e.host.ParseTemplate(ctx, opts.Path)
	if err != nil {
		return fmt.Errorf("failed to expand path: %w", err)
	}
	req := domain.ExecRequest{Command: path, Timeout: opts.ExecTimeout()}
	e.logger.Debug("Running path", "path", path, "timeout", req.Timeout)

	// The command outlives the request that issued it.
	ctx = context.WithoutCancel(ctx)
	e.execs.Add(1)
	go func() {
		defer e.execs.Done()
		res, err := e.executor.Exec(ctx, req)
		if err != nil {
			e.logger.Error("Shell command failed",
				"path", path,
				"exit_code", res.ExitCode,
				"stderr", res.Stderr,
				"error", err,
			)
			return
		}
		e.logger.Debug("Shell command finished", "path", path, "stdout", res.Stdout)
	}()
	return nil
}

// Wait blocks until every exec command started so far has finished.
func (e *Engine) Wait() {
	e.execs.Wait()
}

func instanceControl(ctx context.Context, e *Engine, _ domain.Command, opts domain.CommandOptions) error {
	if opts.InstanceID == "" {
		return fmt.Errorf("%w: instance_id", domain.ErrMissingOption)
	}
	return e.host.SetInstanceEnabled(ctx, opts.InstanceID, opts.Enable)
}

func appExit(ctx context.Context, e *Engine, _ domain.Command, _ domain.CommandOptions) error {
	e.logger.Info("Exit requested")
	return e.host.Exit(ctx)
}

func appRestart(ctx context.Context, e *Engine, _ domain.Command, _ domain.CommandOptions) error {
	e.logger.Info("Restart requested")
	return e.host.Restart(ctx)
}
