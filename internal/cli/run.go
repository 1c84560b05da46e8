package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/internal/presentation/tui"
)

// ErrReplayFailed is returned when at least one replayed step failed.
var ErrReplayFailed = errors.New("replay failed")

// ReplayOptions contains all the configuration for the replay command.
type ReplayOptions struct {
	ConfigPath   string
	ScenarioPath string
	Debug        bool
	Report       bool
	Quiet        bool

	// Out receives the step lines and messages. Defaults to stdout.
	Out io.Writer
}

// Replay runs a scenario file against a fresh engine built from the
// config file and prints the outcome of every step.
func Replay(opts ReplayOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	sc, err := LoadScenario(opts.ScenarioPath)
	if err != nil {
		return err
	}

	out := opts.Out
	styled := false
	if out == nil {
		out = os.Stdout
		styled = term.IsTerminal(int(os.Stdout.Fd()))
	}
	profile := termenv.Ascii
	if styled {
		profile = termenv.ColorProfile()
	}

	if opts.Quiet {
		out = io.Discard
	}
	if !opts.Quiet && styled {
		tui.PrintBanner(out, profile)
	}

	ctx := NewSignalContext(context.Background())
	defer ctx.Cancel()

	// Replays never share state, so Redis is ignored.
	cfg.Redis = nil
	stack, err := NewStack(ctx, cfg, createLogger(cfg, opts.Debug), opts.Debug)
	if err != nil {
		return err
	}
	defer stack.Close()

	res := NewReplayer(stack.Engine, stack.Host, out, profile).Run(ctx, sc)

	if opts.Report {
		rendered, err := renderMarkdown(res.Markdown(), styled)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
	}

	if sig := ctx.Signal(); sig != nil {
		printSystemMessage(out, "Interrupted after %d of %d steps.", len(res.Outcomes), len(sc.Steps))
		return nil
	}
	if failed := res.Failed(); failed > 0 {
		return fmt.Errorf("%w: %d of %d steps", ErrReplayFailed, failed, len(res.Outcomes))
	}
	if !opts.Quiet {
		printSystemMessage(out, "%s: %d steps passed.", sc.Name, len(res.Outcomes))
	}
	return nil
}
