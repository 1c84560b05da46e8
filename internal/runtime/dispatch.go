package runtime

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/switchboard/pkg/domain"
)

type handler func(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error

var handlers = map[domain.CommandKind]handler{
	domain.CommandSetPage:        setPage,
	domain.CommandSetPageByIndex: setPageByIndex,
	domain.CommandIncPage:        stepPage(+1),
	domain.CommandDecPage:        stepPage(-1),

	domain.CommandButtonPressRelease: pressButton(true, false),
	domain.CommandButtonPress:        pressButton(true),
	domain.CommandButtonRelease:      pressButton(false),
	domain.CommandButtonText:         changeField(domain.StyleKeyText),
	domain.CommandTextColor:          changeField(domain.StyleKeyColor),
	domain.CommandBgColor:            changeField(domain.StyleKeyBgColor),
	domain.CommandPanicBank:          panicBank,

	domain.CommandPanic:           panicAll,
	domain.CommandSetBrightness:   setBrightness,
	domain.CommandLockoutDevice:   lockoutDevice(true),
	domain.CommandUnlockoutDevice: lockoutDevice(false),
	domain.CommandLockoutAll:      lockoutAll(true),
	domain.CommandUnlockoutAll:    lockoutAll(false),
	domain.CommandRescan:          rescan,

	domain.CommandCustomVariableSetValue:      setCustomValue,
	domain.CommandCustomVariableSetExpression: setCustomExpression,
	domain.CommandCustomVariableStoreVariable: storeVariable,

	domain.CommandExec:            execCommand,
	domain.CommandInstanceControl: instanceControl,
	domain.CommandAppExit:         appExit,
	domain.CommandAppRestart:      appRestart,
}

// Dispatch runs one command. A command whose references do not resolve is
// abandoned before any effect and the resolution error is returned.
// Page changes and lockouts take effect on the next Drain.
func (e *Engine) Dispatch(ctx context.Context, cmd domain.Command) error {
	h, ok := handlers[cmd.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Kind)
	}

	var opts domain.CommandOptions
	if err := decodeOptions(cmd.Options, &opts); err != nil {
		return fmt.Errorf("%s: %w", cmd.Kind, err)
	}

	e.logger.Debug("Dispatching command", "command", cmd.Kind)
	if err := h(ctx, e, cmd, opts); err != nil {
		return fmt.Errorf("%s: %w", cmd.Kind, err)
	}
	return nil
}

func (e *Engine) resolveField(ctx context.Context, cmd domain.Command, opts domain.CommandOptions, kind domain.FieldKind) (string, error) {
	return e.Resolve(ctx, cmd.Kind.Category(), opts.Field(kind), cmd.Extras)
}

// resolveSurface resolves the controller of a command to a concrete surface.
func (e *Engine) resolveSurface(ctx context.Context, cmd domain.Command, opts domain.CommandOptions) (domain.SurfaceID, error) {
	controller, err := e.resolveField(ctx, cmd, opts, domain.FieldController)
	if err != nil {
		return "", err
	}
	if controller == "" || controller == string(domain.SelfSurface) {
		return "", domain.ErrSurfaceUnresolved
	}
	return domain.SurfaceID(controller), nil
}

func (e *Engine) resolveButtonKey(ctx context.Context, cmd domain.Command, opts domain.CommandOptions) (domain.BankKey, error) {
	page, err := e.resolveField(ctx, cmd, opts, domain.FieldPage)
	if err != nil {
		return domain.BankKey{}, err
	}
	bank, err := e.resolveField(ctx, cmd, opts, domain.FieldBank)
	if err != nil {
		return domain.BankKey{}, err
	}
	if page == "" || bank == "" {
		return domain.BankKey{}, fmt.Errorf("%w: page and bank", domain.ErrMissingOption)
	}
	if page == domain.CurrentContext || bank == domain.CurrentContext {
		return domain.BankKey{}, fmt.Errorf("%w: button %s/%s outside a button press", domain.ErrMissingOption, page, bank)
	}
	return domain.BankKey{Page: page, Bank: bank}, nil
}

func (e *Engine) resolvePage(ctx context.Context, cmd domain.Command, opts domain.CommandOptions) (domain.PageRef, error) {
	page, err := e.resolveField(ctx, cmd, opts, domain.FieldPage)
	if err != nil {
		return "", err
	}
	if page == "" {
		return "", fmt.Errorf("%w: page", domain.ErrMissingOption)
	}
	// "0" only means something when a press supplied the context.
	if page == domain.CurrentContext {
		return "", fmt.Errorf("%w: page %q outside a button press", domain.ErrMissingOption, page)
	}
	return domain.PageRef(page), nil
}

func setPage(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
	surface, err := e.resolveSurface(ctx, cmd, opts)
	if err != nil {
		return err
	}
	page, err := e.resolvePage(ctx, cmd, opts)
	if err != nil {
		return err
	}
	_, err = e.Navigate(ctx, surface, page, "")
	return err
}

// setPageByIndex addresses the surface by its position in the surface list.
func setPageByIndex(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
	page, err := e.resolvePage(ctx, cmd, opts)
	if err != nil {
		return err
	}

	raw := opts.Controller
	if opts.Controller == domain.UseVariable {
		field := opts.Field(domain.FieldController)
		if !field.Variable.IsZero() {
			raw, err = e.host.Get(ctx, field.Variable)
		} else {
			raw, err = e.host.ParseTemplate(ctx, field.Template)
		}
		if err != nil {
			return fmt.Errorf("failed to read controller variable: %w", err)
		}
	}
	raw = stripSpace(raw)

	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return e.unresolved(ctx, domain.FieldController, raw)
	}

	surfaces, err := e.host.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list surfaces: %w", err)
	}
	if index >= len(surfaces) {
		e.logger.Warn(fmt.Sprintf("Trying to set controller #%d but only %d controller(s) are available.", index, len(surfaces)))
		return nil
	}

	_, err = e.Navigate(ctx, surfaces[index], page, "")
	return err
}

// stepPage moves the surface to the next or previous page, wrapping
// between domain.MinPage and domain.MaxPage.
func stepPage(delta int) handler {
	return func(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
		surface, err := e.resolveSurface(ctx, cmd, opts)
		if err != nil {
			return err
		}

		from, err := e.host.Page(ctx, surface)
		if err != nil {
			return fmt.Errorf("failed to query page of %s: %w", surface, err)
		}
		n, err := strconv.Atoi(string(from))
		if err != nil {
			return fmt.Errorf("surface %s is on non-numeric page %q", surface, from)
		}

		to := n + delta
		switch {
		case to > domain.MaxPage:
			to = domain.MinPage
		case to < domain.MinPage:
			to = domain.MaxPage
		}

		_, err = e.Navigate(ctx, surface, domain.PageRef(strconv.Itoa(to)), from)
		return err
	}
}

// optionalSurface resolves the controller of a button command, which may
// be omitted.
func (e *Engine) optionalSurface(ctx context.Context, cmd domain.Command, opts domain.CommandOptions) (domain.SurfaceID, error) {
	if opts.Controller == "" {
		if cmd.Extras != nil {
			return cmd.Extras.DeviceID, nil
		}
		return "", nil
	}
	controller, err := e.resolveField(ctx, cmd, opts, domain.FieldController)
	return domain.SurfaceID(controller), err
}

func pressButton(states ...bool) handler {
	return func(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
		key, err := e.resolveButtonKey(ctx, cmd, opts)
		if err != nil {
			return err
		}
		surface, err := e.optionalSurface(ctx, cmd, opts)
		if err != nil {
			return err
		}
		for _, pressed := range states {
			if err := e.host.Press(ctx, key, pressed, surface); err != nil {
				return err
			}
		}
		return nil
	}
}

func changeField(field string) handler {
	return func(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
		key, err := e.resolveButtonKey(ctx, cmd, opts)
		if err != nil {
			return err
		}
		var value any = opts.Color
		if field == domain.StyleKeyText {
			value = opts.Label
		}
		return e.host.ChangeField(ctx, key, field, value)
	}
}

func panicBank(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
	key, err := e.resolveButtonKey(ctx, cmd, opts)
	if err != nil {
		return err
	}
	return e.host.AbortBank(ctx, key, opts.Unlatch)
}

func panicAll(ctx context.Context, e *Engine, _ domain.Command, _ domain.CommandOptions) error {
	return e.host.AbortAll(ctx)
}

func setBrightness(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
	surface, err := e.resolveSurface(ctx, cmd, opts)
	if err != nil {
		return err
	}
	return e.host.SetBrightness(ctx, surface, opts.Brightness)
}

// releaseTrigger releases the button that triggered a lockout so it does
// not stay pushed behind the lock screen.
func (e *Engine) releaseTrigger(ctx context.Context, cmd domain.Command, surface domain.SurfaceID) error {
	if cmd.Extras == nil {
		return nil
	}
	key := domain.BankKey{Page: cmd.Extras.Page, Bank: cmd.Extras.Bank}
	return e.host.Press(ctx, key, false, surface)
}

func lockoutDevice(lock bool) handler {
	return func(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
		surface, err := e.resolveSurface(ctx, cmd, opts)
		if err != nil {
			return err
		}
		if !e.host.PinEnabled(ctx) {
			e.logger.Debug("Lockout ignored, PIN disabled", "surface", surface)
			return nil
		}
		if err := e.releaseTrigger(ctx, cmd, surface); err != nil {
			return err
		}

		linked := e.host.LinkLockouts(ctx)
		e.deferred.Schedule(string(cmd.Kind), func(ctx context.Context) error {
			switch {
			case linked && lock:
				return e.host.LockoutAll(ctx)
			case linked:
				return e.host.UnlockAll(ctx)
			case lock:
				return e.host.Lockout(ctx, surface, opts.Page)
			default:
				return e.host.Unlock(ctx, surface, opts.Page)
			}
		})
		return nil
	}
}

func lockoutAll(lock bool) handler {
	return func(ctx context.Context, e *Engine, cmd domain.Command, opts domain.CommandOptions) error {
		if !e.host.PinEnabled(ctx) {
			e.logger.Debug("Lockout ignored, PIN disabled")
			return nil
		}
		if cmd.Extras != nil {
			if err := e.releaseTrigger(ctx, cmd, cmd.Extras.DeviceID); err != nil {
				return err
			}
		}

		e.deferred.Schedule(string(cmd.Kind), func(ctx context.Context) error {
			if lock {
				return e.host.LockoutAll(ctx)
			}
			return e.host.UnlockAll(ctx)
		})
		return nil
	}
}

func rescan(ctx context.Context, e *Engine, _ domain.Command, _ domain.CommandOptions) error {
	return e.host.Rescan(ctx)
}

func requireName(opts domain.CommandOptions) error {
	if opts.Name == "" {
		return fmt.Errorf("%w: name", domain.ErrMissingOption)
	}
	return nil
}

func setCustomValue(ctx context.Context, e *Engine, _ domain.Command, opts domain.CommandOptions) error {
	if err := requireName(opts); err != nil {
		return err
	}
	return e.host.SetValue(ctx, opts.Name, opts.Value)
}

func setCustomExpression(ctx context.Context, e *Engine, _ domain.Command, opts domain.CommandOptions) error {
	if err := requireName(opts); err != nil {
		return err
	}
	return e.host.SetExpression(ctx, opts.Name, opts.Expression)
}

func storeVariable(ctx context.Context, e *Engine, _ domain.Command, opts domain.CommandOptions) error {
	if err := requireName(opts); err != nil {
		return err
	}
	ref, err := domain.ParseVariableRef(opts.Variable)
	if err != nil {
		return err
	}
	value, err := e.host.Get(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return e.host.SetValue(ctx, opts.Name, value)
}
