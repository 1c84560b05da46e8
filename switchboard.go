package switchboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/history"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Snapshot is the cached computed state of one button.
type Snapshot = runtime.Snapshot

// InvalidationResult tells which signals a bank invalidation produced.
type InvalidationResult = runtime.InvalidationResult

// Engine is the high-level entry point for the Switchboard library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime   *runtime.Engine
	host      ports.Host
	store     ports.HistoryStore
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	histories *history.Manager
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	limit     int

	executor   ports.Executor
	instanceID string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHistoryLimit overrides the number of history entries kept per surface.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) {
		e.limit = limit
	}
}

// WithHost injects the host collaborators. Defaults to an empty memory.Host.
func WithHost(host ports.Host) Option {
	return func(e *Engine) {
		e.host = host
	}
}

// WithHistoryStore injects the navigation history backend.
// Defaults to memory.HistoryStore.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serialises navigation of a surface across replicas sharing
// the history store. ttl <= 0 keeps the manager default.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithExecutor enables exec commands.
func WithExecutor(executor ports.Executor) Option {
	return func(e *Engine) {
		e.executor = executor
	}
}

// WithInstanceID names this module's own connection instance.
func WithInstanceID(id string) Option {
	return func(e *Engine) {
		e.instanceID = id
	}
}

// New initializes a new Switchboard Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.host == nil {
		eng.host = memory.NewHost(memory.HostConfig{})
	}
	if eng.store == nil {
		eng.store = memory.NewHistoryStore()
	}

	managerOpts := []history.Option{history.WithLogger(eng.logger)}
	if eng.locker != nil {
		managerOpts = append(managerOpts, history.WithLocker(eng.locker))
		if eng.lockTTL > 0 {
			managerOpts = append(managerOpts, history.WithLockTTL(eng.lockTTL))
		}
	}
	eng.histories = history.NewManager(eng.store, managerOpts...)

	eng.runtime = runtime.NewEngine(eng.host, eng.histories,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithHistoryLimit(eng.limit),
		runtime.WithExecutor(eng.executor),
		runtime.WithInstanceID(eng.instanceID),
	)
	return eng
}

// Dispatch executes one command. Page assignments it decides are deferred
// until Drain.
func (e *Engine) Dispatch(ctx context.Context, cmd domain.Command) error {
	return e.runtime.Dispatch(ctx, cmd)
}

// Navigate moves surface to target, or back/forward through its history.
// The page is assigned on the next Drain.
func (e *Engine) Navigate(ctx context.Context, surface domain.SurfaceID, target domain.PageRef) (*domain.History, error) {
	return e.runtime.Navigate(ctx, surface, target, "")
}

// Drain runs the deferred work scheduled so far.
func (e *Engine) Drain(ctx context.Context) error {
	return e.runtime.Drain(ctx)
}

// Pending returns the number of deferred tasks not yet drained.
func (e *Engine) Pending() int {
	return e.runtime.Pending()
}

// Resolve turns a raw field into a concrete page, bank or surface id.
func (e *Engine) Resolve(ctx context.Context, category domain.Category, field domain.FieldReference, extras *domain.ContextExtras) (string, error) {
	return e.runtime.Resolve(ctx, category, field, extras)
}

// Check expands text for the display variable variableID, replacing
// self-references with the recursion marker.
func (e *Engine) Check(ctx context.Context, variableID, text string) (string, bool, error) {
	return e.runtime.Check(ctx, variableID, text)
}

// SubscribeFeedback registers the variables an output depends on.
// It reports whether the feedback type is variable driven.
func (e *Engine) SubscribeFeedback(fb domain.Feedback) (bool, error) {
	return e.runtime.SubscribeFeedback(fb)
}

// UnsubscribeFeedback drops every subscription of id.
func (e *Engine) UnsubscribeFeedback(id string) {
	e.runtime.UnsubscribeFeedback(id)
}

// Evaluate computes the current value of a feedback.
func (e *Engine) Evaluate(ctx context.Context, fb domain.Feedback, info *domain.ContextExtras) (any, error) {
	return e.runtime.Evaluate(ctx, fb, info)
}

// VariablesChanged recomputes the outputs that depend on any changed or
// removed variable and returns their ids.
func (e *Engine) VariablesChanged(ctx context.Context, changed, removed []domain.VariableRef) ([]string, error) {
	return e.runtime.OnVariablesChanged(ctx, changed, removed)
}

// Invalidate recomputes the cached style and text of one button.
func (e *Engine) Invalidate(ctx context.Context, key domain.BankKey) (InvalidationResult, error) {
	return e.runtime.Invalidate(ctx, key)
}

// LoadAll seeds the button cache from every stored base style.
func (e *Engine) LoadAll(ctx context.Context) error {
	return e.runtime.LoadAll(ctx)
}

// Snapshot returns a copy of the cached state of one button.
func (e *Engine) Snapshot(key domain.BankKey) (Snapshot, bool) {
	return e.runtime.Snapshot(key)
}

// History returns the navigation history of surface.
func (e *Engine) History(ctx context.Context, surface domain.SurfaceID) (*domain.History, error) {
	return e.runtime.History(ctx, surface)
}

// OnBankPressed must be called by the host after any button press.
func (e *Engine) OnBankPressed(ctx context.Context) error {
	return e.runtime.OnBankPressed(ctx)
}

// OnIndicatePush must be called by the host when a pushed indicator changes.
func (e *Engine) OnIndicatePush(ctx context.Context) error {
	return e.runtime.OnIndicatePush(ctx)
}

// Surfaces lists every surface with a stored navigation history.
func (e *Engine) Surfaces(ctx context.Context) ([]domain.SurfaceID, error) {
	return e.histories.List(ctx)
}

// Host returns the collaborators the engine was built with.
func (e *Engine) Host() ports.Host {
	return e.host
}

// OnInstanceStatus must be called by the host whenever the health of its
// connection instances changes.
func (e *Engine) OnInstanceStatus(ctx context.Context, status domain.InstanceStatus) error {
	return e.runtime.OnInstanceStatus(ctx, status)
}

// InstanceStatus returns the last reported instance health.
func (e *Engine) InstanceStatus() domain.InstanceStatus {
	return e.runtime.InstanceStatus()
}

// PublishClock publishes the date and time variables for now.
func (e *Engine) PublishClock(ctx context.Context, now time.Time) ([]domain.VariableRef, error) {
	return e.runtime.PublishClock(ctx, now)
}

// RunClock publishes the date and time variables every interval until ctx
// is done.
func (e *Engine) RunClock(ctx context.Context, interval time.Duration) {
	e.runtime.RunClock(ctx, interval)
}

// Wait blocks until every running exec command has finished.
func (e *Engine) Wait() {
	e.runtime.Wait()
}
