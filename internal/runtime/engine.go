package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/history"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Engine resolves indirected references, keeps per-surface navigation
// history, narrows variable changes to dependent feedbacks and caches the
// merged style of every button.
//
// Every owned map has its own lock and no lock is held while a collaborator
// is called: hosts may call back into the engine from inside those calls.
type Engine struct {
	host      ports.Host
	histories *history.Manager

	deferred      *Deferred
	subscriptions *Subscriptions
	snapshots     *snapshotCache

	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	historyLimit int

	executor   ports.Executor
	instanceID string
	execs      sync.WaitGroup

	statusMu sync.RWMutex
	status   domain.InstanceStatus

	clockMu sync.Mutex
	clock   map[string]string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithHistoryLimit overrides the number of history entries kept per surface.
func WithHistoryLimit(limit int) EngineOption {
	return func(e *Engine) {
		if limit > 0 {
			e.historyLimit = limit
		}
	}
}

// WithExecutor enables exec commands. Without one they fail with
// domain.ErrUnsupported.
func WithExecutor(executor ports.Executor) EngineOption {
	return func(e *Engine) {
		e.executor = executor
	}
}

// WithInstanceID sets the id of this module's own instance, which
// instance_status feedbacks never color. Defaults to domain.DefaultInstanceID.
func WithInstanceID(id string) EngineOption {
	return func(e *Engine) {
		if id != "" {
			e.instanceID = id
		}
	}
}

// NewEngine creates an engine over the host collaborators. Navigation
// history is read and written through histories.
func NewEngine(host ports.Host, histories *history.Manager, opts ...EngineOption) *Engine {
	e := &Engine{
		host:          host,
		histories:     histories,
		subscriptions: NewSubscriptions(),
		snapshots:     newSnapshotCache(),
		logger:        logging.NewNop(),
		historyLimit:  domain.DefaultHistoryLimit,
		instanceID:    domain.DefaultInstanceID,
		clock:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.deferred = NewDeferred(e.logger)
	return e
}

// Drain runs the deferred work scheduled before the call, such as page
// assignments decided by Navigate.
func (e *Engine) Drain(ctx context.Context) error {
	return e.deferred.Drain(ctx)
}

// Pending returns the number of deferred tasks waiting for Drain.
func (e *Engine) Pending() int {
	return e.deferred.Len()
}

// Subscriptions returns the variable subscription index.
func (e *Engine) Subscriptions() *Subscriptions {
	return e.subscriptions
}

func base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t}
}

func (e *Engine) emitNavigate(ctx context.Context, ev *domain.NavigationEvent) {
	ev.EventBase = base(domain.EventNavigate)
	if e.hooks.OnNavigate != nil {
		e.hooks.OnNavigate(ctx, ev)
	}
}

func (e *Engine) emitUnresolved(ctx context.Context, kind domain.FieldKind, value string) {
	if e.hooks.OnUnresolved != nil {
		e.hooks.OnUnresolved(ctx, &domain.ResolutionEvent{
			EventBase: base(domain.EventUnresolved),
			Kind:      kind,
			Value:     value,
		})
	}
}

func (e *Engine) emitRecursion(ctx context.Context, variable string) {
	if e.hooks.OnRecursion != nil {
		e.hooks.OnRecursion(ctx, &domain.RecursionEvent{
			EventBase: base(domain.EventRecursion),
			Variable:  variable,
		})
	}
}

func (e *Engine) emitRecompute(ctx context.Context, ids []string, types []domain.FeedbackType) {
	if e.hooks.OnRecompute != nil {
		e.hooks.OnRecompute(ctx, &domain.RecomputeEvent{
			EventBase: base(domain.EventRecompute),
			IDs:       ids,
			Types:     types,
		})
	}
}

func (e *Engine) emitInvalidated(ctx context.Context, key domain.BankKey, res InvalidationResult) {
	if e.hooks.OnInvalidated != nil {
		e.hooks.OnInvalidated(ctx, &domain.InvalidationEvent{
			EventBase:    base(domain.EventInvalidated),
			Key:          key,
			StyleChanged: res.StyleChanged,
			TextChanged:  res.TextChanged,
		})
	}
}
