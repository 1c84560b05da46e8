package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/adapters/redis"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/observability"
)

// AppRequest is an app_exit or app_restart command waiting for the
// serving loop.
type AppRequest int

const (
	AppExit AppRequest = iota + 1
	AppRestart
)

func (r AppRequest) String() string {
	if r == AppRestart {
		return "restart"
	}
	return "exit"
}

// Stack is an engine wired with the collaborators described by a Config.
type Stack struct {
	Engine   *switchboard.Engine
	Host     *memory.Host
	Registry *prometheus.Registry

	// Requests receives app_exit, and app_restart when the stack was built
	// WithRestart.
	Requests <-chan AppRequest

	redis *redis.Store
	clock time.Duration
}

// StackOption configures NewStack.
type StackOption func(*stackOptions)

type stackOptions struct {
	restart bool
}

// WithRestart makes app_restart available. The caller must rebuild the
// stack when AppRestart is received.
func WithRestart() StackOption {
	return func(o *stackOptions) {
		o.restart = true
	}
}

// RunClock publishes the date and time variables until ctx is done.
// It returns at once when the clock is disabled.
func (s *Stack) RunClock(ctx context.Context) {
	if s.clock <= 0 {
		return
	}
	s.Engine.RunClock(ctx, s.clock)
}

// Close releases the Redis connection, if any.
func (s *Stack) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// NewStack builds the host, history store, metrics and engine for cfg.
// The button cache is seeded from the host before returning.
func NewStack(ctx context.Context, cfg config.Config, logger *slog.Logger, debug bool, opts ...StackOption) (*Stack, error) {
	var so stackOptions
	for _, opt := range opts {
		opt(&so)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	hooks := metrics.Hooks()
	if debug {
		hooks = observability.ChainHooks(hooks, createDebugHooks(logger))
	}

	requests := make(chan AppRequest, 1)
	request := func(r AppRequest) func() {
		return func() {
			select {
			case requests <- r:
			default:
			}
		}
	}
	app := config.AppHooks{OnExit: request(AppExit)}
	if so.restart {
		app.OnRestart = request(AppRestart)
	}

	s := &Stack{
		Host:     cfg.NewHost(app),
		Registry: reg,
		Requests: requests,
		clock:    cfg.Clock.Interval,
	}

	engineOpts := []switchboard.Option{
		switchboard.WithHost(s.Host),
		switchboard.WithLogger(logger),
		switchboard.WithLifecycleHooks(hooks),
		switchboard.WithHistoryLimit(cfg.History.Limit),
		switchboard.WithInstanceID(cfg.Instance.ID),
	}

	runner, err := cfg.NewExecutor()
	if err != nil {
		return nil, err
	}
	if runner != nil {
		engineOpts = append(engineOpts, switchboard.WithExecutor(runner))
		logger.Info("Exec enabled", "tools", runner.Tools(), "inline", cfg.Exec.AllowInline)
	}

	if rc := cfg.Redis; rc != nil {
		storeOpts := []redis.Option{redis.WithTTL(rc.TTL)}
		prefix := redis.DefaultPrefix
		if rc.Prefix != "" {
			prefix = rc.Prefix
			storeOpts = append(storeOpts, redis.WithPrefix(prefix))
		}
		s.redis = redis.New(rc.Addr, rc.Password, rc.DB, storeOpts...)
		if err := s.redis.Client().Ping(ctx).Err(); err != nil {
			_ = s.redis.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
		}
		engineOpts = append(engineOpts,
			switchboard.WithHistoryStore(s.redis),
			switchboard.WithLocker(redis.NewLocker(s.redis.Client(), prefix), cfg.History.LockTTL),
		)
		logger.Info("Using Redis history store", "addr", rc.Addr, "prefix", prefix)
	}

	s.Engine = switchboard.New(engineOpts...)
	if err := s.Engine.LoadAll(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Engine.OnInstanceStatus(ctx, cfg.Instance.Status); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNavigate: func(ctx context.Context, e *domain.NavigationEvent) {
			logger.Debug("Navigate", "surface", e.Surface, "target", e.Target, "assigned", e.Assigned, "trimmed", e.Trimmed)
		},
		OnUnresolved: func(ctx context.Context, e *domain.ResolutionEvent) {
			logger.Debug("Unresolved Reference", "kind", e.Kind, "value", e.Value)
		},
		OnRecursion: func(ctx context.Context, e *domain.RecursionEvent) {
			logger.Debug("Recursive Text", "variable", e.Variable)
		},
		OnRecompute: func(ctx context.Context, e *domain.RecomputeEvent) {
			logger.Debug("Recompute", "ids", e.IDs, "types", e.Types)
		},
		OnInvalidated: func(ctx context.Context, e *domain.InvalidationEvent) {
			logger.Debug("Bank Invalidated", "bank", e.Key.String(), "style_changed", e.StyleChanged, "text_changed", e.TextChanged)
		},
	}
}
