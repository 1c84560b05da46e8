package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// UpdateFunc receives the stored history (nil when the surface has none) and
// returns the history to persist. Returning a nil history persists nothing.
type UpdateFunc func(current *domain.History) (*domain.History, error)

// Manager orchestrates history access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.HistoryStore

	mu    sync.Mutex
	locks map[domain.SurfaceID]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new history Manager over the given store.
func NewManager(store ports.HistoryStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[domain.SurfaceID]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(surface) after unlocking.
func (m *Manager) acquire(surface domain.SurfaceID) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[surface]
	if !exists {
		entry = &lockEntry{}
		m.locks[surface] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(surface domain.SurfaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[surface]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, surface)
	}
}

// Load retrieves the history of a surface.
func (m *Manager) Load(ctx context.Context, surface domain.SurfaceID) (*domain.History, error) {
	var h *domain.History
	err := m.WithLock(ctx, surface, func(ctx context.Context) error {
		var err error
		h, err = m.store.Load(ctx, surface)
		return err
	})
	return h, err
}

// Update performs an atomic read-modify-write of a surface's history and
// returns a copy of what was persisted (or of the unchanged history).
func (m *Manager) Update(ctx context.Context, surface domain.SurfaceID, fn UpdateFunc) (*domain.History, error) {
	var result *domain.History
	err := m.WithLock(ctx, surface, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, surface)
		if err != nil {
			if !errors.Is(err, domain.ErrHistoryNotFound) {
				return fmt.Errorf("failed to load history: %w", err)
			}
			current = nil
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			result = current.Clone()
			return nil
		}

		if err := m.store.Save(ctx, surface, next); err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}
		result = next.Clone()
		return nil
	})
	return result, err
}

// Delete removes the history of a surface.
func (m *Manager) Delete(ctx context.Context, surface domain.SurfaceID) error {
	return m.WithLock(ctx, surface, func(ctx context.Context) error {
		return m.store.Delete(ctx, surface)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]domain.SurfaceID, error) {
	return m.store.List(ctx)
}

// WithLock executes a function while holding the lock for the surface.
func (m *Manager) WithLock(ctx context.Context, surface domain.SurfaceID, fn func(context.Context) error) error {
	entry := m.acquire(surface)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(surface)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, string(surface), m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"surface", surface,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
