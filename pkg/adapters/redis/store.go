package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/switchboard/pkg/domain"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "switchboard:history:"

// noExpiry is the index score of histories without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.HistoryStore using Redis.
// Each history is a JSON value under prefix+"s:"+surface; a sorted set at
// prefix+"index" indexes the surfaces by expiry. Surface ids never share a
// key space with the index or the locks.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration of stored histories. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(surface domain.SurfaceID) string {
	return s.prefix + "s:" + string(surface)
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the history of a surface.
func (s *Store) Save(ctx context.Context, surface domain.SurfaceID, history *domain.History) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(surface), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: string(surface),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the history of a surface.
func (s *Store) Load(ctx context.Context, surface domain.SurfaceID) (*domain.History, error) {
	val, err := s.client.Get(ctx, s.key(surface)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var history domain.History
	if err := json.Unmarshal([]byte(val), &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return &history, nil
}

// Delete removes the history of a surface.
func (s *Store) Delete(ctx context.Context, surface domain.SurfaceID) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(surface))
	pipe.ZRem(ctx, s.indexKey(), string(surface))

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the surfaces with a stored history. Expired entries are
// pruned from the index first.
func (s *Store) List(ctx context.Context) ([]domain.SurfaceID, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired histories: %w", err)
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list histories: %w", err)
	}

	surfaces := make([]domain.SurfaceID, len(members))
	for i, m := range members {
		surfaces[i] = domain.SurfaceID(m)
	}
	return surfaces, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
