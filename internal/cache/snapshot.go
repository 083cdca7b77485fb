package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/metrics"
)

// =============================================================================
// TTL Snapshot Cache
// =============================================================================

// RefreshFunc loads a fresh snapshot value.
type RefreshFunc[T any] func(ctx context.Context) (T, error)

// Config configures a snapshot cache.
type Config struct {
	// Name labels the cache in logs and metrics.
	Name string

	// TTL is how long a snapshot stays fresh.
	TTL time.Duration

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default snapshot cache configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name: name,
		TTL:  60 * time.Second,
	}
}

// Snapshot caches a single value and refreshes it after the TTL expires.
// Concurrent refreshes collapse into one load through singleflight, and the
// old value keeps serving until the new one is swapped in. When a refresh
// fails but a previous snapshot exists, the stale snapshot is served rather
// than surfacing the error to readers.
type Snapshot[T any] struct {
	config  Config
	refresh RefreshFunc[T]
	logger  *zap.Logger
	metrics *metrics.Collector

	group singleflight.Group

	mu      sync.RWMutex
	value   T
	loaded  bool
	expires time.Time
}

// NewSnapshot creates a snapshot cache around the given refresh function.
func NewSnapshot[T any](cfg Config, refresh RefreshFunc[T], logger *zap.Logger, collector *metrics.Collector) *Snapshot[T] {
	if cfg.Name == "" {
		cfg.Name = "snapshot"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Snapshot[T]{
		config:  cfg,
		refresh: refresh,
		logger:  logger.With(zap.String("component", "cache"), zap.String("cache", cfg.Name)),
		metrics: collector,
	}
}

// Get returns the cached snapshot, refreshing it first when expired or
// never loaded.
func (s *Snapshot[T]) Get(ctx context.Context) (T, error) {
	s.mu.RLock()
	if s.loaded && s.config.Now().Before(s.expires) {
		value := s.value
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.config.Name)
		return value, nil
	}
	s.mu.RUnlock()

	s.metrics.RecordCacheMiss(s.config.Name)

	result, err, _ := s.group.Do(s.config.Name, func() (interface{}, error) {
		// A concurrent caller may have refreshed while this one waited.
		s.mu.RLock()
		if s.loaded && s.config.Now().Before(s.expires) {
			value := s.value
			s.mu.RUnlock()
			return value, nil
		}
		s.mu.RUnlock()

		fresh, err := s.refresh(ctx)
		if err != nil {
			s.mu.RLock()
			loaded, stale := s.loaded, s.value
			s.mu.RUnlock()
			if loaded {
				s.logger.Warn("snapshot refresh failed, serving stale value", zap.Error(err))
				return stale, nil
			}
			return nil, err
		}

		s.mu.Lock()
		s.value = fresh
		s.loaded = true
		s.expires = s.config.Now().Add(s.config.TTL)
		s.mu.Unlock()

		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Invalidate drops the cached snapshot so the next Get refreshes.
func (s *Snapshot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value = zero
	s.loaded = false
	s.expires = time.Time{}
}

// Loaded reports whether a snapshot has ever been stored.
func (s *Snapshot[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
