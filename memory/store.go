package memory

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/database"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/metrics"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/migration"
)

// Config configures the store.
type Config struct {
	// Path is the SQLite database file; ":memory:" keeps everything in RAM.
	Path string `yaml:"path" json:"path"`

	// BusyTimeout bounds how long a writer waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Path:        "memory.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Store is the tiered memory store. All methods are safe for concurrent
// use; writes serialize on the store's single connection.
type Store struct {
	manager *database.Manager
	logger  *zap.Logger
	metrics *metrics.Collector
	closed  atomic.Bool
}

// Open opens the database file, applies pending schema migrations and
// returns the ready store. A migration failure closes the database and
// fails the open; the store never runs on a half-migrated schema.
// The logger may be nil; the collector may be nil to disable metrics.
func Open(cfg Config, logger *zap.Logger, collector *metrics.Collector) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrInvalidInput)
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	manager, err := database.NewManager(database.Config{
		Path:        cfg.Path,
		BusyTimeout: cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}

	migrator, err := migration.NewMigrator(manager.SQLDB(), nil)
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	if err := migrator.Up(context.Background()); err != nil {
		migrator.Close()
		manager.Close()
		return nil, fmt.Errorf("migrate memory schema: %w", err)
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("failed to close migrator", zap.Error(err))
	}

	s := &Store{
		manager: manager,
		logger:  logger.With(zap.String("component", "memory")),
		metrics: collector,
	}

	s.logger.Info("memory store opened", zap.String("path", cfg.Path))
	return s, nil
}

// Ping verifies the database connection is alive. Health probes call
// this on the read path.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.manager.Ping(ctx)
}

// Close closes the store. Safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("memory store closed")
	return s.manager.Close()
}

// guard rejects operations on a closed store.
func (s *Store) guard() error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

// read returns a context-bound handle for read queries.
func (s *Store) read(ctx context.Context) *gorm.DB {
	return s.manager.DB().WithContext(ctx)
}
