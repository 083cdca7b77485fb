// Package openclaw provides a top-level convenience entry point for the
// memory store and recall engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/andysheldon-creator/OpenClaw-Optimised-sub003"
//
//	client, err := openclaw.Open(nil, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	id, err := client.Store().InsertFact(ctx, memory.FactInput{...})
//	text, err := client.Recall().BuildMemoryContext(ctx, "what did andy say", 0)
//
// Open wires configuration, metrics and telemetry-aware components
// together; callers who need finer control can construct memory.Store
// and recall.Engine directly.
package openclaw

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/config"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/metrics"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/memory"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/recall"
	"go.uber.org/zap"
)

// Client bundles an open store and its recall engine behind one handle.
type Client struct {
	store  *memory.Store
	engine *recall.Engine
}

// Open creates the state directory, opens the store and builds the
// recall engine from cfg. A nil cfg means defaults; a nil logger means
// silent operation.
func Open(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Metrics registration is process-global, so the collector exists
	// once per Open'd client at most.
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	dbPath := cfg.Memory.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	store, err := memory.Open(memory.Config{
		Path:        dbPath,
		BusyTimeout: cfg.Memory.BusyTimeout,
	}, logger, collector)
	if err != nil {
		return nil, err
	}

	engine := recall.NewEngine(store, recall.Options{
		Logger:                logger,
		Collector:             collector,
		Enabled:               cfg.Memory.Enabled,
		EntityCacheTTL:        cfg.Memory.EntityCacheTTL,
		ContextBudget:         cfg.Memory.ContextBudget,
		HybridEntityFactLimit: cfg.Memory.HybridEntityFactLimit,
	})

	return &Client{store: store, engine: engine}, nil
}

// Store returns the underlying memory store for writes and raw reads.
func (c *Client) Store() *memory.Store {
	return c.store
}

// Recall returns the recall engine for queries and context assembly.
func (c *Client) Recall() *recall.Engine {
	return c.engine
}

// Close releases the database. The engine holds no resources of its
// own beyond the store.
func (c *Client) Close() error {
	return c.store.Close()
}
