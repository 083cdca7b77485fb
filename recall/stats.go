package recall

import (
	"context"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/memory"
)

// StatsReport combines store counters with the known entity list, the
// payload served by diagnostics and health endpoints.
type StatsReport struct {
	Stats    memory.Stats `json:"stats"`
	Entities []string     `json:"entities"`
}

// HasMemoryData reports whether any facts are stored. Callers use it to
// skip recall entirely against a fresh database. A disabled engine
// reports false.
func (e *Engine) HasMemoryData(ctx context.Context) (bool, error) {
	if !e.enabled {
		return false, nil
	}
	return e.store.HasData(ctx)
}

// RecallStats returns store statistics plus every known entity slug.
// Works even when recall is disabled; diagnostics outlive the kill
// switch.
func (e *Engine) RecallStats(ctx context.Context) (*StatsReport, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	entities, err := e.entities.Get(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(entities))
	for i := range entities {
		slugs = append(slugs, entities[i].Slug)
	}

	return &StatsReport{Stats: *stats, Entities: slugs}, nil
}
