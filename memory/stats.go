package memory

import (
	"context"
	"fmt"
	"time"
)

// Stats returns row counts and the stored time span.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	start := time.Now()
	db := s.read(ctx)

	var stats Stats
	if err := db.Model(&Fact{}).Count(&stats.Facts).Error; err != nil {
		return nil, fmt.Errorf("count facts: %w", err)
	}
	if err := db.Model(&Entity{}).Count(&stats.Entities).Error; err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	if err := db.Model(&Opinion{}).Count(&stats.Opinions).Error; err != nil {
		return nil, fmt.Errorf("count opinions: %w", err)
	}

	if stats.Facts > 0 {
		type span struct {
			Oldest int64
			Newest int64
		}
		var sp span
		err := db.Model(&Fact{}).
			Select("MIN(timestamp) AS oldest, MAX(timestamp) AS newest").
			Scan(&sp).Error
		if err != nil {
			return nil, fmt.Errorf("fact time span: %w", err)
		}
		stats.OldestFact = sp.Oldest
		stats.NewestFact = sp.Newest
	}

	s.metrics.RecordDBQuery("stats", time.Since(start))
	return &stats, nil
}

// HasData reports whether at least one fact has ever been stored. Used
// by callers to skip context assembly entirely on a fresh database.
func (s *Store) HasData(ctx context.Context) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}

	var n int64
	err := s.read(ctx).Raw("SELECT EXISTS(SELECT 1 FROM facts)").Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("check has data: %w", err)
	}
	return n > 0, nil
}
