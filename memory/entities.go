package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetOrCreateEntity returns the entity with the given slug, creating it
// when missing. The slug is trimmed and lowercased first. An existing
// entity has its last_updated bumped on every call; the display name is
// only replaced when the new one is longer than the stored one.
func (s *Store) GetOrCreateEntity(ctx context.Context, slug, displayName string) (*Entity, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	start := time.Now()
	var entity *Entity
	err := s.manager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var txErr error
		entity, txErr = getOrCreateEntityTx(tx, slug, displayName)
		return txErr
	})
	s.metrics.RecordStoreWrite("upsert_entity", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// getOrCreateEntityTx is the transactional core shared with fact
// inserts. Touch time is wall clock, not the fact timestamp, so a
// backdated fact cannot rewind an entity's activity marker.
func getOrCreateEntityTx(tx *gorm.DB, slug, displayName string) (*Entity, error) {
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: entity slug is empty", ErrInvalidInput)
	}
	if displayName == "" {
		displayName = slug
	}
	now := nowMilli()

	var entity Entity
	err := tx.Where("slug = ?", slug).First(&entity).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		entity = Entity{Slug: slug, DisplayName: displayName, LastUpdated: now}
		if err := tx.Create(&entity).Error; err != nil {
			return nil, fmt.Errorf("create entity %s: %w", slug, err)
		}
		return &entity, nil
	case err != nil:
		return nil, fmt.Errorf("lookup entity %s: %w", slug, err)
	}

	updates := map[string]interface{}{"last_updated": now}
	// Display names only widen; a longer rendering is assumed richer.
	if len(displayName) > len(entity.DisplayName) {
		updates["display_name"] = displayName
		entity.DisplayName = displayName
	}
	if err := tx.Model(&entity).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("touch entity %s: %w", slug, err)
	}
	entity.LastUpdated = now
	return &entity, nil
}

// GetEntity returns the entity with the given slug, or nil when no such
// entity exists. Absence is not an error.
func (s *Store) GetEntity(ctx context.Context, slug string) (*Entity, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, nil
	}

	start := time.Now()
	var entity Entity
	err := s.read(ctx).Where("slug = ?", slug).First(&entity).Error
	s.metrics.RecordDBQuery("get_entity", time.Since(start))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %s: %w", slug, err)
	}
	return &entity, nil
}

// GetAllEntities returns every entity ordered by recent activity.
func (s *Store) GetAllEntities(ctx context.Context) ([]Entity, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	start := time.Now()
	var entities []Entity
	err := s.read(ctx).
		Order("last_updated DESC, id DESC").
		Find(&entities).Error
	s.metrics.RecordDBQuery("get_all_entities", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("get all entities: %w", err)
	}
	return entities, nil
}

// UpdateEntitySummary replaces an entity's summary and bumps its
// last_updated. Returns ErrEntityNotFound when the slug is unknown;
// summaries are never created implicitly.
func (s *Store) UpdateEntitySummary(ctx context.Context, slug, summary string) error {
	if err := s.guard(); err != nil {
		return err
	}
	slug = NormalizeSlug(slug)
	if slug == "" {
		return fmt.Errorf("%w: entity slug is empty", ErrInvalidInput)
	}

	start := time.Now()
	var affected int64
	err := s.manager.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&Entity{}).
			Where("slug = ?", slug).
			Updates(map[string]interface{}{
				"summary":      summary,
				"last_updated": nowMilli(),
			})
		affected = res.RowsAffected
		return res.Error
	})
	s.metrics.RecordStoreWrite("update_entity_summary", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("update entity summary: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", slug, ErrEntityNotFound)
	}

	s.logger.Debug("entity summary updated", zap.String("slug", slug))
	return nil
}

// GetEntityFacts returns the facts linked to an entity, newest first.
func (s *Store) GetEntityFacts(ctx context.Context, slug string, limit int) ([]Fact, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	start := time.Now()
	var facts []Fact
	err := s.read(ctx).
		Joins("JOIN fact_entities ON fact_entities.fact_id = facts.id").
		Joins("JOIN entities ON entities.id = fact_entities.entity_id").
		Where("entities.slug = ?", slug).
		Order("facts.timestamp DESC").
		Limit(limit).
		Find(&facts).Error
	s.metrics.RecordDBQuery("get_entity_facts", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("get entity facts: %w", err)
	}

	if err := s.attachEntities(ctx, facts); err != nil {
		return nil, err
	}
	return facts, nil
}
