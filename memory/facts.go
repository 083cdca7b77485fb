package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultListLimit caps list-style fact queries when the caller passes
// a non-positive limit.
const defaultListLimit = 50

// InsertFact stores a single fact together with its entity links and
// returns the new fact id. Referenced entities are created on demand
// inside the same transaction.
func (s *Store) InsertFact(ctx context.Context, in FactInput) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}

	start := time.Now()
	var id int64
	err := s.manager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var txErr error
		id, txErr = insertFactTx(tx, in)
		return txErr
	})
	s.metrics.RecordStoreWrite("insert_fact", err, time.Since(start))
	if err != nil {
		return 0, err
	}

	s.logger.Debug("fact inserted",
		zap.Int64("id", id),
		zap.String("fact_type", string(in.FactType)),
		zap.Int("entities", len(in.Entities)))
	return id, nil
}

// InsertFacts stores a batch of facts in one transaction. Either every
// fact lands or none does; the returned ids parallel the input order.
func (s *Store) InsertFacts(ctx context.Context, batch []FactInput) ([]int64, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}

	start := time.Now()
	ids := make([]int64, 0, len(batch))
	err := s.manager.WithTransaction(ctx, func(tx *gorm.DB) error {
		for i := range batch {
			id, txErr := insertFactTx(tx, batch[i])
			if txErr != nil {
				return fmt.Errorf("fact %d: %w", i, txErr)
			}
			ids = append(ids, id)
		}
		return nil
	})
	s.metrics.RecordStoreWrite("insert_facts", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fact batch inserted", zap.Int("count", len(ids)))
	return ids, nil
}

// insertFactTx validates and normalizes the input, creates the fact row
// and links it to its entities. Runs inside the caller's transaction.
func insertFactTx(tx *gorm.DB, in FactInput) (int64, error) {
	fact, err := normalizeFactInput(in)
	if err != nil {
		return 0, err
	}

	if err := tx.Create(fact).Error; err != nil {
		return 0, fmt.Errorf("insert fact: %w", err)
	}

	for _, slug := range in.Entities {
		entity, err := getOrCreateEntityTx(tx, slug, "")
		if err != nil {
			return 0, err
		}
		link := FactEntity{FactID: fact.ID, EntityID: entity.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return 0, fmt.Errorf("link fact to entity %s: %w", entity.Slug, err)
		}
	}

	return fact.ID, nil
}

// normalizeFactInput applies defaults and rejects invalid input before
// anything touches the database.
func normalizeFactInput(in FactInput) (*Fact, error) {
	if !in.FactType.Valid() {
		return nil, fmt.Errorf("%w: unknown fact type %q", ErrInvalidInput, in.FactType)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: fact content is empty", ErrInvalidInput)
	}
	if in.Confidence != nil && (*in.Confidence < 0 || *in.Confidence > 1) {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidInput, *in.Confidence)
	}

	ts := in.Timestamp
	if ts == 0 {
		ts = nowMilli()
	}
	if ts < 0 {
		return nil, fmt.Errorf("%w: negative timestamp %d", ErrInvalidInput, ts)
	}

	day := in.SourceDay
	if day == "" {
		day = DayOf(ts)
	}

	// Unrecognized sources degrade to unknown instead of failing the
	// write; trust shapes recall ranking, never ingestion.
	source := in.SourceType
	if !source.Valid() {
		source = SourceUnknown
	}

	trust := DefaultTrustLevel(source)
	if in.TrustLevel != nil {
		if *in.TrustLevel < 0 || *in.TrustLevel > 1 {
			return nil, fmt.Errorf("%w: trust level %v outside [0,1]", ErrInvalidInput, *in.TrustLevel)
		}
		trust = *in.TrustLevel
	}

	return &Fact{
		SessionID:  in.SessionID,
		FactType:   in.FactType,
		Content:    in.Content,
		Timestamp:  ts,
		SourceDay:  day,
		Confidence: in.Confidence,
		SourceType: source,
		TrustLevel: trust,
	}, nil
}

// FactExists reports whether a fact with exactly this content is
// already stored. Matching is literal; rephrasings slip through.
func (s *Store) FactExists(ctx context.Context, content string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	if content == "" {
		return false, nil
	}

	start := time.Now()
	var count int64
	err := s.read(ctx).Model(&Fact{}).Where("content = ?", content).Count(&count).Error
	s.metrics.RecordDBQuery("fact_exists", time.Since(start))
	if err != nil {
		return false, fmt.Errorf("check fact exists: %w", err)
	}
	return count > 0, nil
}

// DeleteFact removes a fact. Entity links cascade away and the search
// index row is dropped by trigger. Deleting an absent id is a no-op.
func (s *Store) DeleteFact(ctx context.Context, id int64) error {
	if err := s.guard(); err != nil {
		return err
	}

	start := time.Now()
	err := s.manager.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Delete(&Fact{}, id).Error
	})
	s.metrics.RecordStoreWrite("delete_fact", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("delete fact %d: %w", id, err)
	}

	s.logger.Debug("fact deleted", zap.Int64("id", id))
	return nil
}

// GetFactsByTimeRange returns facts whose timestamp falls inside the
// inclusive [startMS, endMS] window, newest first.
func (s *Store) GetFactsByTimeRange(ctx context.Context, startMS, endMS int64, limit int) ([]Fact, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	start := time.Now()
	var facts []Fact
	err := s.read(ctx).
		Where("timestamp >= ? AND timestamp <= ?", startMS, endMS).
		Order("timestamp DESC").
		Limit(limit).
		Find(&facts).Error
	s.metrics.RecordDBQuery("facts_by_time_range", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("facts by time range: %w", err)
	}

	if err := s.attachEntities(ctx, facts); err != nil {
		return nil, err
	}
	return facts, nil
}

// GetFactsByDay returns facts recorded on a calendar day (YYYY-MM-DD,
// UTC), newest first.
func (s *Store) GetFactsByDay(ctx context.Context, day string, limit int) ([]Fact, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	start := time.Now()
	var facts []Fact
	err := s.read(ctx).
		Where("source_day = ?", day).
		Order("timestamp DESC").
		Limit(limit).
		Find(&facts).Error
	s.metrics.RecordDBQuery("facts_by_day", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("facts by day: %w", err)
	}

	if err := s.attachEntities(ctx, facts); err != nil {
		return nil, err
	}
	return facts, nil
}

// attachEntities fills the Entities field of each fact with its linked
// entity slugs using one batched join query.
func (s *Store) attachEntities(ctx context.Context, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}

	ids := make([]int64, len(facts))
	for i := range facts {
		ids[i] = facts[i].ID
	}

	type linkRow struct {
		FactID int64
		Slug   string
	}
	var rows []linkRow
	err := s.read(ctx).
		Table("fact_entities").
		Select("fact_entities.fact_id AS fact_id, entities.slug AS slug").
		Joins("JOIN entities ON entities.id = fact_entities.entity_id").
		Where("fact_entities.fact_id IN ?", ids).
		Order("entities.slug").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("load fact entities: %w", err)
	}

	slugs := make(map[int64][]string, len(facts))
	for _, row := range rows {
		slugs[row.FactID] = append(slugs[row.FactID], row.Slug)
	}
	for i := range facts {
		facts[i].Entities = slugs[facts[i].ID]
	}
	return nil
}
