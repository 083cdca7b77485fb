package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpsertOpinion inserts or revises the opinion keyed by (entity slug,
// statement). A repeated statement updates confidence and evidence in
// place rather than accumulating duplicate rows; the latest write wins.
// Returns the opinion id.
func (s *Store) UpsertOpinion(ctx context.Context, in OpinionInput) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}

	slug := NormalizeSlug(in.EntitySlug)
	statement := strings.TrimSpace(in.Statement)
	if slug == "" {
		return 0, fmt.Errorf("%w: entity slug is empty", ErrInvalidInput)
	}
	if statement == "" {
		return 0, fmt.Errorf("%w: opinion statement is empty", ErrInvalidInput)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return 0, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidInput, in.Confidence)
	}

	supporting := FactIDList(in.SupportingFactIDs)
	if supporting == nil {
		supporting = FactIDList{}
	}
	contradicting := FactIDList(in.ContradictingFactIDs)
	if contradicting == nil {
		contradicting = FactIDList{}
	}

	start := time.Now()
	var id int64
	err := s.manager.WithTransaction(ctx, func(tx *gorm.DB) error {
		var existing Opinion
		txErr := tx.Where("entity_slug = ? AND statement = ?", slug, statement).First(&existing).Error
		switch {
		case errors.Is(txErr, gorm.ErrRecordNotFound):
			op := Opinion{
				EntitySlug:           slug,
				Statement:            statement,
				Confidence:           in.Confidence,
				SupportingFactIDs:    supporting,
				ContradictingFactIDs: contradicting,
				LastUpdated:          nowMilli(),
			}
			if err := tx.Create(&op).Error; err != nil {
				return fmt.Errorf("insert opinion: %w", err)
			}
			id = op.ID
			return nil
		case txErr != nil:
			return fmt.Errorf("lookup opinion: %w", txErr)
		}

		existing.Confidence = in.Confidence
		existing.SupportingFactIDs = supporting
		existing.ContradictingFactIDs = contradicting
		existing.LastUpdated = nowMilli()
		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("update opinion: %w", err)
		}
		id = existing.ID
		return nil
	})
	s.metrics.RecordStoreWrite("upsert_opinion", err, time.Since(start))
	if err != nil {
		return 0, err
	}

	s.logger.Debug("opinion upserted",
		zap.Int64("id", id),
		zap.String("entity", slug))
	return id, nil
}

// GetEntityOpinions returns an entity's opinions, strongest conviction
// first; equal confidence breaks on recency.
func (s *Store) GetEntityOpinions(ctx context.Context, slug string) ([]Opinion, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, nil
	}

	start := time.Now()
	var opinions []Opinion
	err := s.read(ctx).
		Where("entity_slug = ?", slug).
		Order("confidence DESC, last_updated DESC").
		Find(&opinions).Error
	s.metrics.RecordDBQuery("get_entity_opinions", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("get entity opinions: %w", err)
	}
	return opinions, nil
}
