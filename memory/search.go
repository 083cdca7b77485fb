package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultSearchLimit caps full-text searches when the caller passes a
// non-positive limit.
const defaultSearchLimit = 20

// buildMatchQuery turns raw terms into an FTS5 MATCH expression. Each
// term is double-quoted so the query grammar treats it as a literal;
// unquoted input would let operators like NEAR or AND leak through.
// Space-joined quoted terms are an implicit AND.
func buildMatchQuery(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(strings.ReplaceAll(term, `"`, ""))
		if term == "" {
			continue
		}
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " ")
}

// SearchFacts runs a full-text search over fact content. All terms must
// match; results come back in relevance order (best first). Empty or
// punctuation-only input yields an empty result, not an error.
func (s *Store) SearchFacts(ctx context.Context, terms []string, limit int) ([]Fact, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	match := buildMatchQuery(terms)
	if match == "" {
		return nil, nil
	}

	start := time.Now()
	var facts []Fact
	err := s.read(ctx).Raw(`
		SELECT facts.* FROM facts
		JOIN fact_fts ON fact_fts.rowid = facts.id
		WHERE fact_fts MATCH ?
		ORDER BY fact_fts.rank
		LIMIT ?`, match, limit).
		Scan(&facts).Error
	s.metrics.RecordDBQuery("search_facts", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}

	if err := s.attachEntities(ctx, facts); err != nil {
		return nil, err
	}
	return facts, nil
}

// CheckIndex compares the fact table against the full-text index and
// reports whether the two agree row-for-row.
func (s *Store) CheckIndex(ctx context.Context) (*IndexStatus, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var factRows, indexRows int64
	if err := s.read(ctx).Model(&Fact{}).Count(&factRows).Error; err != nil {
		return nil, fmt.Errorf("count facts: %w", err)
	}
	// count(*) on an external-content FTS5 table scans the content table,
	// not the index; the docsize shadow table has one row per indexed
	// document and reflects what the index actually holds.
	if err := s.read(ctx).Raw("SELECT count(*) FROM fact_fts_docsize").Scan(&indexRows).Error; err != nil {
		return nil, fmt.Errorf("count index rows: %w", err)
	}

	status := &IndexStatus{
		FactRows:  factRows,
		IndexRows: indexRows,
		InSync:    factRows == indexRows,
	}
	s.metrics.SetIndexRows(factRows, indexRows)
	if !status.InSync {
		s.logger.Warn("full-text index out of sync",
			zap.Int64("fact_rows", factRows),
			zap.Int64("index_rows", indexRows))
	}
	return status, nil
}

// RebuildIndex drops and repopulates the full-text index from the fact
// table. Used to repair drift after a crash or manual edit; normal
// writes keep the index current through triggers.
func (s *Store) RebuildIndex(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}

	start := time.Now()
	err := s.read(ctx).Exec("INSERT INTO fact_fts(fact_fts) VALUES('rebuild')").Error
	s.metrics.RecordStoreWrite("rebuild_index", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("rebuild full-text index: %w", err)
	}

	s.metrics.RecordIndexRebuild()
	s.logger.Info("full-text index rebuilt", zap.Duration("took", time.Since(start)))
	return nil
}
