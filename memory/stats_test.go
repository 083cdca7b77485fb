package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertFacts(ctx, []FactInput{
		{FactType: FactWorld, Content: "oldest memory", Timestamp: 1000, Entities: []string{"a"}},
		{FactType: FactWorld, Content: "newest memory", Timestamp: 9000, Entities: []string{"a", "b"}},
	})
	require.NoError(t, err)

	_, err = s.UpsertOpinion(ctx, OpinionInput{EntitySlug: "a", Statement: "is reliable", Confidence: 0.7})
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Facts)
	assert.Equal(t, int64(2), stats.Entities)
	assert.Equal(t, int64(1), stats.Opinions)
	assert.Equal(t, int64(1000), stats.OldestFact)
	assert.Equal(t, int64(9000), stats.NewestFact)
}

func TestStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Facts)
	assert.Equal(t, int64(0), stats.OldestFact)
	assert.Equal(t, int64(0), stats.NewestFact)
}

func TestHasData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hasData, err := s.HasData(ctx)
	require.NoError(t, err)
	assert.False(t, hasData)

	id, err := s.InsertFact(ctx, FactInput{FactType: FactWorld, Content: "something happened"})
	require.NoError(t, err)

	hasData, err = s.HasData(ctx)
	require.NoError(t, err)
	assert.True(t, hasData)

	require.NoError(t, s.DeleteFact(ctx, id))

	hasData, err = s.HasData(ctx)
	require.NoError(t, err)
	assert.False(t, hasData)
}
