package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertOpinionInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertOpinion(ctx, OpinionInput{
		EntitySlug:           "Andy",
		Statement:            "prefers dark mode",
		Confidence:           0.8,
		SupportingFactIDs:    []int64{1, 2},
		ContradictingFactIDs: []int64{3},
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	opinions, err := s.GetEntityOpinions(ctx, "andy")
	require.NoError(t, err)
	require.Len(t, opinions, 1)

	got := opinions[0]
	assert.Equal(t, "andy", got.EntitySlug)
	assert.Equal(t, "prefers dark mode", got.Statement)
	assert.Equal(t, 0.8, got.Confidence)
	assert.Equal(t, FactIDList{1, 2}, got.SupportingFactIDs)
	assert.Equal(t, FactIDList{3}, got.ContradictingFactIDs)
	assert.Greater(t, got.LastUpdated, int64(0))
}

func TestUpsertOpinionUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertOpinion(ctx, OpinionInput{
		EntitySlug:        "andy",
		Statement:         "prefers dark mode",
		Confidence:        0.6,
		SupportingFactIDs: []int64{1},
	})
	require.NoError(t, err)

	second, err := s.UpsertOpinion(ctx, OpinionInput{
		EntitySlug:           "ANDY ",
		Statement:            "prefers dark mode",
		Confidence:           0.9,
		SupportingFactIDs:    []int64{1, 4},
		ContradictingFactIDs: []int64{2},
	})
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-asserting a statement must hit the same row")

	opinions, err := s.GetEntityOpinions(ctx, "andy")
	require.NoError(t, err)
	require.Len(t, opinions, 1)
	assert.Equal(t, 0.9, opinions[0].Confidence)
	assert.Equal(t, FactIDList{1, 4}, opinions[0].SupportingFactIDs)
	assert.Equal(t, FactIDList{2}, opinions[0].ContradictingFactIDs)
}

func TestUpsertOpinionDistinctStatements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertOpinion(ctx, OpinionInput{EntitySlug: "andy", Statement: "likes go", Confidence: 0.7})
	require.NoError(t, err)
	_, err = s.UpsertOpinion(ctx, OpinionInput{EntitySlug: "andy", Statement: "dislikes meetings", Confidence: 0.4})
	require.NoError(t, err)

	opinions, err := s.GetEntityOpinions(ctx, "andy")
	require.NoError(t, err)
	assert.Len(t, opinions, 2)
}

func TestUpsertOpinionValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   OpinionInput
	}{
		{"empty slug", OpinionInput{Statement: "x", Confidence: 0.5}},
		{"empty statement", OpinionInput{EntitySlug: "andy", Confidence: 0.5}},
		{"whitespace statement", OpinionInput{EntitySlug: "andy", Statement: "  ", Confidence: 0.5}},
		{"confidence below zero", OpinionInput{EntitySlug: "andy", Statement: "x", Confidence: -0.2}},
		{"confidence above one", OpinionInput{EntitySlug: "andy", Statement: "x", Confidence: 1.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpsertOpinion(ctx, tt.in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUpsertOpinionEmptyEvidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertOpinion(ctx, OpinionInput{
		EntitySlug: "andy",
		Statement:  "holds opinions without receipts",
		Confidence: 0.3,
	})
	require.NoError(t, err)

	opinions, err := s.GetEntityOpinions(ctx, "andy")
	require.NoError(t, err)
	require.Len(t, opinions, 1)
	assert.Empty(t, opinions[0].SupportingFactIDs)
	assert.Empty(t, opinions[0].ContradictingFactIDs)
}

func TestUpsertOpinionDoesNotCreateEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertOpinion(ctx, OpinionInput{
		EntitySlug: "phantom",
		Statement:  "exists only as a belief",
		Confidence: 0.5,
	})
	require.NoError(t, err)

	// Entities materialize through fact references, not opinions.
	entity, err := s.GetEntity(ctx, "phantom")
	require.NoError(t, err)
	assert.Nil(t, entity)

	opinions, err := s.GetEntityOpinions(ctx, "phantom")
	require.NoError(t, err)
	assert.Len(t, opinions, 1)
}

func TestGetEntityOpinionsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertOpinion(ctx, OpinionInput{EntitySlug: "andy", Statement: "weak hunch", Confidence: 0.2})
	require.NoError(t, err)
	_, err = s.UpsertOpinion(ctx, OpinionInput{EntitySlug: "andy", Statement: "firm belief", Confidence: 0.9})
	require.NoError(t, err)
	_, err = s.UpsertOpinion(ctx, OpinionInput{EntitySlug: "andy", Statement: "older conviction", Confidence: 0.5})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = s.UpsertOpinion(ctx, OpinionInput{EntitySlug: "andy", Statement: "newer conviction", Confidence: 0.5})
	require.NoError(t, err)

	opinions, err := s.GetEntityOpinions(ctx, "andy")
	require.NoError(t, err)
	require.Len(t, opinions, 4)
	assert.Equal(t, "firm belief", opinions[0].Statement)
	assert.Equal(t, "newer conviction", opinions[1].Statement, "equal confidence breaks on recency")
	assert.Equal(t, "older conviction", opinions[2].Statement)
	assert.Equal(t, "weak hunch", opinions[3].Statement)

	opinions, err = s.GetEntityOpinions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, opinions)
}
