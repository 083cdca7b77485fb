package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		want  string
	}{
		{"single term", []string{"dark"}, `"dark"`},
		{"two terms", []string{"dark", "mode"}, `"dark" "mode"`},
		{"embedded quotes stripped", []string{`da"rk`}, `"dark"`},
		{"whitespace trimmed", []string{"  dark  "}, `"dark"`},
		{"empty terms skipped", []string{"", "dark", "   "}, `"dark"`},
		{"nothing left", []string{"", `"`, "  "}, ""},
		{"nil input", nil, ""},
		{"operators quoted literal", []string{"NEAR", "AND"}, `"NEAR" "AND"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildMatchQuery(tt.terms))
		})
	}
}

func seedSearchFacts(t *testing.T, s *Store) []int64 {
	t.Helper()

	ids, err := s.InsertFacts(context.Background(), []FactInput{
		{FactType: FactExperience, Content: "Andy prefers dark mode in all applications", Timestamp: 3000, Entities: []string{"andy"}},
		{FactType: FactWorld, Content: "the sky is blue during the day", Timestamp: 2000},
		{FactType: FactWorld, Content: "dark chocolate pairs well with coffee", Timestamp: 1000},
	})
	require.NoError(t, err)
	return ids
}

func TestSearchFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seedSearchFacts(t, s)

	hits, err := s.SearchFacts(ctx, []string{"dark"}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	// Multiple terms must all match.
	hits, err = s.SearchFacts(ctx, []string{"dark", "mode"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ids[0], hits[0].ID)
	assert.Equal(t, []string{"andy"}, hits[0].Entities)

	// Matching is case-insensitive.
	hits, err = s.SearchFacts(ctx, []string{"ANDY"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	// Porter stemming folds inflections together.
	hits, err = s.SearchFacts(ctx, []string{"prefer"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = s.SearchFacts(ctx, []string{"nonexistent"}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchFactsEmptyQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSearchFacts(t, s)

	for _, terms := range [][]string{nil, {}, {""}, {"  "}, {`"`}} {
		hits, err := s.SearchFacts(ctx, terms, 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
	}
}

func TestSearchFactsOperatorsAreLiteral(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertFact(ctx, FactInput{
		FactType: FactWorld,
		Content:  "the AND operator short circuits",
	})
	require.NoError(t, err)

	// A bare AND would be a syntax error in the query grammar.
	hits, err := s.SearchFacts(ctx, []string{"AND"}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.SearchFacts(ctx, []string{"NEAR(a b)"}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchFactsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSearchFacts(t, s)

	hits, err := s.SearchFacts(ctx, []string{"dark"}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchFactsRelevanceOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.InsertFacts(ctx, []FactInput{
		{FactType: FactWorld, Content: "gopher gopher gopher everywhere"},
		{FactType: FactWorld, Content: "a single gopher appeared briefly among many other animals at the zoo yesterday afternoon"},
	})
	require.NoError(t, err)

	hits, err := s.SearchFacts(ctx, []string{"gopher"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, ids[0], hits[0].ID, "denser match ranks first")
}

func TestCheckIndexInSync(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSearchFacts(t, s)

	status, err := s.CheckIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.FactRows)
	assert.Equal(t, int64(3), status.IndexRows)
	assert.True(t, status.InSync)
}

func TestRebuildIndexRepairsDrift(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedSearchFacts(t, s)

	// Knock one row out of the index behind the triggers' back.
	_, err := s.manager.SQLDB().ExecContext(ctx,
		`INSERT INTO fact_fts(fact_fts, rowid, content)
		 SELECT 'delete', id, content FROM facts WHERE content LIKE 'dark chocolate%'`)
	require.NoError(t, err)

	status, err := s.CheckIndex(ctx)
	require.NoError(t, err)
	assert.False(t, status.InSync)
	assert.Equal(t, int64(3), status.FactRows)
	assert.Equal(t, int64(2), status.IndexRows)

	require.NoError(t, s.RebuildIndex(ctx))

	status, err = s.CheckIndex(ctx)
	require.NoError(t, err)
	assert.True(t, status.InSync)

	hits, err := s.SearchFacts(ctx, []string{"chocolate"}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestRebuildIndexEmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RebuildIndex(ctx))

	status, err := s.CheckIndex(ctx)
	require.NoError(t, err)
	assert.True(t, status.InSync)
	assert.Equal(t, int64(0), status.FactRows)
}

// TestProperty_IndexTracksWrites drives random insert/delete sequences
// and checks the index never diverges from the fact table: every live
// fact stays findable by its unique marker token, every deleted one
// disappears, and the row counts agree.
func TestProperty_IndexTracksWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	serial := 0

	rapid.Check(t, func(rt *rapid.T) {
		live := make(map[int64]string)
		var order []int64
		var dead []string

		steps := rapid.IntRange(1, 12).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if len(order) == 0 || rapid.Bool().Draw(rt, "insert") {
				serial++
				marker := fmt.Sprintf("marker%d", serial)
				id, err := s.InsertFact(ctx, FactInput{
					FactType:  FactWorld,
					Content:   "indexed under " + marker,
					Timestamp: int64(serial),
				})
				require.NoError(rt, err)
				live[id] = marker
				order = append(order, id)
			} else {
				idx := rapid.IntRange(0, len(order)-1).Draw(rt, "victim")
				id := order[idx]
				require.NoError(rt, s.DeleteFact(ctx, id))
				dead = append(dead, live[id])
				delete(live, id)
				order = append(order[:idx], order[idx+1:]...)
			}
		}

		for id, marker := range live {
			hits, err := s.SearchFacts(ctx, []string{marker}, 5)
			require.NoError(rt, err)
			require.Len(rt, hits, 1, "live fact must stay searchable")
			assert.Equal(rt, id, hits[0].ID)
		}
		for _, marker := range dead {
			hits, err := s.SearchFacts(ctx, []string{marker}, 5)
			require.NoError(rt, err)
			assert.Empty(rt, hits, "deleted fact must leave the index")
		}

		status, err := s.CheckIndex(ctx)
		require.NoError(rt, err)
		assert.True(rt, status.InSync)
	})
}
