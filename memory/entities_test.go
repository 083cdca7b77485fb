package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGetOrCreateEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.GetOrCreateEntity(ctx, "Andy", "Andy")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "andy", created.Slug)
	assert.Equal(t, "Andy", created.DisplayName)
	assert.Greater(t, created.LastUpdated, int64(0))

	again, err := s.GetOrCreateEntity(ctx, "ANDY", "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.GreaterOrEqual(t, again.LastUpdated, created.LastUpdated)
}

func TestGetOrCreateEntityEmptySlug(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetOrCreateEntity(context.Background(), "   ", "x")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetOrCreateEntityDefaultDisplayName(t *testing.T) {
	s := newTestStore(t)

	entity, err := s.GetOrCreateEntity(context.Background(), "dark-mode", "")
	require.NoError(t, err)
	assert.Equal(t, "dark-mode", entity.DisplayName)
}

func TestDisplayNameOnlyWidens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateEntity(ctx, "andy", "Andy")
	require.NoError(t, err)

	widened, err := s.GetOrCreateEntity(ctx, "andy", "Andy Sheldon")
	require.NoError(t, err)
	assert.Equal(t, "Andy Sheldon", widened.DisplayName)

	kept, err := s.GetOrCreateEntity(ctx, "andy", "A")
	require.NoError(t, err)
	assert.Equal(t, "Andy Sheldon", kept.DisplayName)

	entity, err := s.GetEntity(ctx, "andy")
	require.NoError(t, err)
	assert.Equal(t, "Andy Sheldon", entity.DisplayName)
}

func TestGetEntityMissing(t *testing.T) {
	s := newTestStore(t)

	entity, err := s.GetEntity(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, entity)

	entity, err = s.GetEntity(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestGetAllEntitiesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateEntity(ctx, "oldest", "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = s.GetOrCreateEntity(ctx, "middle", "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = s.GetOrCreateEntity(ctx, "newest", "")
	require.NoError(t, err)

	// Touching an entity moves it to the front.
	time.Sleep(5 * time.Millisecond)
	_, err = s.GetOrCreateEntity(ctx, "oldest", "")
	require.NoError(t, err)

	entities, err := s.GetAllEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "oldest", entities[0].Slug)
	assert.Equal(t, "newest", entities[1].Slug)
	assert.Equal(t, "middle", entities[2].Slug)
}

func TestUpdateEntitySummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.GetOrCreateEntity(ctx, "andy", "Andy")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.UpdateEntitySummary(ctx, "Andy", "Maintains several open source projects."))

	entity, err := s.GetEntity(ctx, "andy")
	require.NoError(t, err)
	assert.Equal(t, "Maintains several open source projects.", entity.Summary)
	assert.Greater(t, entity.LastUpdated, created.LastUpdated)

	err = s.UpdateEntitySummary(ctx, "nobody", "irrelevant")
	require.ErrorIs(t, err, ErrEntityNotFound)

	err = s.UpdateEntitySummary(ctx, " ", "irrelevant")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetEntityFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertFacts(ctx, []FactInput{
		{FactType: FactExperience, Content: "andy fixed the build", Timestamp: 1000, Entities: []string{"andy"}},
		{FactType: FactExperience, Content: "andy broke the build", Timestamp: 2000, Entities: []string{"andy", "ci"}},
		{FactType: FactWorld, Content: "unrelated weather report", Timestamp: 3000},
	})
	require.NoError(t, err)

	facts, err := s.GetEntityFacts(ctx, "ANDY", 0)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "andy broke the build", facts[0].Content)
	assert.Equal(t, "andy fixed the build", facts[1].Content)
	assert.Equal(t, []string{"andy", "ci"}, facts[0].Entities)

	facts, err = s.GetEntityFacts(ctx, "andy", 1)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "andy broke the build", facts[0].Content)

	facts, err = s.GetEntityFacts(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestFactInsertCreatesEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertFact(ctx, FactInput{
		FactType: FactWorld,
		Content:  "the team adopted trunk based development",
		Entities: []string{"Team", "trunk-based-development"},
	})
	require.NoError(t, err)

	entity, err := s.GetEntity(ctx, "team")
	require.NoError(t, err)
	require.NotNil(t, entity)

	entity, err = s.GetEntity(ctx, "trunk-based-development")
	require.NoError(t, err)
	require.NotNil(t, entity)
}

func TestDuplicateEntityLinkIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertFact(ctx, FactInput{
		FactType: FactWorld,
		Content:  "mentioned twice in one breath",
		Entities: []string{"echo", "Echo", " ECHO "},
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	facts, err := s.GetEntityFacts(ctx, "echo", 0)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, []string{"echo"}, facts[0].Entities)
}

// TestProperty_DisplayNameWidensMonotonically replays random rename
// sequences against one entity and checks the stored display name is
// always the longest rendering seen so far, never a later shorter one.
func TestProperty_DisplayNameWidensMonotonically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	serial := 0

	rapid.Check(t, func(rt *rapid.T) {
		serial++
		slug := fmt.Sprintf("person%d", serial)
		names := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z ]{0,16}`), 1, 10).Draw(rt, "names")

		var want string
		for i, name := range names {
			ent, err := s.GetOrCreateEntity(ctx, slug, name)
			require.NoError(rt, err)
			require.NotNil(rt, ent)
			assert.Equal(rt, slug, ent.Slug)

			effective := name
			if effective == "" {
				effective = slug
			}
			if i == 0 || len(effective) > len(want) {
				want = effective
			}
			assert.Equal(rt, want, ent.DisplayName)
		}

		stored, err := s.GetEntity(ctx, slug)
		require.NoError(rt, err)
		require.NotNil(rt, stored)
		assert.Equal(rt, want, stored.DisplayName)
	})
}
