package recall

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/memory"
)

func TestRenderContextEmpty(t *testing.T) {
	assert.Equal(t, "", RenderContext(nil, 4000))
	assert.Equal(t, "", RenderContext([]Item{}, 4000))
}

func TestRenderContextFormat(t *testing.T) {
	conf := 0.8
	items := []Item{
		{Kind: KindObservation, Content: "Andy is a night-shift developer.", Entities: []string{"andy"}},
		{Kind: KindOpinion, Content: "prefers quiet tools", Entities: []string{"andy"}, Confidence: &conf},
		{Kind: KindFact, Content: "Andy prefers dark mode", Entities: []string{"andy", "dark-mode"}},
		{Kind: KindFact, Content: "untagged plain fact"},
	}

	want := "Relevant memories:\n" +
		"[observation] [@andy] Andy is a night-shift developer.\n" +
		"[opinion] [@andy] (0.80) prefers quiet tools\n" +
		"[fact] [@andy @dark-mode] Andy prefers dark mode\n" +
		"[fact] untagged plain fact"
	assert.Equal(t, want, RenderContext(items, 4000))
}

func TestTrimToBudget(t *testing.T) {
	item := func(size int) Item {
		return Item{Kind: KindFact, Content: strings.Repeat("x", size)}
	}

	tests := []struct {
		name   string
		sizes  []int
		budget int
		keep   int
	}{
		{"all fit", []int{40, 40}, 100, 2},
		{"exact boundary kept", []int{50, 50}, 100, 2},
		{"tail dropped", []int{40, 40, 40}, 100, 2},
		{"first alone over budget", []int{120, 1}, 100, 1},
		{"second never added after breach", []int{100, 1, 1}, 99, 1},
		{"empty input", nil, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]Item, len(tt.sizes))
			for i, size := range tt.sizes {
				items[i] = item(size)
			}
			assert.Len(t, trimToBudget(items, tt.budget), tt.keep)
		})
	}

	// A non-positive budget disables trimming.
	assert.Len(t, trimToBudget([]Item{item(10), item(10)}, 0), 2)
}

func TestProperty_TrimBudgetMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		budget := rapid.IntRange(1, 200).Draw(rt, "budget")
		items := make([]Item, n)
		for i := range items {
			size := rapid.IntRange(0, 60).Draw(rt, "size")
			items[i] = Item{Kind: KindFact, Content: strings.Repeat("x", size)}
		}

		prev := 0
		for k := 0; k <= n; k++ {
			kept := trimToBudget(items[:k], budget)

			// Trimming only ever drops the tail.
			require.LessOrEqual(rt, len(kept), k)
			for i := range kept {
				require.Equal(rt, items[i].Content, kept[i].Content)
			}

			// Offering more items never keeps fewer.
			require.GreaterOrEqual(rt, len(kept), prev)
			prev = len(kept)

			// Multiple survivors always fit the budget; only a lone
			// first item may exceed it.
			if len(kept) > 1 {
				total := 0
				for i := range kept {
					total += len(kept[i].Content)
				}
				require.LessOrEqual(rt, total, budget)
			}
		}
	})
}

func TestBuildMemoryContext(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	rendered, err := e.BuildMemoryContext(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Equal(t, "", rendered, "empty recall renders no header")

	_, err = s.InsertFact(ctx, memory.FactInput{
		FactType: memory.FactExperience,
		Content:  "Andy prefers dark mode",
		Entities: []string{"andy"},
	})
	require.NoError(t, err)
	e.InvalidateEntities()

	rendered, err = e.BuildMemoryContext(ctx, "@andy dark mode", 10)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rendered, "Relevant memories:\n"))
	assert.Contains(t, rendered, "[fact] [@andy] Andy prefers dark mode")
}

func TestBuildMemoryContextBudget(t *testing.T) {
	opts := DefaultOptions()
	opts.ContextBudget = 30
	e, s := newTestEngineOpts(t, opts)
	ctx := context.Background()

	_, err := s.InsertFacts(ctx, []memory.FactInput{
		{FactType: memory.FactWorld, Content: "gopher sighting at the lake", Timestamp: 2000},
		{FactType: memory.FactWorld, Content: "gopher sighting in the garden", Timestamp: 1000},
	})
	require.NoError(t, err)

	rendered, err := e.BuildMemoryContext(ctx, "gopher sighting", 10)
	require.NoError(t, err)
	assert.Contains(t, rendered, "at the lake")
	assert.NotContains(t, rendered, "in the garden", "budget keeps only the top item")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))

	text := strings.Repeat("memory recall works ", 10)
	count := EstimateTokens(text)
	assert.Greater(t, count, 0)
	assert.GreaterOrEqual(t, count, EstimateTokens("memory"))
}
