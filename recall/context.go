package recall

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/pool"
)

// contextHeader opens every non-empty rendered context block.
const contextHeader = "Relevant memories:"

// BuildMemoryContext runs a hybrid recall for the query and renders the
// result as a single string ready for prompt injection. An empty recall
// renders to an empty string. Disabled engines return "" with no error.
func (e *Engine) BuildMemoryContext(ctx context.Context, query string, limit int) (string, error) {
	result, err := e.Hybrid(ctx, query, limit)
	if err != nil {
		return "", err
	}

	kept := trimToBudget(result.Items, e.budget)
	rendered := renderItems(kept)
	if rendered == "" {
		return "", nil
	}

	tokens := EstimateTokens(rendered)
	e.metrics.RecordContextBuild(len(rendered), tokens, len(kept))
	e.logger.Debug("memory context built",
		zap.String("query_id", result.QueryID),
		zap.Int("items", len(kept)),
		zap.Int("chars", len(rendered)),
		zap.Int("tokens", tokens))
	return rendered, nil
}

// RenderContext renders items under a character budget using the shared
// greedy trim. Exposed for callers that rank their own item lists.
func RenderContext(items []Item, budget int) string {
	return renderItems(trimToBudget(items, budget))
}

// trimToBudget keeps items in order while their cumulative content
// length stays inside the budget. The first item always survives, even
// if it alone is over budget; no further item is added once the budget
// is breached. Ranking happens before this trim, so only the tail is
// ever dropped.
func trimToBudget(items []Item, budget int) []Item {
	if budget <= 0 {
		return items
	}
	total := 0
	for i := range items {
		total += len(items[i].Content)
		if total > budget && i > 0 {
			return items[:i]
		}
	}
	return items
}

// renderItems produces the context block: a header line followed by one
// line per item. No items, no output; the header never stands alone.
// The scratch buffer is pooled; rendering runs once per agent turn.
func renderItems(items []Item) string {
	if len(items) == 0 {
		return ""
	}

	b := pool.Buffers.Get()
	defer pool.Buffers.Put(b)

	b.WriteString(contextHeader)
	for i := range items {
		b.WriteByte('\n')
		writeItem(b, &items[i])
	}
	return b.String()
}

// writeItem renders one line: a bracketed kind tag, the @entity list
// and confidence when present, then the content.
func writeItem(b *bytes.Buffer, item *Item) {
	b.WriteByte('[')
	b.WriteString(string(item.Kind))
	b.WriteByte(']')

	if len(item.Entities) > 0 {
		b.WriteString(" [")
		for i, slug := range item.Entities {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte('@')
			b.WriteString(slug)
		}
		b.WriteByte(']')
	}

	if item.Confidence != nil {
		fmt.Fprintf(b, " (%.2f)", *item.Confidence)
	}

	b.WriteByte(' ')
	b.WriteString(item.Content)
}
