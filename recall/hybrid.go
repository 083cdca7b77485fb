package recall

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexicalBoost is added to the sort key of relevance-ranked hits so
// they sort ahead of purely recency-ranked ones. Any value comfortably
// above a real epoch-ms timestamp works.
const lexicalBoost = int64(1) << 62

// minSubstringRunes is the shortest entity name matched by substring.
// Shorter names only match through an explicit @mention, otherwise a
// two-letter slug like "go" would fire on nearly every query.
const minSubstringRunes = 3

// dedupePrefixRunes is the content-prefix length used as the dedup key
// in hybrid mode.
const dedupePrefixRunes = 100

// Hybrid merges lexical search hits with the memories of every entity
// the query references, dedupes them by content prefix and ranks
// relevance-boosted hits ahead of recency-only ones. The result is
// truncated to limit and then trimmed to the context budget.
func (e *Engine) Hybrid(ctx context.Context, query string, limit int) (*Result, error) {
	return e.run(ctx, ModeHybrid, query, func(ctx context.Context) ([]Item, error) {
		if limit <= 0 {
			limit = defaultRecallLimit
		}

		var items []Item
		tokens := tokenize(query)
		if len(tokens) > 0 {
			facts, err := e.store.SearchFacts(ctx, tokens, limit)
			if err != nil {
				return nil, err
			}
			for i := range facts {
				item := factItem(&facts[i])
				item.sortKey += lexicalBoost
				items = append(items, item)
			}
		}

		slugs, err := e.matchEntities(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, slug := range slugs {
			sub, err := e.entityItems(ctx, slug, e.subLimit)
			if err != nil {
				return nil, err
			}
			items = append(items, sub...)
		}

		// Lexical items come first, so on a prefix collision the
		// boosted copy is the survivor.
		items = dedupeItems(items)

		sort.SliceStable(items, func(i, j int) bool {
			if items[i].sortKey != items[j].sortKey {
				return items[i].sortKey > items[j].sortKey
			}
			return items[i].Timestamp > items[j].Timestamp
		})

		if len(items) > limit {
			items = items[:limit]
		}
		return trimToBudget(items, e.budget), nil
	})
}

// matchEntities resolves entity references in a query: explicit @slug
// mentions validated against known slugs, plus substring matches of any
// known slug or display name in the lowercased query text. Known names
// come from the TTL snapshot, not a table scan.
func (e *Engine) matchEntities(ctx context.Context, query string) ([]string, error) {
	known, err := e.entities.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(known) == 0 {
		return nil, nil
	}

	lowered := strings.ToLower(query)
	mentioned := mentionSlugs(query)

	var slugs []string
	seen := make(map[string]struct{})
	add := func(slug string) {
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}

	for i := range known {
		slug := known[i].Slug
		if _, ok := mentioned[slug]; ok {
			add(slug)
			continue
		}
		if utf8.RuneCountInString(slug) >= minSubstringRunes && strings.Contains(lowered, slug) {
			add(slug)
			continue
		}
		name := strings.ToLower(known[i].DisplayName)
		if utf8.RuneCountInString(name) >= minSubstringRunes && strings.Contains(lowered, name) {
			add(slug)
		}
	}
	return slugs, nil
}

// mentionSlugs extracts @slug tokens from the raw query, stripping any
// trailing punctuation ("@andy?" mentions andy).
func mentionSlugs(query string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, field := range strings.Fields(query) {
		if !strings.HasPrefix(field, "@") || len(field) < 2 {
			continue
		}
		slug := strings.TrimFunc(field[1:], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		slug = strings.ToLower(slug)
		if slug != "" {
			out[slug] = struct{}{}
		}
	}
	return out
}

// dedupeItems drops later items whose content shares a prefix with an
// earlier one, so a fact reached both lexically and through an entity
// appears once.
func dedupeItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := dedupeKey(item.Content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func dedupeKey(content string) string {
	if utf8.RuneCountInString(content) <= dedupePrefixRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:dedupePrefixRunes])
}
