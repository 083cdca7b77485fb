/*
Package memory implements the tiered long-term memory store.

# Overview

The store keeps four kinds of records in a single SQLite file: facts (the
append-mostly event log), entities (stable subjects facts attach to),
fact-entity links, and opinions (formed judgments about entities). An FTS5
index over fact content powers lexical search; triggers keep it in lockstep
with the facts table.

Facts carry provenance: a source type (user, web, skill, tool, system,
unknown) and a trust level in [0, 1]. When the producer does not set an
explicit trust level, the source type's default applies. Trust is recall
ranking input, never a write gate; the store accepts whatever the extraction
pipeline hands it.

# Usage

	store, err := memory.Open(memory.Config{Path: "/var/lib/openclaw/memory.db"}, logger, collector)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.InsertFact(ctx, memory.FactInput{
		FactType: memory.FactWorld,
		Content:  "Andy prefers dark mode",
		Entities: []string{"andy"},
	})

Writes run inside transactions on a single-writer connection; batch inserts
are all-or-nothing. Reads never fail on missing data: absent rows come back
as nil or empty slices.
*/
package memory
