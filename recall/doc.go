// Package recall answers queries against the memory store and turns the
// results into a budgeted context block for prompt injection.
//
// Six modes cover the common query shapes: Lexical runs a sanitized
// full-text search, Entity assembles summary + opinions + facts for one
// subject, Temporal and Day slice by time, Opinions lists beliefs about
// a subject, and Hybrid merges lexical hits with entities referenced in
// the query text (explicit @slug mentions or name substrings), dedupes
// them and ranks relevance-boosted hits ahead of recency-only ones.
//
// Every recall reports its wall-clock duration and a query id that also
// appears on the log lines and the OpenTelemetry span for the call.
// Known entity names used by hybrid extraction come from a short-TTL
// snapshot cache so a hybrid query does not scan the entity table every
// time.
//
// A disabled engine (Options.Enabled false) serves empty results with
// nil errors; callers treat memory as unavailable, never as broken.
package recall
