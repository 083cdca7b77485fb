package recall

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/cache"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/ctxkeys"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/internal/metrics"
	"github.com/andysheldon-creator/OpenClaw-Optimised-sub003/memory"
)

const instrumentationName = "openclaw/recall"

// Defaults applied by NewEngine when the corresponding option is unset.
const (
	DefaultContextBudget         = 4000
	DefaultHybridEntityFactLimit = 10
	DefaultEntityCacheTTL        = time.Minute
)

// defaultRecallLimit caps recalls when the caller passes no limit.
const defaultRecallLimit = 20

// Mode identifies a recall strategy.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeEntity   Mode = "entity"
	ModeTemporal Mode = "temporal"
	ModeDay      Mode = "day"
	ModeOpinion  Mode = "opinion"
	ModeHybrid   Mode = "hybrid"
)

// ItemKind classifies a recalled item.
type ItemKind string

const (
	KindFact        ItemKind = "fact"
	KindOpinion     ItemKind = "opinion"
	KindObservation ItemKind = "observation"
)

// Item is one recalled memory, normalized across facts, opinions and
// entity summaries.
type Item struct {
	Kind       ItemKind `json:"kind"`
	Content    string   `json:"content"`
	Entities   []string `json:"entities,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Timestamp  int64    `json:"timestamp"`
	FactID     int64    `json:"fact_id,omitempty"`

	// sortKey orders merged result sets; lexical hits carry a boost
	// on top of their timestamp.
	sortKey int64
}

// Result is the outcome of one recall call.
type Result struct {
	Mode    Mode          `json:"mode"`
	Query   string        `json:"query"`
	Items   []Item        `json:"items"`
	Elapsed time.Duration `json:"elapsed"`
	QueryID string        `json:"query_id"`
}

// Options configures an Engine. The zero value disables recall; use
// DefaultOptions as the base and override what differs.
type Options struct {
	Logger    *zap.Logger
	Collector *metrics.Collector

	// Enabled gates the whole read path. A disabled engine answers
	// every recall with an empty result and a nil error.
	Enabled bool

	// EntityCacheTTL bounds how stale the known-entity snapshot used
	// by hybrid extraction may get.
	EntityCacheTTL time.Duration

	// ContextBudget is the character budget for rendered context.
	ContextBudget int

	// HybridEntityFactLimit caps facts pulled per matched entity in
	// hybrid mode.
	HybridEntityFactLimit int

	// Clock overrides wall-clock time in tests.
	Clock func() time.Time
}

// DefaultOptions returns an enabled engine configuration with the
// default budget, sub-limit and cache TTL.
func DefaultOptions() Options {
	return Options{
		Enabled:               true,
		EntityCacheTTL:        DefaultEntityCacheTTL,
		ContextBudget:         DefaultContextBudget,
		HybridEntityFactLimit: DefaultHybridEntityFactLimit,
	}
}

// Engine executes recall queries against a store. Safe for concurrent
// use.
type Engine struct {
	store    *memory.Store
	logger   *zap.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	enabled  bool
	budget   int
	subLimit int
	clock    func() time.Time
	entities *cache.Snapshot[[]memory.Entity]
}

// NewEngine builds an engine on top of an open store.
func NewEngine(store *memory.Store, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "recall"))

	if opts.EntityCacheTTL <= 0 {
		opts.EntityCacheTTL = DefaultEntityCacheTTL
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultContextBudget
	}
	if opts.HybridEntityFactLimit <= 0 {
		opts.HybridEntityFactLimit = DefaultHybridEntityFactLimit
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		store:    store,
		logger:   logger,
		metrics:  opts.Collector,
		tracer:   otel.Tracer(instrumentationName),
		enabled:  opts.Enabled,
		budget:   opts.ContextBudget,
		subLimit: opts.HybridEntityFactLimit,
		clock:    clock,
	}
	e.entities = cache.NewSnapshot(cache.Config{
		Name: "entities",
		TTL:  opts.EntityCacheTTL,
		Now:  clock,
	}, func(ctx context.Context) ([]memory.Entity, error) {
		return store.GetAllEntities(ctx)
	}, logger, opts.Collector)

	return e
}

// Enabled reports whether the read path is switched on.
func (e *Engine) Enabled() bool {
	return e.enabled
}

// InvalidateEntities drops the known-entity snapshot so the next hybrid
// query sees fresh names. Useful right after a burst of writes.
func (e *Engine) InvalidateEntities() {
	e.entities.Invalidate()
}

// run wraps a recall with the shared plumbing: the enablement gate,
// query id, span, elapsed measurement, metrics and logging. A query id
// already on the context wins over a freshly minted one, so callers can
// correlate engine logs with their own.
func (e *Engine) run(ctx context.Context, mode Mode, query string, fn func(context.Context) ([]Item, error)) (*Result, error) {
	queryID, ok := ctxkeys.QueryID(ctx)
	if !ok {
		queryID = uuid.NewString()
	}
	result := &Result{Mode: mode, Query: query, QueryID: queryID}
	if !e.enabled {
		return result, nil
	}

	ctx, span := e.tracer.Start(ctx, "recall."+string(mode),
		trace.WithAttributes(
			attribute.String("recall.mode", string(mode)),
			attribute.String("recall.query_id", result.QueryID),
		))
	defer span.End()

	start := e.clock()
	items, err := fn(ctx)
	result.Elapsed = e.clock().Sub(start)
	result.Items = items

	e.metrics.RecordRecall(string(mode), err, result.Elapsed, len(items))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("recall failed",
			zap.String("mode", string(mode)),
			zap.String("query_id", result.QueryID),
			zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("recall.items", len(items)))
	e.logger.Debug("recall served",
		zap.String("mode", string(mode)),
		zap.String("query_id", result.QueryID),
		zap.Int("items", len(items)),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

// Lexical searches fact content for the words in query. The query is
// reduced to alphanumeric tokens first; a query with no tokens left
// yields an empty result rather than matching everything.
func (e *Engine) Lexical(ctx context.Context, query string, limit int) (*Result, error) {
	return e.run(ctx, ModeLexical, query, func(ctx context.Context) ([]Item, error) {
		tokens := tokenize(query)
		if len(tokens) == 0 {
			return nil, nil
		}
		facts, err := e.store.SearchFacts(ctx, tokens, limit)
		if err != nil {
			return nil, err
		}
		return factItems(facts), nil
	})
}

// Entity recalls everything known about one subject: the summary as an
// observation item when present, then opinions by conviction, then up
// to limit linked facts by recency. Unknown slugs yield empty results.
func (e *Engine) Entity(ctx context.Context, slug string, limit int) (*Result, error) {
	return e.run(ctx, ModeEntity, slug, func(ctx context.Context) ([]Item, error) {
		return e.entityItems(ctx, slug, limit)
	})
}

// Temporal recalls facts inside the inclusive [startMS, endMS] window,
// newest first.
func (e *Engine) Temporal(ctx context.Context, startMS, endMS int64, limit int) (*Result, error) {
	query := fmt.Sprintf("%d..%d", startMS, endMS)
	return e.run(ctx, ModeTemporal, query, func(ctx context.Context) ([]Item, error) {
		facts, err := e.store.GetFactsByTimeRange(ctx, startMS, endMS, limit)
		if err != nil {
			return nil, err
		}
		return factItems(facts), nil
	})
}

// Day recalls the facts recorded on one calendar day (YYYY-MM-DD, UTC),
// newest first.
func (e *Engine) Day(ctx context.Context, day string, limit int) (*Result, error) {
	return e.run(ctx, ModeDay, day, func(ctx context.Context) ([]Item, error) {
		facts, err := e.store.GetFactsByDay(ctx, day, limit)
		if err != nil {
			return nil, err
		}
		return factItems(facts), nil
	})
}

// Opinions recalls every opinion held about a subject, strongest
// conviction first.
func (e *Engine) Opinions(ctx context.Context, slug string) (*Result, error) {
	return e.run(ctx, ModeOpinion, slug, func(ctx context.Context) ([]Item, error) {
		opinions, err := e.store.GetEntityOpinions(ctx, slug)
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(opinions))
		for i := range opinions {
			items = append(items, opinionItem(&opinions[i]))
		}
		return items, nil
	})
}

// entityItems assembles the summary/opinions/facts view of one entity.
// Shared between entity recall and the hybrid entity path.
func (e *Engine) entityItems(ctx context.Context, slug string, factLimit int) ([]Item, error) {
	entity, err := e.store.GetEntity(ctx, slug)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	var items []Item
	if entity.Summary != "" {
		items = append(items, Item{
			Kind:      KindObservation,
			Content:   entity.Summary,
			Entities:  []string{entity.Slug},
			Timestamp: entity.LastUpdated,
			sortKey:   entity.LastUpdated,
		})
	}

	opinions, err := e.store.GetEntityOpinions(ctx, entity.Slug)
	if err != nil {
		return nil, err
	}
	for i := range opinions {
		items = append(items, opinionItem(&opinions[i]))
	}

	facts, err := e.store.GetEntityFacts(ctx, entity.Slug, factLimit)
	if err != nil {
		return nil, err
	}
	return append(items, factItems(facts)...), nil
}

func factItems(facts []memory.Fact) []Item {
	items := make([]Item, 0, len(facts))
	for i := range facts {
		items = append(items, factItem(&facts[i]))
	}
	return items
}

func factItem(f *memory.Fact) Item {
	return Item{
		Kind:       KindFact,
		Content:    f.Content,
		Entities:   f.Entities,
		Confidence: f.Confidence,
		Timestamp:  f.Timestamp,
		FactID:     f.ID,
		sortKey:    f.Timestamp,
	}
}

func opinionItem(o *memory.Opinion) Item {
	conf := o.Confidence
	return Item{
		Kind:       KindOpinion,
		Content:    o.Statement,
		Entities:   []string{o.EntitySlug},
		Confidence: &conf,
		Timestamp:  o.LastUpdated,
		sortKey:    o.LastUpdated,
	}
}

// tokenize reduces a free-text query to its alphanumeric words.
// Everything else becomes a separator, which doubles as operator
// stripping for the search index.
func tokenize(query string) []string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
