package memory

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrStoreClosed    = errors.New("store is closed")
	ErrInvalidInput   = errors.New("invalid input")
	ErrEntityNotFound = errors.New("entity not found")
)

// =============================================================================
// Fact Kinds and Provenance
// =============================================================================

// FactType classifies what a fact records.
type FactType string

const (
	// FactWorld is a statement about the world that holds independent of
	// any one session.
	FactWorld FactType = "world"
	// FactExperience is something that happened to or with the agent.
	FactExperience FactType = "experience"
	// FactOpinion is a judgment captured as a fact (the opinions table
	// holds the consolidated form).
	FactOpinion FactType = "opinion"
	// FactObservation is raw observed input not yet interpreted.
	FactObservation FactType = "observation"
)

// Valid reports whether t is one of the known fact types.
func (t FactType) Valid() bool {
	switch t {
	case FactWorld, FactExperience, FactOpinion, FactObservation:
		return true
	}
	return false
}

// SourceType records where a fact came from.
type SourceType string

const (
	SourceUser    SourceType = "user"
	SourceWeb     SourceType = "web"
	SourceSkill   SourceType = "skill"
	SourceTool    SourceType = "tool"
	SourceSystem  SourceType = "system"
	SourceUnknown SourceType = "unknown"
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceUser, SourceWeb, SourceSkill, SourceTool, SourceSystem, SourceUnknown:
		return true
	}
	return false
}

// DefaultTrustLevel returns the trust level assigned to a source when the
// producer does not set one explicitly. Direct user statements rank
// highest, unattributed web content lowest.
func DefaultTrustLevel(source SourceType) float64 {
	switch source {
	case SourceUser:
		return 1.0
	case SourceSystem:
		return 0.9
	case SourceTool:
		return 0.7
	case SourceSkill:
		return 0.6
	case SourceWeb:
		return 0.3
	default:
		return 0.5
	}
}

// =============================================================================
// Records
// =============================================================================

// Fact is one row of the event log.
type Fact struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	SessionID  string     `gorm:"size:128;not null;default:''" json:"session_id"`
	FactType   FactType   `gorm:"size:32;not null" json:"fact_type"`
	Content    string     `gorm:"not null" json:"content"`
	Timestamp  int64      `gorm:"not null;index" json:"timestamp"`
	SourceDay  string     `gorm:"size:10;not null;index" json:"source_day"`
	Confidence *float64   `json:"confidence,omitempty"`
	SourceType SourceType `gorm:"size:16;not null;default:unknown" json:"source_type"`
	TrustLevel float64    `gorm:"not null;default:0.5" json:"trust_level"`

	// Entities holds the linked entity slugs on reads. It is populated
	// from the link table, not a column.
	Entities []string `gorm:"-" json:"entities,omitempty"`
}

// TableName implements gorm schema.Tabler.
func (Fact) TableName() string { return "facts" }

// Entity is a stable subject facts attach to.
type Entity struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Slug        string `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	DisplayName string `gorm:"size:256;not null" json:"display_name"`
	Summary     string `gorm:"not null;default:''" json:"summary"`
	LastUpdated int64  `gorm:"not null;index" json:"last_updated"`
}

// TableName implements gorm schema.Tabler.
func (Entity) TableName() string { return "entities" }

// FactEntity links a fact to an entity.
type FactEntity struct {
	FactID   int64 `gorm:"primaryKey;autoIncrement:false" json:"fact_id"`
	EntityID int64 `gorm:"primaryKey;autoIncrement:false" json:"entity_id"`
}

// TableName implements gorm schema.Tabler.
func (FactEntity) TableName() string { return "fact_entities" }

// Opinion is a formed judgment about an entity. One opinion exists per
// (entity, statement) pair; repeated upserts revise it in place.
type Opinion struct {
	ID                   int64      `gorm:"primaryKey" json:"id"`
	EntitySlug           string     `gorm:"size:128;not null;uniqueIndex:idx_opinions_entity_statement" json:"entity_slug"`
	Statement            string     `gorm:"not null;uniqueIndex:idx_opinions_entity_statement" json:"statement"`
	Confidence           float64    `gorm:"not null;default:0.5" json:"confidence"`
	SupportingFactIDs    FactIDList `gorm:"type:text;not null;default:'[]'" json:"supporting_fact_ids"`
	ContradictingFactIDs FactIDList `gorm:"type:text;not null;default:'[]'" json:"contradicting_fact_ids"`
	LastUpdated          int64      `gorm:"not null" json:"last_updated"`
}

// TableName implements gorm schema.Tabler.
func (Opinion) TableName() string { return "opinions" }

// FactIDList stores fact id evidence as a JSON array in a TEXT column.
type FactIDList []int64

// Value implements driver.Valuer.
func (l FactIDList) Value() (driver.Value, error) {
	if l == nil {
		l = FactIDList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal fact id list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *FactIDList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = FactIDList{}
		return nil
	case string:
		if v == "" {
			*l = FactIDList{}
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	case []byte:
		if len(v) == 0 {
			*l = FactIDList{}
			return nil
		}
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("unsupported fact id list type %T", value)
	}
}

// =============================================================================
// Inputs and Views
// =============================================================================

// FactInput is the write shape for a fact.
type FactInput struct {
	SessionID string   `json:"session_id"`
	FactType  FactType `json:"fact_type"`
	Content   string   `json:"content"`

	// Timestamp is epoch milliseconds; zero means now.
	Timestamp int64 `json:"timestamp"`

	// SourceDay is a YYYY-MM-DD grouping key; empty derives it from
	// Timestamp in UTC.
	SourceDay string `json:"source_day"`

	Confidence *float64 `json:"confidence,omitempty"`

	// Entities lists entity slugs this fact references. Unknown entities
	// are created on the fly.
	Entities []string `json:"entities,omitempty"`

	// SourceType defaults to unknown when empty.
	SourceType SourceType `json:"source_type"`

	// TrustLevel overrides the source type's default when set.
	TrustLevel *float64 `json:"trust_level,omitempty"`
}

// OpinionInput is the write shape for an opinion upsert.
type OpinionInput struct {
	EntitySlug           string  `json:"entity_slug"`
	Statement            string  `json:"statement"`
	Confidence           float64 `json:"confidence"`
	SupportingFactIDs    []int64 `json:"supporting_fact_ids,omitempty"`
	ContradictingFactIDs []int64 `json:"contradicting_fact_ids,omitempty"`
}

// Stats summarizes the store's contents.
type Stats struct {
	Facts      int64 `json:"facts"`
	Entities   int64 `json:"entities"`
	Opinions   int64 `json:"opinions"`
	OldestFact int64 `json:"oldest_fact"`
	NewestFact int64 `json:"newest_fact"`
}

// IndexStatus reports full-text index consistency.
type IndexStatus struct {
	FactRows  int64 `json:"fact_rows"`
	IndexRows int64 `json:"index_rows"`
	InSync    bool  `json:"in_sync"`
}

// =============================================================================
// Helpers
// =============================================================================

// NormalizeSlug canonicalizes an entity slug. Lookups and writes both pass
// through here, so the same entity never splits on case or whitespace.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// DayOf formats an epoch-millisecond timestamp as a UTC YYYY-MM-DD day.
func DayOf(timestampMS int64) string {
	return time.UnixMilli(timestampMS).UTC().Format("2006-01-02")
}

// nowMilli returns the current time in epoch milliseconds.
func nowMilli() int64 {
	return time.Now().UnixMilli()
}
