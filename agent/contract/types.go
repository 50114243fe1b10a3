package contract

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type EntityType string

const (
	EntityPerson  EntityType = "person"
	EntityCompany EntityType = "company"
	EntityOther   EntityType = "other"
)

// ParseEntityType maps free text onto a known entity type. Anything it
// cannot recognise resolves to EntityPerson.
func ParseEntityType(raw string) EntityType {
	switch EntityType(strings.ToLower(strings.TrimSpace(raw))) {
	case EntityCompany:
		return EntityCompany
	case EntityOther:
		return EntityOther
	default:
		return EntityPerson
	}
}

func (t EntityType) Valid() bool {
	switch t {
	case EntityPerson, EntityCompany, EntityOther:
		return true
	default:
		return false
	}
}

type AgentName string

const (
	AgentFactExtraction     AgentName = "fact_extraction"
	AgentMediaLookup        AgentName = "media_lookup"
	AgentContentAggregation AgentName = "content_aggregation"
	AgentSummarization      AgentName = "summarization"
	AgentClassifier         AgentName = "classifier"
)

type SourceInfo struct {
	Name       string     `json:"name"`
	URL        string     `json:"url,omitempty"`
	AccessedAt *time.Time `json:"accessed_at,omitempty"`
}

// DataPoint is a single researched value together with where it came from
// and how much the producing stage trusts it.
type DataPoint struct {
	Value      any          `json:"value"`
	Sources    []SourceInfo `json:"sources,omitempty"`
	Confidence float64      `json:"confidence"`
}

func NewDataPoint(value any, confidence float64, sources ...SourceInfo) DataPoint {
	dp := DataPoint{
		Value:      value,
		Confidence: ClampConfidence(confidence),
	}
	for _, src := range sources {
		dp.AddSource(src)
	}
	return dp
}

// AddSource appends src unless a source with the same name is already
// present. Empty names are ignored.
func (d *DataPoint) AddSource(src SourceInfo) bool {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		return false
	}
	for _, existing := range d.Sources {
		if strings.EqualFold(existing.Name, name) {
			return false
		}
	}
	src.Name = name
	d.Sources = append(d.Sources, src)
	return true
}

func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// Section is one additive-only bucket of the pipeline context.
type Section map[string]DataPoint

// Add stores dp under key unless the key is already taken.
func (s Section) Add(key string, dp DataPoint) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if _, exists := s[key]; exists {
		return false
	}
	dp.Confidence = ClampConfidence(dp.Confidence)
	s[key] = dp
	return true
}

type Stage string

const (
	StageFacts   Stage = "facts"
	StageMedia   Stage = "media"
	StageContent Stage = "content"
	StageSummary Stage = "summary"
)

// PipelineContext accumulates what each stage learns about one query.
// Stages only ever add keys; nothing written earlier is replaced.
type PipelineContext struct {
	EntityType EntityType `json:"entity_type"`
	Query      string     `json:"query"`
	Facts      Section    `json:"facts"`
	Media      Section    `json:"media"`
	Content    Section    `json:"content"`
	Summary    Section    `json:"summary"`
}

func NewPipelineContext(query string, entityType EntityType) *PipelineContext {
	return &PipelineContext{
		EntityType: entityType,
		Query:      strings.TrimSpace(query),
		Facts:      Section{},
		Media:      Section{},
		Content:    Section{},
		Summary:    Section{},
	}
}

func (c *PipelineContext) section(stage Stage) (Section, error) {
	switch stage {
	case StageFacts:
		return c.Facts, nil
	case StageMedia:
		return c.Media, nil
	case StageContent:
		return c.Content, nil
	case StageSummary:
		return c.Summary, nil
	default:
		return nil, fmt.Errorf("%w: unknown stage=%q", ErrValidation, stage)
	}
}

// Merge adds items into the section owned by stage and returns the keys
// that were rejected because an earlier write already holds them.
func (c *PipelineContext) Merge(stage Stage, items map[string]DataPoint) ([]string, error) {
	sec, err := c.section(stage)
	if err != nil {
		return nil, err
	}
	var rejected []string
	for key, dp := range items {
		if !sec.Add(key, dp) {
			rejected = append(rejected, key)
		}
	}
	return rejected, nil
}

func (c *PipelineContext) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: pipeline context is nil", ErrValidation)
	}
	if strings.TrimSpace(c.Query) == "" {
		return ErrInvalidQuery
	}
	if !c.EntityType.Valid() {
		return fmt.Errorf("%w: invalid entity_type=%q", ErrValidation, c.EntityType)
	}
	for _, sec := range []struct {
		name  Stage
		items Section
	}{
		{StageFacts, c.Facts},
		{StageMedia, c.Media},
		{StageContent, c.Content},
		{StageSummary, c.Summary},
	} {
		if sec.items == nil {
			return fmt.Errorf("%w: section %s is nil", ErrValidation, sec.name)
		}
		for key, dp := range sec.items {
			if dp.Confidence < 0 || dp.Confidence > 1 {
				return fmt.Errorf("%w: %s.%s confidence=%v out of range", ErrValidation, sec.name, key, dp.Confidence)
			}
		}
	}
	return nil
}

// AgentResult is what every agent hands back to the orchestrator. A non-empty
// Error means the stage failed and Items should be ignored.
type AgentResult struct {
	Items          map[string]DataPoint `json:"items,omitempty"`
	Error          string               `json:"error,omitempty"`
	ProcessingTime float64              `json:"processing_time"`
}

func (r AgentResult) Failed() bool {
	return strings.TrimSpace(r.Error) != ""
}

func ErrorResult(format string, args ...any) AgentResult {
	return AgentResult{Error: fmt.Sprintf(format, args...)}
}
