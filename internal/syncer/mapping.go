package syncer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Internal entity type names. Each doubles as the pull-schema table name.
const (
	TypeStaff         = "user_profile"
	TypeSite          = "site"
	TypeTerm          = "term"
	TypeGradingPeriod = "grading_period"
	TypeSection       = "section"
	TypeStudent       = "student"
	TypeEnrollment    = "enrollment"
	TypeGradebook     = "gradebook"
	TypeCategory      = "category"
	TypeAssignment    = "assignment"
	TypeScoreCache    = "score_cache"
)

// SourceKey is the source-system identifier field every mirror row carries.
const SourceKey = "source_object_id"

// EntitySpec describes how one entity type is reconciled: which source
// fields copy straight across, which are foreign keys in source-identifier
// space (handled only by the resolver, never copied raw), and which source
// fields rename on the way in. Bulk types are batch-inserted.
type EntitySpec struct {
	Type     string            `yaml:"type"`
	Fields   []string          `yaml:"fields"`
	FKFields []string          `yaml:"fk_fields"`
	Renames  map[string]string `yaml:"renames"`
	Bulk     bool              `yaml:"bulk"`
}

// CopyFields computes the candidate attribute map for one source row: the
// intersection of the spec's plain fields with the row's keys, order
// preserved over the spec's field list, plus any explicit renames. Foreign
// keys are excluded by construction. Pure function.
func CopyFields(spec EntitySpec, row map[string]any) map[string]any {
	attrs := make(map[string]any, len(spec.Fields)+len(spec.Renames))
	for _, f := range spec.Fields {
		if v, ok := row[f]; ok {
			attrs[f] = v
		}
	}
	for src, dst := range spec.Renames {
		if v, ok := row[src]; ok {
			attrs[dst] = v
		}
	}
	return attrs
}

// DefaultSpecs returns the built-in entity mapping table in stage order.
// The order is the dependency order of the pipeline: every type appears
// after the types its foreign keys reference.
func DefaultSpecs() []EntitySpec {
	return []EntitySpec{
		{
			Type:   TypeStaff,
			Fields: []string{"first_name", "last_name", "email"},
		},
		{
			Type:    TypeSite,
			Renames: map[string]string{"site_name": "name"},
		},
		{
			Type:     TypeTerm,
			Fields:   []string{"name", "start_date", "end_date"},
			FKFields: []string{"illuminate_site_id"},
		},
		{
			Type:     TypeGradingPeriod,
			Fields:   []string{"name", "start_date", "end_date"},
			FKFields: []string{"illuminate_term_id"},
		},
		{
			Type:     TypeSection,
			Fields:   []string{"name", "period", "course_name"},
			FKFields: []string{"illuminate_site_id", "illuminate_term_id", "illuminate_grading_period_id"},
			Bulk:     true,
		},
		{
			Type:   TypeStudent,
			Fields: []string{"first_name", "last_name", "student_number"},
		},
		{
			Type:     TypeEnrollment,
			FKFields: []string{"illuminate_section_id", "illuminate_student_id"},
		},
		{
			Type:     TypeGradebook,
			Fields:   []string{"name"},
			FKFields: []string{"illuminate_section_id", "illuminate_user_id"},
		},
		{
			Type:     TypeCategory,
			Fields:   []string{"name", "weight"},
			FKFields: []string{"illuminate_gradebook_id"},
		},
		{
			Type:     TypeAssignment,
			Fields:   []string{"name", "due_date", "points_possible"},
			FKFields: []string{"illuminate_gradebook_id", "illuminate_category_id"},
			Bulk:     true,
		},
		{
			Type:     TypeScoreCache,
			Fields:   []string{"is_missing", "missing_on", "points", "score"},
			FKFields: []string{"illuminate_gradebook_id", "illuminate_assignment_id", "illuminate_student_id"},
			Bulk:     true,
		},
	}
}

var knownTypes = map[string]bool{
	TypeStaff:         true,
	TypeSite:          true,
	TypeTerm:          true,
	TypeGradingPeriod: true,
	TypeSection:       true,
	TypeStudent:       true,
	TypeEnrollment:    true,
	TypeGradebook:     true,
	TypeCategory:      true,
	TypeAssignment:    true,
	TypeScoreCache:    true,
}

type specFile struct {
	Entities []EntitySpec `yaml:"entities"`
}

// LoadSpecs reads an entity mapping table from a YAML file. Entity order in
// the file is the stage order of the pipeline.
func LoadSpecs(path string) ([]EntitySpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping config: %w", err)
	}
	var f specFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse mapping config: %w", err)
	}
	if len(f.Entities) == 0 {
		return nil, fmt.Errorf("mapping config %s declares no entities", path)
	}
	for _, spec := range f.Entities {
		if !knownTypes[spec.Type] {
			return nil, fmt.Errorf("mapping config %s: unknown entity type %q", path, spec.Type)
		}
	}
	return f.Entities, nil
}
