package course

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
)

var (
	// errors
	ErrRawNotFound = errors.New("raw course record not found")
	ErrNotFound    = errors.New("course not found")
)

type (
	RawRepository interface {
		// FilterRawCourses returns every record matching (subject, level),
		// ordered by creation time. Ambiguity handling is the caller's concern.
		FilterRawCourses(ctx context.Context, subject, level string) ([]RawCourseRecord, error)
		CreateRawCourse(ctx context.Context, rec RawCourseRecord) (RawCourseRecord, error)
	}

	Repository interface {
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		CreateCourse(ctx context.Context, c Course) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
	}

	// RawCourseRecord is an externally sourced curriculum document; this
	// pipeline never mutates it.
	RawCourseRecord struct {
		ID        string
		Subject   string
		Level     string
		Data      json.RawMessage // embedded payload; object or JSON-encoded string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Course is the persisted course document seeded from a raw record.
	Course struct {
		ID        string // "course_" + normalized SQA code
		SQACode   string
		Subject   string
		Level     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// ProcessedCourse is in-memory only; built once per pipeline run and
	// discarded after use.
	ProcessedCourse struct {
		CourseID string
		SQACode  string
		Subject  string
		Level    string
		Data     CourseData
	}
)

// StructureType discriminates the two known curriculum schema variants.
type StructureType string

const (
	UnitBased   StructureType = "unit_based"
	SkillsBased StructureType = "skills_based"
)

type (
	CourseData struct {
		CourseCode    string `json:"course_code"`
		Qualification struct {
			CourseCode string `json:"course_code"`
			Title      string `json:"title"`
		} `json:"qualification"`
		CourseStructure *CourseStructure `json:"course_structure"`

		// legacy records carry units at the top level with no course_structure
		Units []Unit `json:"units"`
	}

	// CourseStructure is a tagged union: exactly one of the variant fields is
	// populated, selected by structure_type at decode time.
	CourseStructure struct {
		Type        StructureType
		UnitBased   *UnitBasedStructure
		SkillsBased *SkillsBasedStructure
	}

	UnitBasedStructure struct {
		Units []Unit `json:"units"`
	}

	Unit struct {
		Code        string        `json:"code"`
		Title       string        `json:"title"`
		SCQFCredits int           `json:"scqf_credits"`
		Outcomes    []OutcomeNode `json:"outcomes"`
	}

	OutcomeNode struct {
		ID                  string               `json:"id"`
		Title               string               `json:"title"`
		AssessmentStandards []AssessmentStandard `json:"assessment_standards"`
	}

	AssessmentStandard struct {
		Code            string   `json:"code"`
		Desc            string   `json:"desc"`
		MarkingGuidance string   `json:"marking_guidance,omitempty"`
		SkillsList      []string `json:"skills_list,omitempty"`
	}

	SkillsBasedStructure struct {
		SkillsFramework SkillsFramework `json:"skills_framework"`
		TopicAreas      []TopicArea     `json:"topic_areas"`
	}

	SkillsFramework struct {
		Skills []Skill `json:"skills"`
	}

	Skill struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Examples    []string `json:"examples"`
	}

	TopicArea struct {
		Title           string   `json:"title"`
		ContentPoints   []string `json:"content_points"`
		SkillsAssessed  []string `json:"skills_assessed"`
		MarkingGuidance string   `json:"marking_guidance"`
	}
)

func (cs *CourseStructure) UnmarshalJSON(b []byte) error {
	var probe struct {
		StructureType StructureType `json:"structure_type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	switch probe.StructureType {
	case SkillsBased:
		var v SkillsBasedStructure
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		cs.Type = SkillsBased
		cs.SkillsBased = &v
	default:
		// absent or unit_based; legacy records omit structure_type
		var v UnitBasedStructure
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		cs.Type = UnitBased
		cs.UnitBased = &v
	}
	return nil
}

// Structure resolves the schema variant of a course payload: an explicit
// course_structure wins, otherwise legacy top-level units are treated as a
// unit-based structure.
func (d CourseData) Structure() CourseStructure {
	if d.CourseStructure != nil {
		return *d.CourseStructure
	}
	return CourseStructure{Type: UnitBased, UnitBased: &UnitBasedStructure{Units: d.Units}}
}

// QualificationCode returns the SQA code wherever the payload carries it.
func (d CourseData) QualificationCode() string {
	if d.CourseCode != "" {
		return d.CourseCode
	}
	return d.Qualification.CourseCode
}

// ParseData decodes a raw record's embedded payload, which arrives either as
// a JSON object or as a JSON string wrapping one.
func ParseData(raw json.RawMessage) (CourseData, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return CourseData{}, errors.New("empty course payload")
	}
	if payload[0] == '"' {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return CourseData{}, errors.Wrap(err, "unquoting course payload")
		}
		payload = []byte(s)
	}
	var data CourseData
	if err := json.Unmarshal(payload, &data); err != nil {
		return CourseData{}, errors.Wrap(err, "decoding course payload")
	}
	return data, nil
}

// DumpShape renders a payload for structural-mismatch diagnostics.
func DumpShape(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}

// NewCourseID derives the course document id from an SQA qualification code.
func NewCourseID(sqaCode string) string {
	return "course_" + core.NormalizeSQACode(sqaCode)
}
