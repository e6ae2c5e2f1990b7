package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
)

// Logger records every call so tests can assert on warnings and errors.
// Fatal panics instead of exiting; a test hitting it is a test failure.
type Logger struct {
	mu    sync.Mutex
	Lines []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, level+" "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.record("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.record("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.record("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.record("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { panic("Fatal: " + msg) }

// HasLine reports whether any recorded line contains all the given fragments.
func (l *Logger) HasLine(fragments ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.Lines {
		ok := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Warnings returns the recorded WARN lines.
func (l *Logger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var warns []string
	for _, line := range l.Lines {
		if strings.HasPrefix(line, "WARN") {
			warns = append(warns, line)
		}
	}
	return warns
}

// NoDelayPolicy is a write policy with zero pacing; retries still apply.
func NoDelayPolicy() core.WritePolicy {
	return core.WritePolicy{MaxAttempts: 5}
}

// UnitBasedJSON is a curriculum payload in the explicit unit-based schema:
// 2 units carrying 3 outcomes total.
const UnitBasedJSON = `{
	"course_code": "C847 75",
	"qualification": {"course_code": "C847 75", "title": "Mathematics National 5"},
	"course_structure": {
		"structure_type": "unit_based",
		"units": [
			{
				"code": "HV7Y 75", "title": "Expressions and Formulae", "scqf_credits": 6,
				"outcomes": [
					{
						"id": "O1", "title": "Working with surds",
						"assessment_standards": [
							{"code": "1.1", "desc": "Simplifying surds and rationalising denominators", "marking_guidance": "Award full marks for exact values.", "skills_list": ["Simplification", "Rationalisation"]}
						]
					},
					{
						"id": "O2", "title": "Expanding brackets",
						"assessment_standards": [
							{"code": "2.1", "desc": "Expanding products of binomial expressions"}
						]
					}
				]
			},
			{
				"code": "HV7X 75", "title": "Relationships", "scqf_credits": 6,
				"outcomes": [
					{
						"id": "O3", "title": "Solving equations graphically",
						"assessment_standards": [
							{"code": "3.1", "desc": "Determining intersections of straight lines and parabolas"}
						]
					}
				]
			}
		]
	}
}`

// LegacyUnitsJSON carries top-level units with no course_structure block and
// the qualification code only on the nested qualification object.
const LegacyUnitsJSON = `{
	"qualification": {"course_code": "C747 75", "title": "Applications of Mathematics"},
	"units": [
		{
			"code": "HV7W 75", "title": "Managing Finance and Statistics", "scqf_credits": 6,
			"outcomes": [
				{"id": "O1", "title": "Analysing a financial position", "assessment_standards": [{"code": "1.1", "desc": "Analysing income and expenditure over time"}]}
			]
		}
	]
}`

// SkillsBasedJSON is a skills-based payload: 2 topic areas, 3 skills, one of
// which ("Estimation") no topic assesses.
const SkillsBasedJSON = `{
	"course_code": "C849 77",
	"qualification": {"course_code": "C849 77", "title": "Applications of Mathematics Higher"},
	"course_structure": {
		"structure_type": "skills_based",
		"skills_framework": {
			"skills": [
				{"name": "Data Analysis", "description": "Interpreting datasets and drawing valid conclusions", "examples": ["Reading box plots", "Comparing distributions"]},
				{"name": "Financial Modelling", "description": "Building and interrogating spreadsheet models of financial scenarios"},
				{"name": "Estimation", "description": "Producing and justifying order-of-magnitude estimates"}
			]
		},
		"topic_areas": [
			{
				"title": "Statistics and Probability",
				"content_points": ["Correlation and causation", "Sampling methods"],
				"skills_assessed": ["Data Analysis"],
				"marking_guidance": "Conclusions must reference the data."
			},
			{
				"title": "Finance",
				"content_points": ["Loans and mortgages", "Income tax"],
				"skills_assessed": ["Data Analysis", "Financial Modelling"]
			}
		]
	}
}`

// ProcessCourse parses a payload the way the locator would and wraps it in a
// ProcessedCourse.
func ProcessCourse(t *testing.T, subject, level, payload string) course.ProcessedCourse {
	t.Helper()
	data, err := course.ParseData(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("ProcessCourse(): %v", err)
	}
	code := data.QualificationCode()
	return course.ProcessedCourse{
		CourseID: course.NewCourseID(code),
		SQACode:  code,
		Subject:  subject,
		Level:    level,
		Data:     data,
	}
}

// CreateRawCourse stores a raw curriculum record.
func CreateRawCourse(t *testing.T, repo course.RawRepository, subject, level, payload string) course.RawCourseRecord {
	t.Helper()
	now := time.Now().UTC()
	rec, err := repo.CreateRawCourse(context.Background(), course.RawCourseRecord{
		Subject:   subject,
		Level:     level,
		Data:      json.RawMessage(payload),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRawCourse(): %v", err)
	}
	return rec
}

// CreateCourseDoc persists the course document for a processed course.
func CreateCourseDoc(t *testing.T, repo course.Repository, pc course.ProcessedCourse) course.Course {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreateCourse(context.Background(), course.Course{
		ID:        pc.CourseID,
		SQACode:   pc.SQACode,
		Subject:   pc.Subject,
		Level:     pc.Level,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourseDoc(): %v", err)
	}
	return c
}

// QuoteJSON wraps a JSON document in a JSON string, the way some raw records
// arrive double-encoded.
func QuoteJSON(t *testing.T, payload string) string {
	t.Helper()
	quoted, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("QuoteJSON(): %v", err)
	}
	return string(quoted)
}

// SOWDocJSON renders a minimal authored scheme-of-work document for courseID
// with one entry per given outcome ref list.
func SOWDocJSON(courseID string, entryRefs ...[]string) string {
	var entries []string
	for i, refs := range entryRefs {
		quoted := make([]string, 0, len(refs))
		for _, ref := range refs {
			quoted = append(quoted, fmt.Sprintf("%q", ref))
		}
		entries = append(entries, fmt.Sprintf(
			`{"order": %d, "lessonTemplateRef": "AUTO_TBD_%d", "label": "Lesson %d", "outcomeRefs": [%s]}`,
			i+1, i+1, i+1, strings.Join(quoted, ", ")))
	}
	return fmt.Sprintf(
		`{"$id": "sow_%s", "courseId": %q, "version": "1.0", "status": "published", "metadata": {"author": "test"}, "entries": [%s]}`,
		courseID, courseID, strings.Join(entries, ", "))
}
