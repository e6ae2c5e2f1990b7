package outcome_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
	testutil "github.com/trezcool/mtaala/tests"
)

func TestExtract_unitBased(t *testing.T) {
	pc := testutil.ProcessCourse(t, "mathematics", "national_5", testutil.UnitBasedJSON)
	logger := testutil.NewLogger()

	recs, err := outcome.Extract(pc, logger)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Extract() returned %d records, want 3", len(recs))
	}

	first := recs[0]
	if first.CourseID != "course_c84775" || first.CourseSQACode != "C847 75" {
		t.Errorf("course fields = (%s, %s)", first.CourseID, first.CourseSQACode)
	}
	if first.UnitCode != "HV7Y 75" || first.UnitTitle != "Expressions and Formulae" {
		t.Errorf("unit fields = (%s, %s)", first.UnitCode, first.UnitTitle)
	}
	if !first.SCQFCredits.Valid || first.SCQFCredits.Int != 6 {
		t.Errorf("SCQFCredits = %+v, want 6", first.SCQFCredits)
	}
	if first.OutcomeID != "O1" || first.OutcomeTitle != "Working with surds" {
		t.Errorf("outcome fields = (%s, %s)", first.OutcomeID, first.OutcomeTitle)
	}

	wantGuidance := "**1.1**: Simplifying surds and rationalising denominators\n\n" +
		"Marking guidance: Award full marks for exact values.\n\n" +
		"Skills: Simplification, Rationalisation"
	if first.TeacherGuidance != wantGuidance {
		t.Errorf("TeacherGuidance = %q, want %q", first.TeacherGuidance, wantGuidance)
	}

	wantKeywords := []string{"working", "with", "surds", "simplifying", "rationalising"}
	if !reflect.DeepEqual(first.Keywords, wantKeywords) {
		t.Errorf("Keywords = %v, want %v", first.Keywords, wantKeywords)
	}

	// units without marking guidance render the bare standard paragraph
	second := recs[1]
	if second.TeacherGuidance != "**2.1**: Expanding products of binomial expressions" {
		t.Errorf("TeacherGuidance = %q", second.TeacherGuidance)
	}

	// third outcome comes from the second unit
	if recs[2].UnitCode != "HV7X 75" || recs[2].OutcomeID != "O3" {
		t.Errorf("third record = (%s, %s)", recs[2].UnitCode, recs[2].OutcomeID)
	}
}

func TestExtract_legacyUnits(t *testing.T) {
	pc := testutil.ProcessCourse(t, "applications_of_mathematics", "national_5", testutil.LegacyUnitsJSON)

	recs, err := outcome.Extract(pc, testutil.NewLogger())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Extract() returned %d records, want 1", len(recs))
	}
	if recs[0].CourseID != "course_c74775" {
		t.Errorf("CourseID = %v, want course_c74775", recs[0].CourseID)
	}
}

func TestExtract_skillsBased(t *testing.T) {
	pc := testutil.ProcessCourse(t, "applications_of_mathematics", "higher", testutil.SkillsBasedJSON)
	logger := testutil.NewLogger()

	recs, err := outcome.Extract(pc, logger)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	// 2 topics + 3 skills
	if len(recs) != 5 {
		t.Fatalf("Extract() returned %d records, want 5", len(recs))
	}

	var topics, skills []outcome.Outcome
	for _, rec := range recs {
		switch {
		case rec.IsTopic():
			topics = append(topics, rec)
		case rec.IsSkill():
			skills = append(skills, rec)
		default:
			t.Errorf("record %s is neither topic nor skill (unit code %s)", rec.OutcomeID, rec.UnitCode)
		}
	}
	if len(topics) != 2 || len(skills) != 3 {
		t.Fatalf("got %d topics and %d skills, want 2 and 3", len(topics), len(skills))
	}

	// topic records come first and carry minted ids
	if topics[0].OutcomeID != "T1" || topics[1].OutcomeID != "T2" {
		t.Errorf("topic ids = (%s, %s)", topics[0].OutcomeID, topics[1].OutcomeID)
	}
	if topics[0].UnitCode != "TOPIC_STATISTICS_AND_PROBABILITY" {
		t.Errorf("topic unit code = %v", topics[0].UnitCode)
	}
	if len(topics[0].AssessmentStandards) != 1 {
		t.Fatalf("topic standards = %d, want the synthetic one", len(topics[0].AssessmentStandards))
	}
	std := topics[0].AssessmentStandards[0]
	if std.Code != "STATISTICS_AND_PROBABILITY" || !reflect.DeepEqual(std.SkillsList, []string{"Data Analysis"}) {
		t.Errorf("synthetic standard = %+v", std)
	}
	if !strings.Contains(topics[0].TeacherGuidance, "- Correlation and causation") {
		t.Errorf("topic guidance = %q, want bulleted content points", topics[0].TeacherGuidance)
	}
	if !strings.Contains(topics[0].TeacherGuidance, "Marking guidance: Conclusions must reference the data.") {
		t.Errorf("topic guidance = %q, want marking guidance", topics[0].TeacherGuidance)
	}

	if skills[0].OutcomeID != "S1" || skills[0].UnitCode != "SKILL_DATA_ANALYSIS" {
		t.Errorf("skill record = (%s, %s)", skills[0].OutcomeID, skills[0].UnitCode)
	}
	if !strings.Contains(skills[0].TeacherGuidance, "Parent Topics: Statistics and Probability, Finance") {
		t.Errorf("skill guidance = %q, want parent topics", skills[0].TeacherGuidance)
	}
	if !strings.Contains(skills[0].TeacherGuidance, "Examples: Reading box plots; Comparing distributions") {
		t.Errorf("skill guidance = %q, want examples", skills[0].TeacherGuidance)
	}
	if skills[0].SCQFCredits.Valid {
		t.Error("skill record carries SCQF credits")
	}

	// "Estimation" is in the framework but assessed by no topic
	if !logger.HasLine("orphaned skill", "Estimation") {
		t.Errorf("expected orphaned-skill warning, got %v", logger.Lines)
	}
}

func TestExtract_skillsBasedCounts(t *testing.T) {
	s := &course.SkillsBasedStructure{}
	for i := 0; i < 40; i++ {
		s.SkillsFramework.Skills = append(s.SkillsFramework.Skills, course.Skill{
			Name:        fmt.Sprintf("Skill %d", i+1),
			Description: fmt.Sprintf("Description of skill %d", i+1),
		})
	}
	for i := 0; i < 6; i++ {
		topic := course.TopicArea{Title: fmt.Sprintf("Topic %d", i+1)}
		// spread every skill across the topics so none is orphaned
		for j := i; j < 40; j += 6 {
			topic.SkillsAssessed = append(topic.SkillsAssessed, fmt.Sprintf("Skill %d", j+1))
		}
		s.TopicAreas = append(s.TopicAreas, topic)
	}

	pc := course.ProcessedCourse{
		CourseID: "course_c84977",
		SQACode:  "C849 77",
		Data:     course.CourseData{CourseStructure: &course.CourseStructure{Type: course.SkillsBased, SkillsBased: s}},
	}
	logger := testutil.NewLogger()

	recs, err := outcome.Extract(pc, logger)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(recs) != 46 {
		t.Errorf("Extract() returned %d records, want 46 (6 topics + 40 skills)", len(recs))
	}
	if warns := logger.Warnings(); len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
}

func TestExtract_structureErrors(t *testing.T) {
	t.Run("no units", func(t *testing.T) {
		pc := course.ProcessedCourse{CourseID: "course_x", Data: course.CourseData{}}
		_, err := outcome.Extract(pc, testutil.NewLogger())
		if _, ok := err.(*core.StructureError); !ok {
			t.Errorf("Extract() error = %T(%v), want *core.StructureError", err, err)
		}
	})

	t.Run("empty skills framework", func(t *testing.T) {
		pc := course.ProcessedCourse{
			CourseID: "course_x",
			Data: course.CourseData{CourseStructure: &course.CourseStructure{
				Type:        course.SkillsBased,
				SkillsBased: &course.SkillsBasedStructure{},
			}},
		}
		_, err := outcome.Extract(pc, testutil.NewLogger())
		if _, ok := err.(*core.StructureError); !ok {
			t.Errorf("Extract() error = %T(%v), want *core.StructureError", err, err)
		}
	})
}

func TestValidateSkillsFramework(t *testing.T) {
	t.Run("missing referenced skill is fatal", func(t *testing.T) {
		s := &course.SkillsBasedStructure{
			SkillsFramework: course.SkillsFramework{Skills: []course.Skill{{Name: "Data Analysis"}}},
			TopicAreas: []course.TopicArea{
				{Title: "Finance", SkillsAssessed: []string{"Data Analysis", "Forecasting"}},
			},
		}
		err := outcome.ValidateSkillsFramework(s, testutil.NewLogger())
		iErr, ok := err.(*core.IntegrityError)
		if !ok {
			t.Fatalf("ValidateSkillsFramework() error = %T(%v), want *core.IntegrityError", err, err)
		}
		if len(iErr.IDs) != 1 || !strings.Contains(iErr.IDs[0], "Forecasting") {
			t.Errorf("IDs = %v, want the missing skill named", iErr.IDs)
		}
	})

	t.Run("orphaned skill only warns", func(t *testing.T) {
		s := &course.SkillsBasedStructure{
			SkillsFramework: course.SkillsFramework{Skills: []course.Skill{{Name: "Data Analysis"}, {Name: "Estimation"}}},
			TopicAreas: []course.TopicArea{
				{Title: "Finance", SkillsAssessed: []string{"Data Analysis"}},
			},
		}
		logger := testutil.NewLogger()
		if err := outcome.ValidateSkillsFramework(s, logger); err != nil {
			t.Fatalf("ValidateSkillsFramework() error = %v", err)
		}
		if !logger.HasLine("orphaned skill", "Estimation") {
			t.Errorf("expected warning, got %v", logger.Lines)
		}
	})
}
