package outcome

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtaala/core/course"
)

var ErrNotFound = errors.New("outcome not found")

// Unit-code prefixes minted for skills-based courses.
const (
	TopicPrefix = "TOPIC_"
	SkillPrefix = "SKILL_"
)

type (
	Repository interface {
		// AnyOutcomeExists is a single existence probe for a course; the
		// writer skips or wipes whole batches, never per-record.
		AnyOutcomeExists(ctx context.Context, courseID string) (bool, error)
		FilterOutcomes(ctx context.Context, courseID string) ([]Outcome, error)
		QueryAllOutcomes(ctx context.Context) ([]Outcome, error)
		CreateOutcome(ctx context.Context, o Outcome) (Outcome, error)
		DeleteOutcomesByCourse(ctx context.Context, courseID string) (int, error)
	}

	// Outcome is the normalized unit of curriculum granularity. For
	// skills-based courses two subtypes share this shape, told apart by the
	// TOPIC_/SKILL_ unit-code prefix.
	Outcome struct {
		ID                  string
		CourseID            string
		CourseSQACode       string
		UnitCode            string
		UnitTitle           string
		SCQFCredits         null.Int // topics and skills carry no credit value
		OutcomeID           string
		OutcomeTitle        string
		AssessmentStandards []course.AssessmentStandard
		TeacherGuidance     string
		Keywords            []string
		CreatedAt           time.Time
		UpdatedAt           time.Time
	}
)

// IsTopic reports whether o is a minted topic record.
func (o Outcome) IsTopic() bool { return len(o.UnitCode) > len(TopicPrefix) && o.UnitCode[:len(TopicPrefix)] == TopicPrefix }

// IsSkill reports whether o is a minted skill record.
func (o Outcome) IsSkill() bool { return len(o.UnitCode) > len(SkillPrefix) && o.UnitCode[:len(SkillPrefix)] == SkillPrefix }
