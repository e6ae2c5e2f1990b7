package sow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var (
	// errors
	ErrNotFound         = errors.New("scheme of work not found")
	ErrTemplateNotFound = errors.New("lesson template not found")
)

type (
	Repository interface {
		GetSOWByCourse(ctx context.Context, courseID string) (SchemeOfWork, error)
		CreateSOW(ctx context.Context, doc SchemeOfWork) (SchemeOfWork, error)
		UpdateSOW(ctx context.Context, doc SchemeOfWork) (SchemeOfWork, error)
	}

	TemplateRepository interface {
		GetTemplate(ctx context.Context, id string) (LessonTemplate, error)
		// GetTemplateByOrder matches on (courseID, sow_order); legacy rows
		// without sow_order are only reachable via GetTemplateByTitle.
		GetTemplateByOrder(ctx context.Context, courseID string, order int) (LessonTemplate, error)
		GetTemplateByTitle(ctx context.Context, courseID, title string) (LessonTemplate, error)
		CreateTemplate(ctx context.Context, t LessonTemplate) (LessonTemplate, error)
		UpdateTemplate(ctx context.Context, t LessonTemplate) (LessonTemplate, error)
	}

	// Entry is one planned lesson. LessonTemplateRef starts as an authored
	// placeholder (e.g. "AUTO_TBD_3") and OutcomeRefs as short human codes
	// ("O1", "1"); the stitcher rewrites both to persisted record ids.
	Entry struct {
		Order             int                    `json:"order" validate:"required,min=1"`
		LessonTemplateRef string                 `json:"lessonTemplateRef" validate:"required"`
		Label             string                 `json:"label" validate:"required"`
		OutcomeRefs       []string               `json:"outcomeRefs" validate:"required,min=1,dive,required"`
		EstMinutes        int                    `json:"estMinutes,omitempty"`
		LessonType        string                 `json:"lesson_type,omitempty"`
		EngagementTags    []string               `json:"engagement_tags,omitempty"`
		Policy            map[string]interface{} `json:"policy,omitempty"`
	}

	SchemeOfWork struct {
		ID        string                 `json:"$id" validate:"required"`
		CourseID  string                 `json:"courseId" validate:"required"`
		Version   string                 `json:"version" validate:"required"`
		Status    string                 `json:"status" validate:"required"`
		Metadata  map[string]interface{} `json:"metadata" validate:"required"`
		Entries   []Entry                `json:"entries" validate:"required,min=1,dive"`
		CreatedAt time.Time              `json:"-"`
		UpdatedAt time.Time              `json:"-"`
	}

	// LessonTemplate is the persisted stub created one-to-one with each
	// entry. SOWOrder is the idempotent re-match key across runs; legacy rows
	// predate it and fall back to title matching.
	LessonTemplate struct {
		ID          string
		CourseID    string
		Title       string
		OutcomeRefs []string // real outcome document ids
		SOWOrder    null.Int
		EstMinutes  int
		LessonType  string
		Status      string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)
