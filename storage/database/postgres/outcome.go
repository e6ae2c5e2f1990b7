package pgrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
)

type outcomeRow struct {
	ID                  string          `db:"id"`
	CourseID            string          `db:"course_id"`
	CourseSQACode       string          `db:"course_sqa_code"`
	UnitCode            string          `db:"unit_code"`
	UnitTitle           string          `db:"unit_title"`
	SCQFCredits         null.Int        `db:"scqf_credits"`
	OutcomeID           string          `db:"outcome_id"`
	OutcomeTitle        string          `db:"outcome_title"`
	AssessmentStandards json.RawMessage `db:"assessment_standards"`
	TeacherGuidance     string          `db:"teacher_guidance"`
	Keywords            json.RawMessage `db:"keywords"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func rowFromOutcome(o outcome.Outcome) (outcomeRow, error) {
	standards, err := json.Marshal(o.AssessmentStandards)
	if err != nil {
		return outcomeRow{}, errors.Wrap(err, "encoding assessment standards")
	}
	keywords, err := json.Marshal(o.Keywords)
	if err != nil {
		return outcomeRow{}, errors.Wrap(err, "encoding keywords")
	}
	return outcomeRow{
		ID:                  o.ID,
		CourseID:            o.CourseID,
		CourseSQACode:       o.CourseSQACode,
		UnitCode:            o.UnitCode,
		UnitTitle:           o.UnitTitle,
		SCQFCredits:         o.SCQFCredits,
		OutcomeID:           o.OutcomeID,
		OutcomeTitle:        o.OutcomeTitle,
		AssessmentStandards: standards,
		TeacherGuidance:     o.TeacherGuidance,
		Keywords:            keywords,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}, nil
}

func (row outcomeRow) toOutcome() (outcome.Outcome, error) {
	var standards []course.AssessmentStandard
	if len(row.AssessmentStandards) > 0 {
		if err := json.Unmarshal(row.AssessmentStandards, &standards); err != nil {
			return outcome.Outcome{}, errors.Wrap(err, "decoding assessment standards")
		}
	}
	var keywords []string
	if len(row.Keywords) > 0 {
		if err := json.Unmarshal(row.Keywords, &keywords); err != nil {
			return outcome.Outcome{}, errors.Wrap(err, "decoding keywords")
		}
	}
	return outcome.Outcome{
		ID:                  row.ID,
		CourseID:            row.CourseID,
		CourseSQACode:       row.CourseSQACode,
		UnitCode:            row.UnitCode,
		UnitTitle:           row.UnitTitle,
		SCQFCredits:         row.SCQFCredits,
		OutcomeID:           row.OutcomeID,
		OutcomeTitle:        row.OutcomeTitle,
		AssessmentStandards: standards,
		TeacherGuidance:     row.TeacherGuidance,
		Keywords:            keywords,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}, nil
}

type outcomeRepository struct {
	db *sqlx.DB
}

var _ outcome.Repository = (*outcomeRepository)(nil) // interface compliance check

func NewOutcomeRepository(db *sqlx.DB) *outcomeRepository {
	return &outcomeRepository{db: db}
}

func (repo outcomeRepository) AnyOutcomeExists(ctx context.Context, courseID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM outcome WHERE course_id = $1)`, courseID)
	if err != nil {
		return false, errors.Wrap(err, "probing outcomes")
	}
	return exists, nil
}

func (repo outcomeRepository) FilterOutcomes(ctx context.Context, courseID string) ([]outcome.Outcome, error) {
	var rows []outcomeRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM outcome WHERE course_id = $1 ORDER BY unit_code, outcome_id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "filtering outcomes")
	}
	return rowsToOutcomes(rows)
}

func (repo outcomeRepository) QueryAllOutcomes(ctx context.Context) ([]outcome.Outcome, error) {
	var rows []outcomeRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM outcome ORDER BY course_id, unit_code, outcome_id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying outcomes")
	}
	return rowsToOutcomes(rows)
}

func rowsToOutcomes(rows []outcomeRow) ([]outcome.Outcome, error) {
	recs := make([]outcome.Outcome, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toOutcome()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo outcomeRepository) CreateOutcome(ctx context.Context, o outcome.Outcome) (outcome.Outcome, error) {
	o.ID = uuid.NewString()
	row, err := rowFromOutcome(o)
	if err != nil {
		return outcome.Outcome{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		`INSERT INTO outcome (id, course_id, course_sqa_code, unit_code, unit_title, scqf_credits,
		                      outcome_id, outcome_title, assessment_standards, teacher_guidance, keywords,
		                      created_at, updated_at)
		 VALUES (:id, :course_id, :course_sqa_code, :unit_code, :unit_title, :scqf_credits,
		         :outcome_id, :outcome_title, :assessment_standards, :teacher_guidance, :keywords,
		         :created_at, :updated_at)`,
		row)
	if err != nil {
		return outcome.Outcome{}, errors.Wrap(err, "creating outcome")
	}
	return o, nil
}

func (repo outcomeRepository) DeleteOutcomesByCourse(ctx context.Context, courseID string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM outcome WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting outcomes")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting outcomes")
	}
	return int(n), nil
}
