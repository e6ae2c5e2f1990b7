package pgrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtaala/core/sow"
)

type sowRow struct {
	ID        string          `db:"id"`
	CourseID  string          `db:"course_id"`
	Version   string          `db:"version"`
	Status    string          `db:"status"`
	Metadata  json.RawMessage `db:"metadata"`
	Entries   json.RawMessage `db:"entries"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func rowFromSOW(doc sow.SchemeOfWork) (sowRow, error) {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return sowRow{}, errors.Wrap(err, "encoding metadata")
	}
	entries, err := json.Marshal(doc.Entries)
	if err != nil {
		return sowRow{}, errors.Wrap(err, "encoding entries")
	}
	return sowRow{
		ID:        doc.ID,
		CourseID:  doc.CourseID,
		Version:   doc.Version,
		Status:    doc.Status,
		Metadata:  metadata,
		Entries:   entries,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (row sowRow) toSOW() (sow.SchemeOfWork, error) {
	doc := sow.SchemeOfWork{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Version:   row.Version,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &doc.Metadata); err != nil {
			return sow.SchemeOfWork{}, errors.Wrap(err, "decoding metadata")
		}
	}
	if len(row.Entries) > 0 {
		if err := json.Unmarshal(row.Entries, &doc.Entries); err != nil {
			return sow.SchemeOfWork{}, errors.Wrap(err, "decoding entries")
		}
	}
	return doc, nil
}

type sowRepository struct {
	db *sqlx.DB
}

var _ sow.Repository = (*sowRepository)(nil) // interface compliance check

func NewSOWRepository(db *sqlx.DB) *sowRepository {
	return &sowRepository{db: db}
}

func (repo sowRepository) GetSOWByCourse(ctx context.Context, courseID string) (sow.SchemeOfWork, error) {
	var row sowRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM scheme_of_work WHERE course_id = $1`, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return sow.SchemeOfWork{}, sow.ErrNotFound
		}
		return sow.SchemeOfWork{}, errors.Wrap(err, "getting scheme of work")
	}
	return row.toSOW()
}

func (repo sowRepository) CreateSOW(ctx context.Context, doc sow.SchemeOfWork) (sow.SchemeOfWork, error) {
	doc.ID = uuid.NewString()
	row, err := rowFromSOW(doc)
	if err != nil {
		return sow.SchemeOfWork{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		`INSERT INTO scheme_of_work (id, course_id, version, status, metadata, entries, created_at, updated_at)
		 VALUES (:id, :course_id, :version, :status, :metadata, :entries, :created_at, :updated_at)`,
		row)
	if err != nil {
		return sow.SchemeOfWork{}, errors.Wrap(err, "creating scheme of work")
	}
	return doc, nil
}

func (repo sowRepository) UpdateSOW(ctx context.Context, doc sow.SchemeOfWork) (sow.SchemeOfWork, error) {
	row, err := rowFromSOW(doc)
	if err != nil {
		return sow.SchemeOfWork{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		`UPDATE scheme_of_work SET version = :version, status = :status, metadata = :metadata,
		        entries = :entries, updated_at = :updated_at
		 WHERE id = :id`,
		row)
	if err != nil {
		return sow.SchemeOfWork{}, errors.Wrap(err, "updating scheme of work")
	}
	return doc, nil
}

type templateRow struct {
	ID          string          `db:"id"`
	CourseID    string          `db:"course_id"`
	Title       string          `db:"title"`
	OutcomeRefs json.RawMessage `db:"outcome_refs"`
	SOWOrder    null.Int        `db:"sow_order"`
	EstMinutes  int             `db:"est_minutes"`
	LessonType  string          `db:"lesson_type"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func rowFromTemplate(t sow.LessonTemplate) (templateRow, error) {
	refs, err := json.Marshal(t.OutcomeRefs)
	if err != nil {
		return templateRow{}, errors.Wrap(err, "encoding outcome refs")
	}
	return templateRow{
		ID:          t.ID,
		CourseID:    t.CourseID,
		Title:       t.Title,
		OutcomeRefs: refs,
		SOWOrder:    t.SOWOrder,
		EstMinutes:  t.EstMinutes,
		LessonType:  t.LessonType,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}, nil
}

func (row templateRow) toTemplate() (sow.LessonTemplate, error) {
	t := sow.LessonTemplate{
		ID:         row.ID,
		CourseID:   row.CourseID,
		Title:      row.Title,
		SOWOrder:   row.SOWOrder,
		EstMinutes: row.EstMinutes,
		LessonType: row.LessonType,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if len(row.OutcomeRefs) > 0 {
		if err := json.Unmarshal(row.OutcomeRefs, &t.OutcomeRefs); err != nil {
			return sow.LessonTemplate{}, errors.Wrap(err, "decoding outcome refs")
		}
	}
	return t, nil
}

type templateRepository struct {
	db *sqlx.DB
}

var _ sow.TemplateRepository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *sqlx.DB) *templateRepository {
	return &templateRepository{db: db}
}

func (repo templateRepository) getTemplate(ctx context.Context, query string, args ...interface{}) (sow.LessonTemplate, error) {
	var row templateRow
	err := repo.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return sow.LessonTemplate{}, sow.ErrTemplateNotFound
		}
		return sow.LessonTemplate{}, errors.Wrap(err, "getting lesson template")
	}
	return row.toTemplate()
}

func (repo templateRepository) GetTemplate(ctx context.Context, id string) (sow.LessonTemplate, error) {
	return repo.getTemplate(ctx, `SELECT * FROM lesson_template WHERE id = $1`, id)
}

func (repo templateRepository) GetTemplateByOrder(ctx context.Context, courseID string, order int) (sow.LessonTemplate, error) {
	return repo.getTemplate(ctx,
		`SELECT * FROM lesson_template WHERE course_id = $1 AND sow_order = $2 ORDER BY created_at LIMIT 1`,
		courseID, order)
}

func (repo templateRepository) GetTemplateByTitle(ctx context.Context, courseID, title string) (sow.LessonTemplate, error) {
	return repo.getTemplate(ctx,
		`SELECT * FROM lesson_template WHERE course_id = $1 AND title = $2 AND sow_order IS NULL ORDER BY created_at LIMIT 1`,
		courseID, title)
}

func (repo templateRepository) CreateTemplate(ctx context.Context, t sow.LessonTemplate) (sow.LessonTemplate, error) {
	t.ID = uuid.NewString()
	row, err := rowFromTemplate(t)
	if err != nil {
		return sow.LessonTemplate{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		`INSERT INTO lesson_template (id, course_id, title, outcome_refs, sow_order, est_minutes,
		                              lesson_type, status, created_at, updated_at)
		 VALUES (:id, :course_id, :title, :outcome_refs, :sow_order, :est_minutes,
		         :lesson_type, :status, :created_at, :updated_at)`,
		row)
	if err != nil {
		return sow.LessonTemplate{}, errors.Wrap(err, "creating lesson template")
	}
	return t, nil
}

func (repo templateRepository) UpdateTemplate(ctx context.Context, t sow.LessonTemplate) (sow.LessonTemplate, error) {
	row, err := rowFromTemplate(t)
	if err != nil {
		return sow.LessonTemplate{}, err
	}
	_, err = repo.db.NamedExecContext(ctx,
		`UPDATE lesson_template SET title = :title, outcome_refs = :outcome_refs, sow_order = :sow_order,
		        est_minutes = :est_minutes, lesson_type = :lesson_type, status = :status, updated_at = :updated_at
		 WHERE id = :id`,
		row)
	if err != nil {
		return sow.LessonTemplate{}, errors.Wrap(err, "updating lesson template")
	}
	return t, nil
}
