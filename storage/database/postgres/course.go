package pgrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core/course"
)

type rawCourseRow struct {
	ID        string          `db:"id"`
	Subject   string          `db:"subject"`
	Level     string          `db:"level"`
	Data      json.RawMessage `db:"data"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type rawCourseRepository struct {
	db *sqlx.DB
}

var _ course.RawRepository = (*rawCourseRepository)(nil) // interface compliance check

func NewRawCourseRepository(db *sqlx.DB) *rawCourseRepository {
	return &rawCourseRepository{db: db}
}

func (repo rawCourseRepository) FilterRawCourses(ctx context.Context, subject, level string) ([]course.RawCourseRecord, error) {
	var rows []rawCourseRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM raw_course WHERE subject = $1 AND level = $2 ORDER BY created_at`, subject, level)
	if err != nil {
		return nil, errors.Wrap(err, "filtering raw courses")
	}
	recs := make([]course.RawCourseRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, course.RawCourseRecord(row))
	}
	return recs, nil
}

func (repo rawCourseRepository) CreateRawCourse(ctx context.Context, rec course.RawCourseRecord) (course.RawCourseRecord, error) {
	rec.ID = uuid.NewString()
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO raw_course (id, subject, level, data, created_at, updated_at)
		 VALUES (:id, :subject, :level, :data, :created_at, :updated_at)`,
		rawCourseRow(rec))
	if err != nil {
		return course.RawCourseRecord{}, errors.Wrap(err, "creating raw course")
	}
	return rec, nil
}

type courseRow struct {
	ID        string    `db:"id"`
	SQACode   string    `db:"sqa_code"`
	Subject   string    `db:"subject"`
	Level     string    `db:"level"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return course.Course(row), nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM course ORDER BY subject, level`)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, course.Course(row))
	}
	return courses, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO course (id, sqa_code, subject, level, created_at, updated_at)
		 VALUES (:id, :sqa_code, :subject, :level, :created_at, :updated_at)`,
		courseRow(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	_, err := repo.db.NamedExecContext(ctx,
		`UPDATE course SET sqa_code = :sqa_code, subject = :subject, level = :level, updated_at = :updated_at
		 WHERE id = :id`,
		courseRow(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return c, nil
}
