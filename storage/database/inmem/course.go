package inmemdb

import (
	"context"

	"github.com/trezcool/mtaala/core/course"
)

type (
	rawCourseEntry struct{ rec course.RawCourseRecord }
	courseEntry    struct{ c course.Course }
)

type rawCourseRepository struct {
	db *DB
}

var _ course.RawRepository = (*rawCourseRepository)(nil)

func NewRawCourseRepository(db *DB) *rawCourseRepository {
	return &rawCourseRepository{db: db}
}

func (r *rawCourseRepository) FilterRawCourses(_ context.Context, subject, level string) ([]course.RawCourseRecord, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var recs []course.RawCourseRecord
	for _, entry := range r.db.rawCourses {
		if entry.rec.Subject == subject && entry.rec.Level == level {
			recs = append(recs, entry.rec)
		}
	}
	return recs, nil
}

func (r *rawCourseRepository) CreateRawCourse(_ context.Context, rec course.RawCourseRecord) (course.RawCourseRecord, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return course.RawCourseRecord{}, err
	}
	rec.ID = r.db.nextPK("raw")
	r.db.rawCourses = append(r.db.rawCourses, rawCourseEntry{rec: rec})
	return rec, nil
}

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if entry, ok := r.db.courses[id]; ok {
		return entry.c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (r *courseRepository) QueryAllCourses(_ context.Context) ([]course.Course, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(r.db.courses))
	for _, entry := range r.db.courses {
		courses = append(courses, entry.c)
	}
	return courses, nil
}

func (r *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return course.Course{}, err
	}
	r.db.courses[c.ID] = courseEntry{c: c}
	return c, nil
}

func (r *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return course.Course{}, err
	}
	if _, ok := r.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	r.db.courses[c.ID] = courseEntry{c: c}
	return c, nil
}
