package inmemdb

import (
	"context"

	"github.com/trezcool/mtaala/core/sow"
)

type (
	sowEntry      struct{ doc sow.SchemeOfWork }
	templateEntry struct{ t sow.LessonTemplate }
)

type sowRepository struct {
	db *DB
}

var _ sow.Repository = (*sowRepository)(nil)

func NewSOWRepository(db *DB) *sowRepository {
	return &sowRepository{db: db}
}

func (r *sowRepository) GetSOWByCourse(_ context.Context, courseID string) (sow.SchemeOfWork, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if entry, ok := r.db.sows[courseID]; ok {
		return entry.doc, nil
	}
	return sow.SchemeOfWork{}, sow.ErrNotFound
}

func (r *sowRepository) CreateSOW(_ context.Context, doc sow.SchemeOfWork) (sow.SchemeOfWork, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return sow.SchemeOfWork{}, err
	}
	doc.ID = r.db.nextPK("sow")
	r.db.sows[doc.CourseID] = sowEntry{doc: doc}
	return doc, nil
}

func (r *sowRepository) UpdateSOW(_ context.Context, doc sow.SchemeOfWork) (sow.SchemeOfWork, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return sow.SchemeOfWork{}, err
	}
	if _, ok := r.db.sows[doc.CourseID]; !ok {
		return sow.SchemeOfWork{}, sow.ErrNotFound
	}
	r.db.sows[doc.CourseID] = sowEntry{doc: doc}
	return doc, nil
}

type templateRepository struct {
	db *DB
}

var _ sow.TemplateRepository = (*templateRepository)(nil)

func NewTemplateRepository(db *DB) *templateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) GetTemplate(_ context.Context, id string) (sow.LessonTemplate, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if entry, ok := r.db.templates[id]; ok {
		return entry.t, nil
	}
	return sow.LessonTemplate{}, sow.ErrTemplateNotFound
}

func (r *templateRepository) GetTemplateByOrder(_ context.Context, courseID string, order int) (sow.LessonTemplate, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, entry := range r.db.templates {
		if entry.t.CourseID == courseID && entry.t.SOWOrder.Valid && entry.t.SOWOrder.Int == order {
			return entry.t, nil
		}
	}
	return sow.LessonTemplate{}, sow.ErrTemplateNotFound
}

func (r *templateRepository) GetTemplateByTitle(_ context.Context, courseID, title string) (sow.LessonTemplate, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, entry := range r.db.templates {
		if entry.t.CourseID == courseID && !entry.t.SOWOrder.Valid && entry.t.Title == title {
			return entry.t, nil
		}
	}
	return sow.LessonTemplate{}, sow.ErrTemplateNotFound
}

func (r *templateRepository) CreateTemplate(_ context.Context, t sow.LessonTemplate) (sow.LessonTemplate, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return sow.LessonTemplate{}, err
	}
	t.ID = r.db.nextPK("lt")
	r.db.templates[t.ID] = templateEntry{t: t}
	return t, nil
}

func (r *templateRepository) UpdateTemplate(_ context.Context, t sow.LessonTemplate) (sow.LessonTemplate, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return sow.LessonTemplate{}, err
	}
	if _, ok := r.db.templates[t.ID]; !ok {
		return sow.LessonTemplate{}, sow.ErrTemplateNotFound
	}
	r.db.templates[t.ID] = templateEntry{t: t}
	return t, nil
}

// DeleteTemplate removes a template outright; only tests need this, to
// simulate a record vanishing between stitching and verification.
func (r *templateRepository) DeleteTemplate(_ context.Context, id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	delete(r.db.templates, id)
	return nil
}
