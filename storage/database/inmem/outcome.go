package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/mtaala/core/outcome"
)

type outcomeEntry struct{ o outcome.Outcome }

type outcomeRepository struct {
	db *DB
}

var _ outcome.Repository = (*outcomeRepository)(nil)

func NewOutcomeRepository(db *DB) *outcomeRepository {
	return &outcomeRepository{db: db}
}

func (r *outcomeRepository) AnyOutcomeExists(_ context.Context, courseID string) (bool, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, entry := range r.db.outcomes {
		if entry.o.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *outcomeRepository) FilterOutcomes(_ context.Context, courseID string) ([]outcome.Outcome, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var recs []outcome.Outcome
	for _, entry := range r.db.outcomes {
		if entry.o.CourseID == courseID {
			recs = append(recs, entry.o)
		}
	}
	sortOutcomes(recs)
	return recs, nil
}

func (r *outcomeRepository) QueryAllOutcomes(_ context.Context) ([]outcome.Outcome, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	recs := make([]outcome.Outcome, 0, len(r.db.outcomes))
	for _, entry := range r.db.outcomes {
		recs = append(recs, entry.o)
	}
	sortOutcomes(recs)
	return recs, nil
}

func (r *outcomeRepository) CreateOutcome(_ context.Context, o outcome.Outcome) (outcome.Outcome, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return outcome.Outcome{}, err
	}
	o.ID = r.db.nextPK("outcome")
	r.db.outcomes[o.ID] = outcomeEntry{o: o}
	return o, nil
}

func (r *outcomeRepository) DeleteOutcomesByCourse(_ context.Context, courseID string) (int, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if err := r.db.failNext(); err != nil {
		return 0, err
	}
	var deleted int
	for id, entry := range r.db.outcomes {
		if entry.o.CourseID == courseID {
			delete(r.db.outcomes, id)
			deleted++
		}
	}
	return deleted, nil
}

func sortOutcomes(recs []outcome.Outcome) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CourseID != recs[j].CourseID {
			return recs[i].CourseID < recs[j].CourseID
		}
		if recs[i].UnitCode != recs[j].UnitCode {
			return recs[i].UnitCode < recs[j].UnitCode
		}
		return recs[i].OutcomeID < recs[j].OutcomeID
	})
}
