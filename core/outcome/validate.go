package outcome

import (
	"context"
	"sort"
)

// Duplicate is a uniqueness violation: one outcome id persisted more than
// once for the same course.
type Duplicate struct {
	CourseID  string `json:"courseId"`
	OutcomeID string `json:"outcomeId"`
	Count     int    `json:"count"`
}

// CheckUniqueness scans the whole store for (courseId, outcomeId) pairs that
// appear more than once. A non-empty result is a data-integrity bug.
func (svc *Service) CheckUniqueness(ctx context.Context) ([]Duplicate, error) {
	recs, err := svc.repo.QueryAllOutcomes(ctx)
	if err != nil {
		return nil, err
	}

	type key struct{ courseID, outcomeID string }
	counts := make(map[key]int, len(recs))
	for _, rec := range recs {
		counts[key{rec.CourseID, rec.OutcomeID}]++
	}

	var dups []Duplicate
	for k, n := range counts {
		if n > 1 {
			dups = append(dups, Duplicate{CourseID: k.courseID, OutcomeID: k.outcomeID, Count: n})
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].CourseID != dups[j].CourseID {
			return dups[i].CourseID < dups[j].CourseID
		}
		return dups[i].OutcomeID < dups[j].OutcomeID
	})
	return dups, nil
}
