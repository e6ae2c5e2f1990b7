package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
)

type (
	SeedOptions struct {
		ForceUpdate bool
		DryRun      bool
	}

	SeedResult struct {
		CourseID string   `json:"courseId"`
		Skipped  bool     `json:"skipped"`
		Deleted  int      `json:"deleted"`
		Written  []string `json:"written"` // outcome ids in write order
	}

	Service struct {
		repo       Repository
		courseRepo course.Repository
		policy     core.WritePolicy
		logger     core.Logger
	}
)

func NewService(repo Repository, courseRepo course.Repository, policy core.WritePolicy, logger core.Logger) *Service {
	return &Service{repo: repo, courseRepo: courseRepo, policy: policy, logger: logger}
}

// Seed extracts and persists the outcome batch for a processed course.
//
// Update semantics are deliberately all-or-nothing: one existence probe per
// course decides between skipping the whole batch and (under force-update)
// deleting everything before recreating it. There is no incremental diff.
func (svc *Service) Seed(ctx context.Context, pc course.ProcessedCourse, opts SeedOptions) (SeedResult, error) {
	res := SeedResult{CourseID: pc.CourseID}

	// the course document must exist before child records reference it
	if _, err := svc.courseRepo.GetCourse(ctx, pc.CourseID); err != nil {
		if err == course.ErrNotFound {
			return res, core.NewPrerequisiteError(
				fmt.Sprintf("course document %s does not exist", pc.CourseID),
				"run seed-course for this subject/level first",
			)
		}
		return res, err
	}

	recs, err := Extract(pc, svc.logger)
	if err != nil {
		return res, err
	}

	exists, err := svc.repo.AnyOutcomeExists(ctx, pc.CourseID)
	if err != nil {
		return res, err
	}
	if exists && !opts.ForceUpdate {
		svc.logger.Info(fmt.Sprintf("outcomes already exist for %s, skipping %d records", pc.CourseID, len(recs)))
		res.Skipped = true
		return res, nil
	}

	if opts.DryRun {
		svc.logger.Info(fmt.Sprintf("dry run: would write %d outcomes for %s", len(recs), pc.CourseID))
		res.Skipped = true
		return res, nil
	}

	if exists {
		deleted, err := svc.repo.DeleteOutcomesByCourse(ctx, pc.CourseID)
		if err != nil {
			return res, errors.Wrap(err, "deleting existing outcomes")
		}
		svc.logger.Info(fmt.Sprintf("force update: deleted %d outcomes for %s", deleted, pc.CourseID))
		res.Deleted = deleted
	}

	now := time.Now().UTC()
	for i, rec := range recs {
		rec.CreatedAt = now
		rec.UpdatedAt = now
		err := svc.policy.Retry(func() error {
			_, cErr := svc.repo.CreateOutcome(ctx, rec)
			return cErr
		})
		if err != nil {
			// fail fast; whatever was written before the failure stays written
			return res, errors.Wrapf(err,
				"writing outcome %s (%d/%d written) for %s",
				rec.OutcomeID, len(res.Written), len(recs), pc.CourseID)
		}
		res.Written = append(res.Written, rec.OutcomeID)
		if i < len(recs)-1 {
			svc.policy.Pause(len(recs))
		}
	}
	svc.logger.Info(fmt.Sprintf("wrote %d outcomes for %s", len(res.Written), pc.CourseID))
	return res, nil
}

// Filter returns the persisted outcomes of a course.
func (svc *Service) Filter(ctx context.Context, courseID string) ([]Outcome, error) {
	return svc.repo.FilterOutcomes(ctx, courseID)
}
