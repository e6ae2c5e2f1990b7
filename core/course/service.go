package course

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/mtaala/core"
)

type Service struct {
	rawRepo RawRepository
	repo    Repository
	logger  core.Logger
}

func NewService(rawRepo RawRepository, repo Repository, logger core.Logger) *Service {
	return &Service{rawRepo: rawRepo, repo: repo, logger: logger}
}

// subjectVariants returns the lookup keys to try for a subject, in order.
// "application_of_mathematics" was renamed to its plural form upstream at some
// point and both spellings exist in the wild.
func subjectVariants(subject string) []string {
	variants := []string{subject}
	switch subject {
	case "application_of_mathematics":
		variants = append(variants, "applications_of_mathematics")
	case "applications_of_mathematics":
		variants = append(variants, "application_of_mathematics")
	}
	return variants
}

// Locate finds the raw curriculum record for (subject, level), parses its
// embedded payload and derives the course id from the qualification code.
func (svc *Service) Locate(ctx context.Context, subject, level string) (ProcessedCourse, error) {
	subject = core.CleanString(subject, true)
	level = core.CleanString(level, true)

	variants := subjectVariants(subject)
	var recs []RawCourseRecord
	var tried []string
	for _, variant := range variants {
		tried = append(tried, fmt.Sprintf("(%s, %s)", variant, level))
		found, err := svc.rawRepo.FilterRawCourses(ctx, variant, level)
		if err != nil {
			return ProcessedCourse{}, err
		}
		if len(found) > 0 {
			recs = found
			break
		}
	}
	if len(recs) == 0 {
		return ProcessedCourse{}, core.NewPrerequisiteError(
			fmt.Sprintf("no raw course record found; tried %s", strings.Join(tried, ", ")),
			"import the curriculum data first: seeder import-raw -file <course.json> -subject "+subject+" -level "+level,
		)
	}
	if len(recs) > 1 {
		svc.logger.Warn(fmt.Sprintf("ambiguous course lookup (%s, %s): %d records match, using the first", subject, level, len(recs)))
	}
	rec := recs[0]

	data, err := ParseData(rec.Data)
	if err != nil {
		return ProcessedCourse{}, core.NewStructureError(
			fmt.Sprintf("unparseable payload on raw record %s", rec.ID),
			DumpShape(rec.Data),
		)
	}
	code := data.QualificationCode()
	if code == "" {
		return ProcessedCourse{}, core.NewStructureError(
			fmt.Sprintf("no qualification code on raw record %s", rec.ID),
			DumpShape(rec.Data),
		)
	}

	return ProcessedCourse{
		CourseID: NewCourseID(code),
		SQACode:  code,
		Subject:  rec.Subject,
		Level:    rec.Level,
		Data:     data,
	}, nil
}

// EnsureCourse upserts the course document for a processed course. Existing
// documents are left untouched unless forceUpdate is set.
func (svc *Service) EnsureCourse(ctx context.Context, pc ProcessedCourse, forceUpdate bool) (Course, error) {
	existing, err := svc.repo.GetCourse(ctx, pc.CourseID)
	if err == nil {
		if !forceUpdate {
			svc.logger.Info(fmt.Sprintf("course %s already exists, skipping", pc.CourseID))
			return existing, nil
		}
		existing.SQACode = pc.SQACode
		existing.Subject = pc.Subject
		existing.Level = pc.Level
		existing.UpdatedAt = time.Now().UTC()
		return svc.repo.UpdateCourse(ctx, existing)
	}
	if err != ErrNotFound {
		return Course{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		ID:        pc.CourseID,
		SQACode:   pc.SQACode,
		Subject:   pc.Subject,
		Level:     pc.Level,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// ImportRaw stores an externally sourced curriculum payload so Locate can
// find it. The payload is kept verbatim.
func (svc *Service) ImportRaw(ctx context.Context, subject, level string, payload []byte) (RawCourseRecord, error) {
	subject = core.CleanString(subject, true)
	level = core.CleanString(level, true)

	if _, err := ParseData(payload); err != nil {
		return RawCourseRecord{}, core.NewStructureError("invalid curriculum payload", DumpShape(payload))
	}
	now := time.Now().UTC()
	return svc.rawRepo.CreateRawCourse(ctx, RawCourseRecord{
		Subject:   subject,
		Level:     level,
		Data:      payload,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Get returns a persisted course document.
func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// QueryAll returns all persisted course documents.
func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}
