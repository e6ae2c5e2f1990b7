package sow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/outcome"
)

type (
	StitchOptions struct {
		DryRun bool
	}

	StitchResult struct {
		CourseID  string            `json:"courseId"`
		Version   string            `json:"version"`
		Created   int               `json:"created"`
		Updated   int               `json:"updated"`
		Templates map[string]string `json:"templates"` // placeholder -> persisted template id
	}

	Service struct {
		repo        Repository
		tmplRepo    TemplateRepository
		outcomeRepo outcome.Repository
		policy      core.WritePolicy
		logger      core.Logger
	}
)

func NewService(repo Repository, tmplRepo TemplateRepository, outcomeRepo outcome.Repository, policy core.WritePolicy, logger core.Logger) *Service {
	return &Service{repo: repo, tmplRepo: tmplRepo, outcomeRepo: outcomeRepo, policy: policy, logger: logger}
}

// NormalizeRef maps a bare numeric outcome reference to its "O"-prefixed
// form; anything else passes through unchanged.
func NormalizeRef(ref string) string {
	ref = core.CleanString(ref)
	if _, err := strconv.Atoi(ref); err == nil {
		return "O" + ref
	}
	return ref
}

// Stitch resolves every placeholder in an authored scheme of work to real
// persisted record ids and upserts the document. Strictly sequential, no
// branching back:
//
//  1. validate outcome refs against persisted outcomes
//  2. create/update one lesson template per entry
//  3. rewrite entry placeholders via the template map
//  4. upsert the document with a version bump
//  5. re-validate the persisted references
//
// Steps 1 and 5 fail fatally with every offending id enumerated; a title
// mismatch in step 5 is only a warning.
func (svc *Service) Stitch(ctx context.Context, doc SchemeOfWork, opts StitchOptions) (StitchResult, error) {
	res := StitchResult{CourseID: doc.CourseID, Templates: make(map[string]string)}

	// step 1: validate outcome refs
	outcomes, err := svc.outcomeRepo.FilterOutcomes(ctx, doc.CourseID)
	if err != nil {
		return res, err
	}
	if len(outcomes) == 0 {
		return res, core.NewPrerequisiteError(
			fmt.Sprintf("no outcomes persisted for %s", doc.CourseID),
			"run seed-course for this course first",
		)
	}
	byOutcomeID := make(map[string]string, len(outcomes)) // outcomeId -> document id
	for _, o := range outcomes {
		byOutcomeID[o.OutcomeID] = o.ID
	}

	missing := make(map[string]bool)
	for _, entry := range doc.Entries {
		for _, ref := range entry.OutcomeRefs {
			norm := NormalizeRef(ref)
			if _, ok := byOutcomeID[norm]; !ok {
				missing[norm] = true
			}
		}
	}
	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return res, core.NewIntegrityError(
			fmt.Sprintf("outcome refs missing for %s", doc.CourseID), ids...)
	}

	if opts.DryRun {
		svc.logger.Info(fmt.Sprintf("dry run: would stitch %d entries for %s", len(doc.Entries), doc.CourseID))
		return res, nil
	}

	// step 2: create/update lesson template placeholders
	now := time.Now().UTC()
	for i, entry := range doc.Entries {
		refs := make([]string, 0, len(entry.OutcomeRefs))
		for _, ref := range entry.OutcomeRefs {
			id, ok := byOutcomeID[NormalizeRef(ref)]
			if !ok {
				// validated in step 1; reaching this means the resolution map is broken
				return res, core.NewIntegrityError("validated outcome ref no longer resolves", NormalizeRef(ref))
			}
			refs = append(refs, id)
		}

		tmpl, found, err := svc.findTemplate(ctx, doc.CourseID, entry)
		if err != nil {
			return res, err
		}
		tmpl.CourseID = doc.CourseID
		tmpl.Title = entry.Label
		tmpl.OutcomeRefs = refs
		tmpl.SOWOrder = null.IntFrom(entry.Order)
		tmpl.EstMinutes = entry.EstMinutes
		tmpl.LessonType = entry.LessonType
		tmpl.UpdatedAt = now

		if found {
			if tmpl, err = svc.tmplRepo.UpdateTemplate(ctx, tmpl); err != nil {
				return res, err
			}
			res.Updated++
		} else {
			tmpl.Status = "draft"
			tmpl.CreatedAt = now
			if tmpl, err = svc.tmplRepo.CreateTemplate(ctx, tmpl); err != nil {
				return res, err
			}
			res.Created++
		}
		res.Templates[entry.LessonTemplateRef] = tmpl.ID

		if i < len(doc.Entries)-1 {
			svc.policy.Pause(len(doc.Entries))
		}
	}

	// step 3: rewrite entry placeholders
	for i := range doc.Entries {
		id, ok := res.Templates[doc.Entries[i].LessonTemplateRef]
		if !ok {
			return res, core.NewIntegrityError("placeholder was never resolved", doc.Entries[i].LessonTemplateRef)
		}
		doc.Entries[i].LessonTemplateRef = id
	}

	// step 4: persist the document
	existing, err := svc.repo.GetSOWByCourse(ctx, doc.CourseID)
	switch err {
	case nil:
		existing.Version = svc.nextVersion(existing.Version)
		existing.Status = doc.Status
		existing.Metadata = doc.Metadata
		existing.Entries = doc.Entries
		existing.UpdatedAt = now
		if existing, err = svc.repo.UpdateSOW(ctx, existing); err != nil {
			return res, err
		}
		res.Version = existing.Version
	case ErrNotFound:
		doc.Version = "1.0"
		doc.CreatedAt = now
		doc.UpdatedAt = now
		if doc, err = svc.repo.CreateSOW(ctx, doc); err != nil {
			return res, err
		}
		res.Version = doc.Version
	default:
		return res, err
	}

	// step 5: post-write validation
	if err := svc.verify(ctx, doc.CourseID); err != nil {
		return res, err
	}
	svc.logger.Info(fmt.Sprintf("stitched %s: %d templates created, %d updated, version %s",
		doc.CourseID, res.Created, res.Updated, res.Version))
	return res, nil
}

// findTemplate matches an existing placeholder by (courseID, sow_order),
// falling back to (courseID, title) for legacy rows without sow_order.
func (svc *Service) findTemplate(ctx context.Context, courseID string, entry Entry) (LessonTemplate, bool, error) {
	tmpl, err := svc.tmplRepo.GetTemplateByOrder(ctx, courseID, entry.Order)
	if err == nil {
		return tmpl, true, nil
	}
	if err != ErrTemplateNotFound {
		return LessonTemplate{}, false, err
	}
	tmpl, err = svc.tmplRepo.GetTemplateByTitle(ctx, courseID, entry.Label)
	if err == nil {
		return tmpl, true, nil
	}
	if err != ErrTemplateNotFound {
		return LessonTemplate{}, false, err
	}
	return LessonTemplate{}, false, nil
}

// verify re-reads the persisted document and confirms its template refs are
// pairwise unique and still resolve; label/title drift is only warned about.
func (svc *Service) verify(ctx context.Context, courseID string) error {
	doc, err := svc.repo.GetSOWByCourse(ctx, courseID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(doc.Entries))
	var dups []string
	for _, entry := range doc.Entries {
		if seen[entry.LessonTemplateRef] {
			dups = append(dups, entry.LessonTemplateRef)
		}
		seen[entry.LessonTemplateRef] = true
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return core.NewIntegrityError("duplicate lesson template refs", dups...)
	}

	var gone []string
	for _, entry := range doc.Entries {
		tmpl, err := svc.tmplRepo.GetTemplate(ctx, entry.LessonTemplateRef)
		if err == ErrTemplateNotFound {
			gone = append(gone, entry.LessonTemplateRef)
			continue
		}
		if err != nil {
			return err
		}
		if tmpl.Title != entry.Label {
			svc.logger.Warn(fmt.Sprintf("template %s title %q does not match entry label %q",
				tmpl.ID, tmpl.Title, entry.Label))
		}
	}
	if len(gone) > 0 {
		return core.NewIntegrityError("lesson template refs no longer exist", gone...)
	}
	return nil
}

// nextVersion computes the version written on update: a bare integer is
// incremented, "major.minor" bumps the minor, anything unrecognized resets
// to "1.0" with a warning.
func (svc *Service) nextVersion(current string) string {
	return nextVersion(current, svc.logger)
}

func nextVersion(current string, logger core.Logger) string {
	current = strings.TrimSpace(current)
	if current == "" {
		return "1.0"
	}
	if n, err := strconv.Atoi(current); err == nil {
		return strconv.Itoa(n + 1)
	}
	parts := strings.Split(current, ".")
	if len(parts) == 2 {
		major, mErr := strconv.Atoi(parts[0])
		minor, nErr := strconv.Atoi(parts[1])
		if mErr == nil && nErr == nil {
			return fmt.Sprintf("%d.%d", major, minor+1)
		}
	}
	if logger != nil {
		logger.Warn(fmt.Sprintf("unrecognized version %q, resetting to 1.0", current))
	}
	return "1.0"
}

// Get returns the persisted scheme of work for a course.
func (svc *Service) Get(ctx context.Context, courseID string) (SchemeOfWork, error) {
	return svc.repo.GetSOWByCourse(ctx, courseID)
}
