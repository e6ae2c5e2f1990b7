package outcome_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
	inmemdb "github.com/trezcool/mtaala/storage/database/inmem"
	testutil "github.com/trezcool/mtaala/tests"
)

type seedFixture struct {
	db      *inmemdb.DB
	svc     *outcome.Service
	logger  *testutil.Logger
	pc      course.ProcessedCourse
	courses course.Repository
}

func newSeedFixture(t *testing.T, payload string, withCourseDoc bool) seedFixture {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	logger := testutil.NewLogger()
	courseRepo := inmemdb.NewCourseRepository(db)
	svc := outcome.NewService(inmemdb.NewOutcomeRepository(db), courseRepo, testutil.NoDelayPolicy(), logger)

	pc := testutil.ProcessCourse(t, "mathematics", "national_5", payload)
	if withCourseDoc {
		testutil.CreateCourseDoc(t, courseRepo, pc)
	}
	return seedFixture{db: db, svc: svc, logger: logger, pc: pc, courses: courseRepo}
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("course document must exist first", func(t *testing.T) {
		f := newSeedFixture(t, testutil.UnitBasedJSON, false)

		_, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{})
		pErr, ok := err.(*core.PrerequisiteError)
		if !ok {
			t.Fatalf("Seed() error = %T(%v), want *core.PrerequisiteError", err, err)
		}
		if !strings.Contains(pErr.Remedy, "seed-course") {
			t.Errorf("Remedy = %q, want the seed-course hint", pErr.Remedy)
		}
	})

	t.Run("first run writes every record", func(t *testing.T) {
		f := newSeedFixture(t, testutil.UnitBasedJSON, true)

		res, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{})
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if res.Skipped || res.Deleted != 0 {
			t.Errorf("res = %+v, want a clean write", res)
		}
		want := []string{"O1", "O2", "O3"}
		if len(res.Written) != len(want) {
			t.Fatalf("Written = %v, want %v", res.Written, want)
		}
		for i, id := range want {
			if res.Written[i] != id {
				t.Errorf("Written[%d] = %v, want %v", i, res.Written[i], id)
			}
		}

		recs, err := f.svc.Filter(ctx, f.pc.CourseID)
		if err != nil {
			t.Fatalf("Filter() error = %v", err)
		}
		if len(recs) != 3 {
			t.Errorf("Filter() returned %d records, want 3", len(recs))
		}
		for _, rec := range recs {
			if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
				t.Errorf("record %s has zero timestamps", rec.OutcomeID)
			}
		}
	})

	t.Run("second run skips the whole batch", func(t *testing.T) {
		f := newSeedFixture(t, testutil.UnitBasedJSON, true)

		if _, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{}); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		res, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{})
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if !res.Skipped || len(res.Written) != 0 || res.Deleted != 0 {
			t.Errorf("res = %+v, want a full skip", res)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		f := newSeedFixture(t, testutil.UnitBasedJSON, true)

		res, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{DryRun: true})
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if !res.Skipped || len(res.Written) != 0 {
			t.Errorf("res = %+v, want nothing written", res)
		}
		recs, _ := f.svc.Filter(ctx, f.pc.CourseID)
		if len(recs) != 0 {
			t.Errorf("dry run persisted %d records", len(recs))
		}
	})

	t.Run("force update deletes then recreates", func(t *testing.T) {
		f := newSeedFixture(t, testutil.UnitBasedJSON, true)

		if _, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{}); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		res, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{ForceUpdate: true})
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if res.Deleted != 3 || len(res.Written) != 3 {
			t.Errorf("res = %+v, want 3 deleted and 3 written", res)
		}
		recs, _ := f.svc.Filter(ctx, f.pc.CourseID)
		if len(recs) != 3 {
			t.Errorf("store holds %d records after force update, want 3", len(recs))
		}
	})

	t.Run("rate limited writes are retried", func(t *testing.T) {
		f := newSeedFixture(t, testutil.UnitBasedJSON, true)
		f.db.FailNextWrites(2, core.ErrRateLimited)

		res, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{})
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if len(res.Written) != 3 {
			t.Errorf("Written = %v, want all 3 despite rate limiting", res.Written)
		}
	})

	t.Run("other write errors fail fast", func(t *testing.T) {
		f := newSeedFixture(t, testutil.UnitBasedJSON, true)
		errBoom := errors.New("boom")
		f.db.FailNextWrites(1, errBoom)

		_, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{})
		if err == nil || errors.Cause(err) != errBoom {
			t.Fatalf("Seed() error = %v, want boom", err)
		}
		if !strings.Contains(err.Error(), "writing outcome O1 (0/3 written)") {
			t.Errorf("error = %q, want the write-progress context", err)
		}
	})

	t.Run("skills based dual pass", func(t *testing.T) {
		f := newSeedFixture(t, testutil.SkillsBasedJSON, true)

		res, err := f.svc.Seed(ctx, f.pc, outcome.SeedOptions{})
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if len(res.Written) != 5 {
			t.Fatalf("Written = %v, want 5 records (2 topics + 3 skills)", res.Written)
		}
		want := []string{"T1", "T2", "S1", "S2", "S3"}
		for i, id := range want {
			if res.Written[i] != id {
				t.Errorf("Written[%d] = %v, want %v", i, res.Written[i], id)
			}
		}
	})
}

func TestService_CheckUniqueness(t *testing.T) {
	ctx := context.Background()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewOutcomeRepository(db)
	svc := outcome.NewService(repo, inmemdb.NewCourseRepository(db), testutil.NoDelayPolicy(), testutil.NewLogger())

	seed := func(courseID, outcomeID string) {
		if _, err := repo.CreateOutcome(ctx, outcome.Outcome{CourseID: courseID, OutcomeID: outcomeID}); err != nil {
			t.Fatalf("CreateOutcome(): %v", err)
		}
	}
	seed("course_a", "O1")
	seed("course_a", "O2")
	seed("course_b", "O1") // same outcome id in another course is fine

	dups, err := svc.CheckUniqueness(ctx)
	if err != nil {
		t.Fatalf("CheckUniqueness() error = %v", err)
	}
	if len(dups) != 0 {
		t.Fatalf("dups = %v, want none", dups)
	}

	seed("course_a", "O1") // duplicate
	seed("course_a", "O1") // triplicate

	dups, err = svc.CheckUniqueness(ctx)
	if err != nil {
		t.Fatalf("CheckUniqueness() error = %v", err)
	}
	if len(dups) != 1 {
		t.Fatalf("dups = %v, want exactly one violation", dups)
	}
	if dups[0].CourseID != "course_a" || dups[0].OutcomeID != "O1" || dups[0].Count != 3 {
		t.Errorf("dups[0] = %+v", dups[0])
	}
}
