package main

import (
	"context"
	"fmt"

	"github.com/trezcool/mtaala/core/outcome"
)

// seedCourse runs the per-course pipeline: locate raw record, classify and
// extract, ensure the course document, write the outcome batch.
func (cli *commandLine) seedCourse(subject, level string, forceUpdate, dryRun bool) error {
	ctx := context.Background()

	pc, err := cli.courseSvc.Locate(ctx, subject, level)
	if err != nil {
		return err
	}
	fmt.Printf("✓ located %s (%s %s, SQA %s)\n", pc.CourseID, pc.Subject, pc.Level, pc.SQACode)

	if dryRun {
		recs, err := outcome.Extract(pc, cli.logger)
		if err != nil {
			return err
		}
		var topics, skills int
		for _, rec := range recs {
			if rec.IsTopic() {
				topics++
			} else if rec.IsSkill() {
				skills++
			}
		}
		fmt.Printf("✓ dry run: would write %d outcomes", len(recs))
		if topics+skills > 0 {
			fmt.Printf(" (%d topics, %d skills)", topics, skills)
		}
		fmt.Println()
		return nil
	}

	if _, err := cli.courseSvc.EnsureCourse(ctx, pc, forceUpdate); err != nil {
		return err
	}

	res, err := cli.outcomeSvc.Seed(ctx, pc, outcome.SeedOptions{ForceUpdate: forceUpdate})
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Printf("✓ outcomes already exist for %s, nothing written\n", res.CourseID)
		return nil
	}
	if res.Deleted > 0 {
		fmt.Printf("⚠ force update: deleted %d existing outcomes\n", res.Deleted)
	}
	fmt.Printf("✓ wrote %d outcomes for %s\n", len(res.Written), res.CourseID)
	return nil
}
