package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/mtaala/core/sow"
)

func (cli *commandLine) seedSOW(path string, dryRun bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := sow.DecodeDocument(f)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s: valid scheme of work with %d entries for %s\n", path, len(doc.Entries), doc.CourseID)

	res, err := cli.sowSvc.Stitch(context.Background(), doc, sow.StitchOptions{DryRun: dryRun})
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Println("✓ dry run: all outcome refs resolve, nothing written")
		return nil
	}
	fmt.Printf("✓ stitched %s: %d templates created, %d updated, version %s\n",
		res.CourseID, res.Created, res.Updated, res.Version)
	return nil
}

func (cli *commandLine) importRaw(path, subject, level string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := cli.courseSvc.ImportRaw(context.Background(), subject, level, payload)
	if err != nil {
		return err
	}
	fmt.Printf("✓ imported raw curriculum %s (%s %s)\n", rec.ID, rec.Subject, rec.Level)
	return nil
}

func (cli *commandLine) validate() error {
	dups, err := cli.outcomeSvc.CheckUniqueness(context.Background())
	if err != nil {
		return err
	}
	if len(dups) == 0 {
		fmt.Println("✓ outcome ids are unique per course")
		return nil
	}
	fmt.Printf("✗ %d duplicate outcome ids found:\n", len(dups))
	for _, dup := range dups {
		fmt.Printf("  - %s / %s (%d records)\n", dup.CourseID, dup.OutcomeID, dup.Count)
	}
	return fmt.Errorf("%d uniqueness violations", len(dups))
}
