package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/outcome"
	"github.com/trezcool/mtaala/core/sow"
)

type (
	bulkOptions struct {
		dir         string
		limit       int
		offset      int
		delayMS     int
		forceUpdate bool
	}

	bulkItem struct {
		File             string `json:"file"`
		Subject          string `json:"subject"`
		Level            string `json:"level"`
		CourseID         string `json:"courseId,omitempty"`
		OutcomesWritten  int    `json:"outcomesWritten"`
		OutcomesSkipped  bool   `json:"outcomesSkipped"`
		TemplatesCreated int    `json:"templatesCreated"`
		TemplatesUpdated int    `json:"templatesUpdated"`
		Version          string `json:"version,omitempty"`
		Error            string `json:"error,omitempty"`
	}

	bulkReport struct {
		StartedAt  time.Time  `json:"startedAt"`
		FinishedAt time.Time  `json:"finishedAt"`
		Dir        string     `json:"dir"`
		Items      []bulkItem `json:"items"`
		Failed     int        `json:"failed"`
	}
)

// bulk seeds every scheme of work discovered in dir. Files follow the
// <subject>.<level>.sow.json convention. Failures are recorded per file and
// do not stop the run; a non-nil error is returned at the end if any file
// failed so the process exits non-zero.
func (cli *commandLine) bulk(opts bulkOptions) error {
	files, err := discoverSOWFiles(opts.dir)
	if err != nil {
		return err
	}
	if opts.offset > 0 {
		if opts.offset >= len(files) {
			files = nil
		} else {
			files = files[opts.offset:]
		}
	}
	if opts.limit > 0 && opts.limit < len(files) {
		files = files[:opts.limit]
	}
	if len(files) == 0 {
		return fmt.Errorf("no .sow.json files to process in %s", opts.dir)
	}

	// optional pacing override for this run only
	policy := cli.policy
	if opts.delayMS > 0 {
		policy.WriteDelay = time.Duration(opts.delayMS) * time.Millisecond
	}
	outcomeSvc := outcome.NewService(cli.outcomeRepo, cli.courseRepo, policy, cli.logger)
	sowSvc := sow.NewService(cli.sowRepo, cli.tmplRepo, cli.outcomeRepo, policy, cli.logger)

	report := bulkReport{StartedAt: time.Now().UTC(), Dir: opts.dir}
	for _, file := range files {
		item := cli.bulkOne(file, opts.forceUpdate, outcomeSvc, sowSvc)
		if item.Error != "" {
			report.Failed++
			fmt.Printf("✗ %s: %s\n", item.File, item.Error)
		} else {
			fmt.Printf("✓ %s: %d outcomes, %d templates created, %d updated\n",
				item.File, item.OutcomesWritten, item.TemplatesCreated, item.TemplatesUpdated)
		}
		report.Items = append(report.Items, item)
	}
	report.FinishedAt = time.Now().UTC()

	path, err := cli.writeReport(report)
	if err != nil {
		return err
	}
	fmt.Printf("✓ report written to %s\n", path)
	cli.emailReport(report, path)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d files failed, see %s", report.Failed, len(report.Items), path)
	}
	return nil
}

func (cli *commandLine) bulkOne(file string, forceUpdate bool, outcomeSvc *outcome.Service, sowSvc *sow.Service) bulkItem {
	item := bulkItem{File: filepath.Base(file)}

	subject, level, err := parseSOWFilename(file)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Subject, item.Level = subject, level

	ctx := context.Background()
	pc, err := cli.courseSvc.Locate(ctx, subject, level)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.CourseID = pc.CourseID

	if _, err = cli.courseSvc.EnsureCourse(ctx, pc, forceUpdate); err != nil {
		item.Error = err.Error()
		return item
	}
	seedRes, err := outcomeSvc.Seed(ctx, pc, outcome.SeedOptions{ForceUpdate: forceUpdate})
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.OutcomesWritten = len(seedRes.Written)
	item.OutcomesSkipped = seedRes.Skipped

	f, err := os.Open(file)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	defer f.Close()
	doc, err := sow.DecodeDocument(f)
	if err != nil {
		item.Error = err.Error()
		return item
	}
	stitchRes, err := sowSvc.Stitch(ctx, doc, sow.StitchOptions{})
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.TemplatesCreated = stitchRes.Created
	item.TemplatesUpdated = stitchRes.Updated
	item.Version = stitchRes.Version
	return item
}

func (cli *commandLine) writeReport(report bulkReport) (string, error) {
	dir := cli.conf.Seeder.ReportDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cli.conf.WorkDir, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "bulk_"+report.StartedAt.Format("20060102T150405")+".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (cli *commandLine) emailReport(report bulkReport, path string) {
	recipient := cli.conf.Seeder.ReportRecipient
	if recipient == "" {
		return
	}
	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: recipient}},
		Subject: fmt.Sprintf("bulk seeding finished: %d ok, %d failed", len(report.Items)-report.Failed, report.Failed),
		Body: fmt.Sprintf("Bulk run over %s finished at %s.\n%d files processed, %d failed.",
			report.Dir, report.FinishedAt.Format(time.RFC1123), len(report.Items), report.Failed),
	}
	if err := msg.AttachFile(path, "application/json"); err != nil {
		cli.logger.Warn("attaching bulk report", err)
	}
	cli.mailSvc.SendMessages(msg)
}

func discoverSOWFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sow.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// parseSOWFilename splits "<subject>.<level>.sow.json" into its tokens.
func parseSOWFilename(file string) (subject, level string, err error) {
	base := filepath.Base(file)
	parts := strings.Split(base, ".")
	if len(parts) != 4 || parts[2] != "sow" || parts[3] != "json" {
		return "", "", fmt.Errorf("%s: expected <subject>.<level>.sow.json", base)
	}
	return parts[0], parts[1], nil
}
