package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
	"github.com/trezcool/mtaala/core/sow"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	db     *sqlx.DB

	mailSvc    core.EmailService
	policy     core.WritePolicy
	courseSvc  *course.Service
	outcomeSvc *outcome.Service
	sowSvc     *sow.Service

	// kept around so bulk mode can rebuild services with an overridden policy
	courseRepo  course.Repository
	outcomeRepo outcome.Repository
	sowRepo     sow.Repository
	tmplRepo    sow.TemplateRepository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  seed-course -subject SUBJECT -level LEVEL [-force-update] [-dry-run] - seed a course and its outcomes")
	fmt.Println("  seed-sow -file FILE [-dry-run]                                       - stitch and persist a scheme of work")
	fmt.Println("  bulk [-dir DIR] [-limit N] [-offset N] [-delay MS] [-force-update]   - seed every scheme of work in DIR")
	fmt.Println("  import-raw -file FILE -subject SUBJECT -level LEVEL                  - import a raw curriculum document")
	fmt.Println("  validate                                                             - check outcome id uniqueness store-wide")
	fmt.Println("  migrate COMMAND [args]                                               - run database migrations")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	seedCourseCmd := flag.NewFlagSet("seed-course", flag.ExitOnError)
	seedCourseSubject := seedCourseCmd.String("subject", "", "Subject token, e.g. mathematics")
	seedCourseLevel := seedCourseCmd.String("level", "", "Level token, e.g. national_5")
	seedCourseForce := seedCourseCmd.Bool("force-update", false, "Delete and recreate existing outcomes")
	seedCourseDryRun := seedCourseCmd.Bool("dry-run", false, "Report what would be written without writing")

	seedSOWCmd := flag.NewFlagSet("seed-sow", flag.ExitOnError)
	seedSOWFile := seedSOWCmd.String("file", "", "Path to the authored scheme-of-work JSON file")
	seedSOWDryRun := seedSOWCmd.Bool("dry-run", false, "Validate and resolve without writing")

	bulkCmd := flag.NewFlagSet("bulk", flag.ExitOnError)
	bulkDir := bulkCmd.String("dir", cli.conf.Seeder.SeedDataDir, "Directory holding <subject>.<level>.sow.json files")
	bulkLimit := bulkCmd.Int("limit", 0, "Process at most N files (0 = all)")
	bulkOffset := bulkCmd.Int("offset", 0, "Skip the first N files")
	bulkDelay := bulkCmd.Int("delay", 0, "Override the inter-write delay in milliseconds")
	bulkForce := bulkCmd.Bool("force-update", false, "Delete and recreate existing outcomes")

	importCmd := flag.NewFlagSet("import-raw", flag.ExitOnError)
	importFile := importCmd.String("file", "", "Path to the curriculum JSON file")
	importSubject := importCmd.String("subject", "", "Subject token")
	importLevel := importCmd.String("level", "", "Level token")

	switch args[1] {
	case "seed-course":
		if err := seedCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedCourseSubject == "" || *seedCourseLevel == "" {
			seedCourseCmd.Usage()
			return errHelp
		}
		if err := cli.checkSubjectLevel(*seedCourseSubject, *seedCourseLevel); err != nil {
			return err
		}
		return cli.seedCourse(*seedCourseSubject, *seedCourseLevel, *seedCourseForce, *seedCourseDryRun)
	case "seed-sow":
		if err := seedSOWCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedSOWFile == "" {
			seedSOWCmd.Usage()
			return errHelp
		}
		return cli.seedSOW(*seedSOWFile, *seedSOWDryRun)
	case "bulk":
		if err := bulkCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.bulk(bulkOptions{
			dir:         *bulkDir,
			limit:       *bulkLimit,
			offset:      *bulkOffset,
			delayMS:     *bulkDelay,
			forceUpdate: *bulkForce,
		})
	case "import-raw":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" || *importSubject == "" || *importLevel == "" {
			importCmd.Usage()
			return errHelp
		}
		if err := cli.checkSubjectLevel(*importSubject, *importLevel); err != nil {
			return err
		}
		return cli.importRaw(*importFile, *importSubject, *importLevel)
	case "validate":
		return cli.validate()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) checkSubjectLevel(subject, level string) error {
	input := struct {
		Subject string `json:"subject" validate:"required,subject_level"`
		Level   string `json:"level" validate:"required,subject_level"`
	}{core.CleanString(subject, true), core.CleanString(level, true)}
	if err := core.Validate.Struct(input); err != nil {
		return core.NewValidationError(errors.New("invalid subject/level"),
			core.FieldError{Field: "subject/level", Error: err.Error()})
	}
	return nil
}
