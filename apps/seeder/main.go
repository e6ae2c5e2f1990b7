package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
	"github.com/trezcool/mtaala/core/sow"
	emailsvc "github.com/trezcool/mtaala/services/email"
	logsvc "github.com/trezcool/mtaala/services/logger"
	"github.com/trezcool/mtaala/storage/database"
	pgrepos "github.com/trezcool/mtaala/storage/database/postgres"
)

func main() {
	defer os.Exit(0)

	std := log.New(os.Stdout, "SEEDER : ", log.LstdFlags|log.Lmicroseconds)

	conf := core.NewConfig()
	if err := conf.CheckRequired(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	var logger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		logger = core.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer db.Close()
	errAndDie(logger, database.Ping(db))

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	policy := core.NewWritePolicy(conf.Seeder)

	courseRepo := pgrepos.NewCourseRepository(db)
	outcomeRepo := pgrepos.NewOutcomeRepository(db)
	sowRepo := pgrepos.NewSOWRepository(db)
	tmplRepo := pgrepos.NewTemplateRepository(db)

	cli := &commandLine{
		conf:        conf,
		logger:      logger,
		db:          db,
		mailSvc:     mailSvc,
		policy:      policy,
		courseSvc:   course.NewService(pgrepos.NewRawCourseRepository(db), courseRepo, logger),
		outcomeSvc:  outcome.NewService(outcomeRepo, courseRepo, policy, logger),
		sowSvc:      sow.NewService(sowRepo, tmplRepo, outcomeRepo, policy, logger),
		courseRepo:  courseRepo,
		outcomeRepo: outcomeRepo,
		sowRepo:     sowRepo,
		tmplRepo:    tmplRepo,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			printError(err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error())
	}
}

// printError renders an error with its symbol prefix and, for known classes,
// the next step the operator should take.
func printError(err error) {
	switch err.(type) {
	case *core.PrerequisiteError:
		fmt.Fprintf(os.Stderr, "✗ missing prerequisite: %v\n", err)
	case *core.StructureError:
		fmt.Fprintf(os.Stderr, "✗ unexpected data shape: %v\n", err)
	case *core.IntegrityError:
		fmt.Fprintf(os.Stderr, "✗ referential integrity: %v\n", err)
	case *core.ValidationError:
		vErr := err.(*core.ValidationError)
		fmt.Fprintf(os.Stderr, "✗ invalid input: %v\n", vErr)
		for _, fld := range vErr.Fields {
			fmt.Fprintf(os.Stderr, "  - %s: %s\n", fld.Field, fld.Error)
		}
	default:
		fmt.Fprintf(os.Stderr, "✗ error: %v\n", err)
	}
}
