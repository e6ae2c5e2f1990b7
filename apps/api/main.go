package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/mtaala/apps/api/echo"
	"github.com/trezcool/mtaala/core"
	"github.com/trezcool/mtaala/core/course"
	"github.com/trezcool/mtaala/core/outcome"
	"github.com/trezcool/mtaala/core/sow"
	logsvc "github.com/trezcool/mtaala/services/logger"
	"github.com/trezcool/mtaala/storage/database"
	pgrepos "github.com/trezcool/mtaala/storage/database/postgres"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds)

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
	policy := core.NewWritePolicy(conf.Seeder)
	courseRepo := pgrepos.NewCourseRepository(db)
	outcomeRepo := pgrepos.NewOutcomeRepository(db)
	sowRepo := pgrepos.NewSOWRepository(db)
	tmplRepo := pgrepos.NewTemplateRepository(db)

	app := echoapi.NewServer(
		&echoapi.Options{
			Address:    conf.Server.Address(),
			Debug:      conf.Debug,
			SecretKey:  []byte(conf.SecretKey),
			Logger:     logger,
			CourseSvc:  course.NewService(pgrepos.NewRawCourseRepository(db), courseRepo, logger),
			OutcomeSvc: outcome.NewService(outcomeRepo, courseRepo, policy, logger),
			SOWSvc:     sow.NewService(sowRepo, tmplRepo, outcomeRepo, policy, logger),
		},
	)

	// stop gracefully on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			logger.Error("server shutdown", err)
		}
	}()

	logger.Info(fmt.Sprintf("%s API starting on %s", conf.AppName, conf.Server.Address()))
	app.Start()
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error())
	}
}
