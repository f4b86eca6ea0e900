// Command sandbox serves a local stand-in of the course backend, with server-side grading.
package main

import (
	"log"
	"os"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
	"github.com/courseapp/courseapp/services/logger"
	"github.com/courseapp/courseapp/storage/database"
	"github.com/courseapp/courseapp/storage/database/inmem"
	"github.com/courseapp/courseapp/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "SANDBOX : ", log.LstdFlags|log.Lmicroseconds),
		conf,
	)

	cli := commandLine{conf: conf, logger: logger}
	var (
		usrRepo  user.Repository
		examRepo exambank.Repository
	)
	if conf.Database.URL == "" {
		db := inmemdb.Open()
		usrRepo = inmemdb.NewUserRepository(db)
		examRepo = inmemdb.NewExamRepository(db)
	} else {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer db.Close()
		cli.db = db.DB
		usrRepo = sqlxrepos.NewUserRepository(db)
		examRepo = sqlxrepos.NewExamRepository(db)
	}
	cli.usrSvc = user.NewService(usrRepo)
	cli.examSvc = exambank.NewService(examRepo, logger, conf)

	err := cli.run(os.Args)
	if core.IsShutdown(err) {
		logger.Info(err.Error())
		err = nil
	}
	logger.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("error: %v", err)
		}
		os.Exit(1)
	}
}
