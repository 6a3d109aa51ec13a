package main

import (
	"fmt"
	"log"
	"os"

	"github.com/shankerdev/campus/apps/container"
	"github.com/shankerdev/campus/core"
	emailsvc "github.com/shankerdev/campus/services/email"
	logsvc "github.com/shankerdev/campus/services/logger"
	"github.com/shankerdev/campus/storage/database"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	out, closeOut := logsvc.NewWriter(conf)
	logger := logsvc.NewRollbarLogger(log.New(out, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(logger, err)

	validate, _, err := container.NewValidator(conf)
	errAndDie(logger, err)
	errAndDie(logger, container.ParseEmailTemplates(conf))

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}
	svcs := container.NewServices(container.SQLRepositories(db), mailSvc, core.NopMetrics, validate, conf)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		conf:       conf,
		logger:     logger,
		accountSvc: svcs.Account,
		feeSvc:     svcs.Fee,
	}
	err = cli.run(os.Args)

	_ = db.Close()
	logger.Close()
	_ = closeOut.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
