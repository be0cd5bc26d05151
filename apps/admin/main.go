package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/masomo-live/core"
	logsvc "github.com/trezcool/masomo-live/services/logger"
	"github.com/trezcool/masomo-live/storage/database"
	sqlxrepos "github.com/trezcool/masomo-live/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(db.PingContext(context.Background()))

	// start CLI
	cli := commandLine{
		db:   db,
		repo: sqlxrepos.NewLectureRepository(db),
		out:  os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
		os.Exit(1)
	}
}
