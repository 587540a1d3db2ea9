package main

import (
	"os"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/user"
	"github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage/database"
	"github.com/trezcool/classroom/storage/database/sqlboiler"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		panic(err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Sync()

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	cli := commandLine{
		db:     db,
		usrSvc: user.NewService(boiledrepos.NewUserRepository(db)),
		logger: logger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
