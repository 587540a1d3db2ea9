package main

import (
	"database/sql"
	"log"

	dig_container "github.com/trezcool/classroom/apps/api/di/dig"
	echoapi "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core"
	logsvc "github.com/trezcool/classroom/services/logger"
)

func startWithDig() {
	c := dig_container.New()

	must(c.Invoke(func(conf *core.Config, logger *logsvc.RollbarLogger, db *sql.DB, server *echoapi.Server) {
		run(conf, logger, db, server)
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
