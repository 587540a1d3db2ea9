package main

import (
	"log"

	dig_container "github.com/trezcool/classroom/apps/api/di/dig"
	echoapi "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/notification"
	"github.com/trezcool/classroom/core/user"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage/database"
	boiledrepos "github.com/trezcool/classroom/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/classroom/storage/database/sqlx"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	db, _ := dig_container.NewDB(conf, logger)
	tx := database.NewTransactor(db)
	appCache := dig_container.NewCache(conf, logger)
	mailSvc := dig_container.NewEmailService(conf, logger)

	crsRepo := boiledrepos.NewCourseRepository(db)
	usrSvc := user.NewService(boiledrepos.NewUserRepository(db))
	crsSvc := course.NewService(tx, crsRepo, crsRepo, usrSvc, appCache, mailSvc, logger)
	ntfSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), usrSvc)

	translator := core.NewTranslator()

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Cache:           appCache,
			UserSvc:         usrSvc,
			CourseSvc:       crsSvc,
			NotificationSvc: ntfSvc,
			Validate:        dig_container.NewValidate(translator),
			Translator:      translator,
		},
	)

	run(conf, logger, db, server)
}
