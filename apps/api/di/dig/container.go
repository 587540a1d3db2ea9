package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/classroom/apps/api/echo"
	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/notification"
	"github.com/trezcool/classroom/core/user"
	emailsvc "github.com/trezcool/classroom/services/email"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage/cache"
	"github.com/trezcool/classroom/storage/database"
	boiledrepos "github.com/trezcool/classroom/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/classroom/storage/database/sqlx"
)

func newLogger(conf *core.Config, zl *zap.Logger) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func asCoreLogger(logger *logsvc.RollbarLogger) core.Logger {
	return logger
}

// NewDB creates the database if needed, connects and migrates it.
func NewDB(conf *core.Config, logger core.Logger) (*sql.DB, core.DBExecutor) {
	setUp := func() (*sql.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

// NewCache returns the cache selected by conf.Cache.Engine, instrumented.
func NewCache(conf *core.Config, logger core.Logger) core.Cache {
	if conf.Cache.Engine == "memory" {
		return cache.NewInstrumented(cache.NewMemory(nil))
	}

	rc := cache.NewRedis(conf)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		// reads fail over to the database until redis is back
		logger.Warn(fmt.Sprintf("pinging redis at %s: %v", conf.Cache.Address, err), err)
	}
	return cache.NewInstrumented(rc)
}

func NewEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// NewValidate returns a validator with every custom tag registered.
func NewValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate
}

type serverParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	Cache           core.Cache
	UserSvc         user.ServiceInterface
	CourseSvc       course.ServiceInterface
	NotificationSvc notification.ServiceInterface
	Validate        *validator.Validate
	Translator      ut.Translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Cache:           p.Cache,
		UserSvc:         p.UserSvc,
		CourseSvc:       p.CourseSvc,
		NotificationSvc: p.NotificationSvc,
		Validate:        p.Validate,
		Translator:      p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZap))
	must(c.Provide(newLogger))
	must(c.Provide(asCoreLogger))
	must(c.Provide(NewDB))
	must(c.Provide(database.NewTransactor, dig.As(new(core.Transactor))))
	must(c.Provide(NewCache))
	must(c.Provide(NewEmailService))

	// repositories
	must(c.Provide(boiledrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(boiledrepos.NewCourseRepository, dig.As(new(course.Repository), new(course.InviteRepository))))
	must(c.Provide(sqlxrepos.NewNotificationRepository, dig.As(new(notification.Repository))))

	// services
	must(c.Provide(core.NewTranslator))
	must(c.Provide(NewValidate))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(course.NewService, dig.As(new(course.ServiceInterface))))
	must(c.Provide(notification.NewService, dig.As(new(notification.ServiceInterface))))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
