package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/benbjohnson/clock"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-live/apps/api/echo"
	"github.com/trezcool/masomo-live/apps/api/ws"
	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
	logsvc "github.com/trezcool/masomo-live/services/logger"
	"github.com/trezcool/masomo-live/storage/database"
	sqlxrepos "github.com/trezcool/masomo-live/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newLectureRepository(db *sqlx.DB) lecture.Repository {
	return sqlxrepos.NewLectureRepository(db)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newLectureOptions(conf *core.Config) lecture.Options {
	return lecture.NewOptions(conf.Live)
}

func newReaper(conf *core.Config, svc *lecture.Service, logger core.Logger) *lecture.Reaper {
	return lecture.NewReaper(svc, logger, conf.Live.ReapInterval)
}

func newLiveHandler(
	conf *core.Config,
	svc *lecture.Service,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) *ws.Handler {
	return ws.NewHandler(svc, validate, translator, logger, ws.NewOptions(conf.Live))
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	db core.DB,
	svc *lecture.Service,
	live *ws.Handler,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(&echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		LectureSvc: svc,
		Live:       live,
		Validate:   validate,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newLectureRepository))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(clock.New))
	must(c.Provide(newLectureOptions))
	must(c.Provide(lecture.NewService))
	must(c.Provide(newReaper))
	must(c.Provide(newLiveHandler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
