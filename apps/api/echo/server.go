package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-live/apps/api/ws"
	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         core.DB // optional, pinged by /health
		LectureSvc *lecture.Service
		Live       *ws.Handler
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		*ServerDeps
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	debug := s.Conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator)
	s.app.Debug = debug

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(s.Conf.SecretKey, "header:Authorization"))
	// browsers cannot set headers on a websocket handshake
	liveJWT := middleware.JWTWithConfig(newJWTConfig(s.Conf.SecretKey, "query:token"))

	registerLiveAPI(v1, liveJWT, s.Live, s.Logger)
	registerLectureAPI(v1, jwt, s.LectureSvc, s.Validate, s.Translator)
}

// Start serves until Shutdown or Close is called, which is not an error.
func (s *Server) Start() error {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "starting server")
	}
	return nil
}

// ShutdownSignal is sent the OS interrupts.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" Live!")
}

func (s *Server) health(ctx echo.Context) error {
	if s.DB != nil {
		if err := s.DB.PingContext(ctx.Request().Context()); err != nil {
			s.Logger.Warn("health check: database unreachable", err)
			return ctx.JSON(http.StatusServiceUnavailable, echo.Map{"status": "database unreachable"})
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": s.Conf.Build})
}
