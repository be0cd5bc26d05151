package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	dig_container "github.com/trezcool/masomo-live/apps/api/di/dig"
	echoapi "github.com/trezcool/masomo-live/apps/api/echo"
	"github.com/trezcool/masomo-live/apps/api/ws"
	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

func main() {
	c := dig_container.New()
	must(c.Invoke(run))
}

func run(
	conf *core.Config,
	apiLogger core.Logger,
	dbLoggerParam dig_container.DBLoggerParam,
	db *sqlx.DB,
	svc *lecture.Service,
	reaper *lecture.Reaper,
	live *ws.Handler,
	server *echoapi.Server,
) {
	// =========================================================================
	// Initialize App

	apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer func() {
		if l, ok := apiLogger.(interface{ Close() }); ok {
			l.Close()
		}
	}()
	defer apiLogger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - lecture coordinator metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	http.DefaultServeMux.Handle("/metrics", promhttp.Handler())
	debugServer := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "debug server")
		}
		return nil
	})

	// =========================================================================
	// Start API Service

	g.Go(server.Start)
	g.Go(func() error { return reaper.Run(gctx) })

	// =========================================================================
	// Shutdown

	select {
	case <-gctx.Done():
		apiLogger.Error("a service stopped unexpectedly, shutting down")

	case sig := <-server.ShutdownSignal():
		apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// give outstanding requests a deadline for completion
	sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer scancel()

	// asking listener to shut down and shed load
	if err := server.Shutdown(sctx); err != nil {
		apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err = server.Close(); err != nil {
			apiLogger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}

	// live connections are hijacked and outlive the listener
	if n := svc.CloseConnections(); n > 0 {
		apiLogger.Info(fmt.Sprintf("closing %d live connections", n))
	}
	err := live.Wait(sctx)
	err = multierr.Append(err, debugServer.Shutdown(sctx))

	cancel()
	err = multierr.Append(err, g.Wait())

	// pending durable store writes go out before the database is closed
	svc.Close()
	if cErr := db.Close(); cErr != nil {
		dbLoggerParam.Logger.Error("failed to close", cErr)
		err = multierr.Append(err, cErr)
	}

	for _, e := range multierr.Errors(err) {
		apiLogger.Error(fmt.Sprintf("shutdown: %v", e), e)
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
