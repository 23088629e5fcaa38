package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/images"
	"github.com/trezcool/academia/core/proxy"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/social"
	"github.com/trezcool/academia/core/telemetry"
	"github.com/trezcool/academia/core/voice"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/services/metrics"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/storage/database/sqlx"
)

// upstreamHeaderTimeout bounds the wait for upstream response headers.
const upstreamHeaderTimeout = 30 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logOut := logsvc.NewLogWriter(conf.LogFile)
	logger := logsvc.NewRollbarLogger(
		logsvc.NewStdLogger("API : ", logOut, log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		logsvc.NewStdLogger("DB : ", logOut, log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// QA|PROD have no built-in JWT secret
	if err := conf.RequireSecretKey(); err != nil {
		logger.Fatal(err.Error(), err)
	}

	// set up storage
	var (
		socialRepo social.Repository
		roleRepo   role.Repository
	)
	if conf.Database.InMemory() {
		logger.Info("DATABASE_ENGINE not set: using in-memory storage")
		mem := inmemdb.Open()
		socialRepo = inmemdb.NewSocialRepository(mem)
		roleRepo = inmemdb.NewMetadataRepository(mem)
	} else {
		db, err := database.Setup(conf.Database)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer closeDB(db, dbLogger)
		socialRepo = sqlxrepos.NewSocialRepository(db)
		roleRepo = sqlxrepos.NewMetadataRepository(db)
	}

	// set up services
	metrics := metricsvc.NewMetrics(conf.AppName, "api")
	httpClient := proxy.NewClient(upstreamHeaderTimeout)

	socialSvc := social.NewService(socialRepo)
	socialSvc.SparkCreated.Subscribe(func(spk social.Spark) {
		metrics.SocialPostInc("spark")
		logger.Debug(fmt.Sprintf("spark %s created", spk.ID))
	})
	socialSvc.EchoCreated.Subscribe(func(ech social.Echo) {
		metrics.SocialPostInc("echo")
		logger.Debug(fmt.Sprintf("echo %s added to spark %s", ech.ID, ech.SparkID))
	})

	voiceSvc := voice.NewService(conf.LiveKit, httpClient)
	voiceSvc.Issued = func(room string, ttl time.Duration) {
		metrics.TokenIssued(conf.LiveKit.AgentName, ttl)
		logger.Debug(fmt.Sprintf("voice token issued for room %q (%v)", room, ttl))
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.DefaultServeMux.Handle("/metrics", metrics.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Metrics:    metrics,
			Validate:   validate,
			Translator: translator,
			HTTPClient: httpClient,
			SocialSvc:  socialSvc,
			RoleSvc:    role.NewService(roleRepo),
			VoiceSvc:   voiceSvc,
			Images:     images.NewClient(conf.Images, httpClient),
			Telemetry:  telemetry.NewForwarder(conf.Telemetry, httpClient),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func closeDB(db *sqlx.DB, logger core.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Failed to close", err)
	}
}
